package app

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/botsmith-dev/botsmith/pkg/actions"
	"github.com/botsmith-dev/botsmith/pkg/config"
	"github.com/botsmith-dev/botsmith/pkg/logger"
	"github.com/botsmith-dev/botsmith/pkg/runner"
)

// newConfigureCmd creates the configure command, the main entry point of the
// tool. It runs the whole pipeline: authenticate, resolve the environment,
// discover agents, execute the requested actions, and render the summary.
func newConfigureCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Publish, enable, or share the agents of an environment",
		Long: `Configure the conversational agents deployed in an environment.

The environment is identified by its URL. Credentials come from flags, from
BOTSMITH_* environment variables, or from a secret file, in that order. The
command exits non-zero only when authentication or environment resolution
fails; per-agent action failures are reported as manual follow-up steps and
keep the exit status zero.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			// Config errors above still print usage; runtime errors should not.
			cmd.SilenceUsage = true

			r, err := runner.NewRunner(cfg, nil)
			if err != nil {
				return err
			}

			summary, err := r.Run(cmd.Context())
			if err != nil {
				logger.Errorw("run failed", "error", err)
				return err
			}

			if cfg.Output == config.OutputJSON {
				return summary.RenderJSON(os.Stdout)
			}
			return summary.Render(os.Stdout)
		},
	}

	flags := cmd.Flags()
	flags.String("environment-url", "", "URL of the target environment (required)")
	flags.String("tenant-id", "", "Directory tenant of the application identity (required)")
	flags.String("client-id", "", "Application (client) ID (required)")
	flags.String("client-secret", "", "Client secret (prefer --client-secret-file or BOTSMITH_CLIENT_SECRET)")
	flags.String("client-secret-file", "", "Path to a file containing the client secret")
	flags.StringSlice("scopes", config.DefaultScopes, "Candidate token scopes, in priority order")
	flags.StringSlice("actions", config.DefaultActions,
		"Actions to run per agent ("+actions.KindNames()+")")
	flags.String("resource-filter", "", "Only act on agents whose name contains this substring")
	flags.String("authority", "", "Identity provider base URL")
	flags.StringSlice("directory-bases", nil, "Environment directory base URLs")
	flags.StringSlice("host-suffixes", nil, "Known instance hostname suffixes for URL-derived resolution")
	flags.Duration("settle-delay", actions.DefaultSettleDelay, "Wait after a successful publish before the next action")
	flags.Duration("http-timeout", 30*time.Second, "Timeout for each outgoing HTTP request")
	flags.String("output", config.OutputTable, "Summary format: table or json")

	if err := v.BindPFlags(flags); err != nil {
		logger.Errorf("Error binding configure flags: %v", err)
	}

	return cmd
}
