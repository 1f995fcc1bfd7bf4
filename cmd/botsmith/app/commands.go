// Package app provides the entry point for the botsmith command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/botsmith-dev/botsmith/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "botsmith",
	DisableAutoGenTag: true,
	Short:             "botsmith configures conversational agents after deployment",
	Long: `botsmith is a post-deployment configuration tool for conversational agents.

Given an environment URL and a service credential, it acquires an access token,
resolves the environment record, discovers the agents deployed in it, and runs
the requested actions (publish, enable, share) against each one. Individual
action failures are reported as manual follow-ups; only authentication or
environment-resolution failures fail the run.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Re-initialize so the --debug flag takes effect.
		logger.Initialize()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the botsmith CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(newConfigureCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
