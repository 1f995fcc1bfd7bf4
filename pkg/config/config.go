// Package config loads the per-run configuration from flags, environment
// variables, and an optional config file, in that priority order. Every knob
// the pipeline can turn lives here; the orchestration packages receive plain
// values and never read viper themselves.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/botsmith-dev/botsmith/pkg/actions"
	"github.com/botsmith-dev/botsmith/pkg/auth"
	"github.com/botsmith-dev/botsmith/pkg/credentials"
	"github.com/botsmith-dev/botsmith/pkg/environments"
	"github.com/botsmith-dev/botsmith/pkg/errors"
)

const (
	// EnvPrefix is the prefix for environment-variable configuration,
	// e.g. BOTSMITH_TENANT_ID.
	EnvPrefix = "BOTSMITH"

	// envClientSecret is the conventional variable for the client secret.
	// #nosec G101 - this is an environment variable name, not a credential
	envClientSecret = "BOTSMITH_CLIENT_SECRET"

	// OutputTable renders the run summary as a table.
	OutputTable = "table"

	// OutputJSON renders the run summary as JSON.
	OutputJSON = "json"
)

// DefaultScopes is the prioritized scope list tried by the fallback
// authentication strategy. Earlier entries win.
var DefaultScopes = []string{
	"https://api.example-platform.net/.default",
	"https://service.example-platform.net/.default",
}

// DefaultActions are the actions run when the pipeline does not name any.
var DefaultActions = []string{string(actions.ActionPublish), string(actions.ActionEnable)}

// RunConfig is the fully resolved configuration for one run.
type RunConfig struct {
	// EnvironmentURL is the environment reference supplied by the pipeline.
	EnvironmentURL string

	// TenantID, ClientID and ClientSecret identify the pipeline's
	// application identity.
	TenantID     string
	ClientID     string
	ClientSecret string

	// Scopes is the prioritized candidate scope list.
	Scopes []string

	// Actions are the requested action names, executed in the given order
	// per resource.
	Actions []actions.Kind

	// ResourceFilter optionally restricts discovery to matching agents.
	ResourceFilter string

	// Authority overrides the identity provider base URL.
	Authority string

	// DirectoryBases overrides the directory API base URLs.
	DirectoryBases []string

	// HostSuffixes overrides the known instance hostname suffixes.
	HostSuffixes []string

	// SettleDelay overrides the publish settle delay.
	SettleDelay time.Duration

	// HTTPTimeout bounds every outgoing request.
	HTTPTimeout time.Duration

	// Output selects the summary rendering, table or json.
	Output string
}

// SetDefaults registers the configuration defaults on viper. The command
// layer calls this once before binding flags.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scopes", DefaultScopes)
	v.SetDefault("actions", DefaultActions)
	v.SetDefault("authority", auth.DefaultAuthority)
	v.SetDefault("directory-bases", []string{environments.DefaultDirectoryBase})
	v.SetDefault("host-suffixes", environments.DefaultHostSuffixes)
	v.SetDefault("settle-delay", actions.DefaultSettleDelay)
	v.SetDefault("http-timeout", 30*time.Second)
	v.SetDefault("output", OutputTable)
}

// Load resolves the run configuration from the given viper instance. The
// client secret follows the flag, file, environment-variable priority order.
func Load(v *viper.Viper) (*RunConfig, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	secret, err := credentials.ResolveSecret(
		v.GetString("client-secret"),
		v.GetString("client-secret-file"),
		envClientSecret,
	)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("client secret resolution failed", err)
	}

	kinds, err := parseActions(v.GetStringSlice("actions"))
	if err != nil {
		return nil, errors.NewInvalidArgumentError("invalid actions", err)
	}

	cfg := &RunConfig{
		EnvironmentURL: v.GetString("environment-url"),
		TenantID:       v.GetString("tenant-id"),
		ClientID:       v.GetString("client-id"),
		ClientSecret:   secret,
		Scopes:         v.GetStringSlice("scopes"),
		Actions:        kinds,
		ResourceFilter: v.GetString("resource-filter"),
		Authority:      v.GetString("authority"),
		DirectoryBases: v.GetStringSlice("directory-bases"),
		HostSuffixes:   v.GetStringSlice("host-suffixes"),
		SettleDelay:    v.GetDuration("settle-delay"),
		HTTPTimeout:    v.GetDuration("http-timeout"),
		Output:         v.GetString("output"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the orchestrators rely on.
func (c *RunConfig) Validate() error {
	if c.EnvironmentURL == "" {
		return errors.NewInvalidArgumentError("environment URL is required", nil)
	}
	if c.TenantID == "" {
		return errors.NewInvalidArgumentError("tenant ID is required", nil)
	}
	if c.ClientID == "" {
		return errors.NewInvalidArgumentError("client ID is required", nil)
	}
	if len(c.Scopes) == 0 {
		return errors.NewInvalidArgumentError("at least one scope is required", nil)
	}
	if len(c.Actions) == 0 {
		return errors.NewInvalidArgumentError("at least one action is required", nil)
	}
	if c.Output != OutputTable && c.Output != OutputJSON {
		return errors.NewInvalidArgumentError(
			fmt.Sprintf("unknown output format %q (valid: %s, %s)", c.Output, OutputTable, OutputJSON), nil)
	}
	return nil
}

// Credentials builds the immutable credential context for the run.
func (c *RunConfig) Credentials() *credentials.Context {
	return &credentials.Context{
		TenantID:        c.TenantID,
		ClientID:        c.ClientID,
		ClientSecret:    c.ClientSecret,
		CandidateScopes: c.Scopes,
	}
}

func parseActions(names []string) ([]actions.Kind, error) {
	var kinds []actions.Kind
	seen := map[actions.Kind]bool{}
	for _, name := range names {
		kind, err := actions.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
