package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botsmith-dev/botsmith/pkg/actions"
	"github.com/botsmith-dev/botsmith/pkg/errors"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.Set("environment-url", "https://contoso.example-platform.net")
	v.Set("tenant-id", "tenant-123")
	v.Set("client-id", "client-456")
	v.Set("client-secret", "hunter2")
	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "https://contoso.example-platform.net", cfg.EnvironmentURL)
	assert.Equal(t, DefaultScopes, cfg.Scopes)
	assert.Equal(t, []actions.Kind{actions.ActionPublish, actions.ActionEnable}, cfg.Actions)
	assert.Equal(t, actions.DefaultSettleDelay, cfg.SettleDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, OutputTable, cfg.Output)
}

func TestLoad_ActionsParsedAndDeduplicated(t *testing.T) {
	t.Parallel()

	v := newTestViper()
	v.Set("actions", []string{"Publish", "share", "publish"})

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, []actions.Kind{actions.ActionPublish, actions.ActionShare}, cfg.Actions)
}

func TestLoad_UnknownAction(t *testing.T) {
	t.Parallel()

	v := newTestViper()
	v.Set("actions", []string{"deploy"})

	_, err := Load(v)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Parallel()

	v := newTestViper()
	v.Set("client-secret", "")

	_, err := Load(v)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestLoad_SecretFromEnv(t *testing.T) { //nolint:paralleltest // mutates the environment
	t.Setenv("BOTSMITH_CLIENT_SECRET", "from-env")

	v := newTestViper()
	v.Set("client-secret", "")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ClientSecret)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*viper.Viper)
		wantErr string
	}{
		{"missing environment URL", func(v *viper.Viper) { v.Set("environment-url", "") }, "environment URL is required"},
		{"missing tenant", func(v *viper.Viper) { v.Set("tenant-id", "") }, "tenant ID is required"},
		{"missing client", func(v *viper.Viper) { v.Set("client-id", "") }, "client ID is required"},
		{"no scopes", func(v *viper.Viper) { v.Set("scopes", []string{}) }, "at least one scope is required"},
		{"bad output", func(v *viper.Viper) { v.Set("output", "xml") }, "unknown output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := newTestViper()
			tt.mutate(v)
			_, err := Load(v)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	cfg, err := Load(newTestViper())
	require.NoError(t, err)

	creds := cfg.Credentials()
	require.NoError(t, creds.Validate())
	assert.Equal(t, "tenant-123", creds.TenantID)
	assert.Equal(t, DefaultScopes, creds.CandidateScopes)
}
