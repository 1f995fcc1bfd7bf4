package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botsmith-dev/botsmith/pkg/actions"
	"github.com/botsmith-dev/botsmith/pkg/config"
	"github.com/botsmith-dev/botsmith/pkg/errors"
	"github.com/botsmith-dev/botsmith/pkg/report"
)

// fakePlatform is one server standing in for the identity provider, the
// environment directory, and the environment instance itself.
type fakePlatform struct {
	server *httptest.Server

	authWorks   bool
	agents      string // body for the agent listing
	actionCalls []string
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	p := &fakePlatform{}

	mux := http.NewServeMux()

	// identity provider: discovery plus the discovered token endpoint
	mux.HandleFunc("/tenant-123/v2.0/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		if !p.authWorks {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":         p.server.URL + "/tenant-123/v2.0",
			"token_endpoint": p.server.URL + "/oidc/token",
			"jwks_uri":       p.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/oidc/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "e2e-token", "token_type": "Bearer", "expires_in": 3600,
		})
	})
	mux.HandleFunc("/tenant-123/oauth2/v2.0/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_scope"})
	})

	// environment directory
	mux.HandleFunc("/providers/platform/environments", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"value":[{"name":"env-7","properties":{"displayName":"contoso.example-platform.net","linkedEnvironmentMetadata":{"instanceUrl":%q}}}]}`, p.server.URL)
	})

	// environment instance: agent listing and action endpoints
	mux.HandleFunc("/api/agents/v2", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(p.agents))
	})
	mux.HandleFunc("/api/agents/v2/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		p.actionCalls = append(p.actionCalls, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePlatform) runConfig() *config.RunConfig {
	return &config.RunConfig{
		EnvironmentURL: "https://contoso.example-platform.net",
		TenantID:       "tenant-123",
		ClientID:       "client-456",
		ClientSecret:   "hunter2",
		Scopes:         []string{"https://api.example-platform.net/.default"},
		Actions:        []actions.Kind{actions.ActionPublish, actions.ActionEnable},
		Authority:      p.server.URL,
		DirectoryBases: []string{p.server.URL},
		HostSuffixes:   []string{"example-platform.net"},
		SettleDelay:    time.Millisecond,
		HTTPTimeout:    5 * time.Second,
		Output:         config.OutputTable,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	p := newFakePlatform(t)
	p.authWorks = true
	p.agents = `{"items":[{"id":"agent-1","name":"Support Bot"},{"id":"agent-2","name":"HR Bot"}]}`

	r, err := NewRunner(p.runConfig(), p.server.Client())
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "env-7", summary.EnvironmentID)
	require.Len(t, summary.Outcomes, 4, "two resources x two actions")
	for _, outcome := range summary.Outcomes {
		assert.Equal(t, actions.StatusSucceeded, outcome.Status)
	}

	succeeded, manual := summary.Counts()
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 0, manual)
	assert.Equal(t, 0, report.ExitCode(err))

	// publish before enable, per resource, in discovery order
	require.Len(t, p.actionCalls, 4)
	assert.True(t, strings.HasSuffix(p.actionCalls[0], "agent-1/publish"))
	assert.True(t, strings.HasSuffix(p.actionCalls[1], "agent-1/enable"))
	assert.True(t, strings.HasSuffix(p.actionCalls[2], "agent-2/publish"))
	assert.True(t, strings.HasSuffix(p.actionCalls[3], "agent-2/enable"))
}

func TestRun_AuthenticationExhaustedIsFatal(t *testing.T) {
	t.Parallel()

	p := newFakePlatform(t)
	// authWorks stays false and the direct grant rejects every scope

	r, err := NewRunner(p.runConfig(), p.server.Client())
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.Error(t, err)

	assert.Nil(t, summary, "no outcomes are produced when authentication fails")
	assert.True(t, errors.IsAuthExhausted(err))
	assert.Equal(t, 1, report.ExitCode(err))
	assert.Empty(t, p.actionCalls)
}

func TestRun_ResourceFilter(t *testing.T) {
	t.Parallel()

	p := newFakePlatform(t)
	p.authWorks = true
	p.agents = `{"items":[{"id":"agent-1","name":"Support Bot"},{"id":"agent-2","name":"HR Bot"}]}`

	cfg := p.runConfig()
	cfg.ResourceFilter = "support"

	r, err := NewRunner(cfg, p.server.Client())
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, "agent-1", summary.Outcomes[0].ResourceID)
}

func TestRun_NoAgentsEndsCleanly(t *testing.T) {
	t.Parallel()

	p := newFakePlatform(t)
	p.authWorks = true
	p.agents = `{"items":[]}`

	r, err := NewRunner(p.runConfig(), p.server.Client())
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Outcomes)
	assert.Equal(t, 0, report.ExitCode(err))
	assert.Empty(t, p.actionCalls)
}

func TestRun_ShareProducesManualOutcome(t *testing.T) {
	t.Parallel()

	p := newFakePlatform(t)
	p.authWorks = true
	p.agents = `{"items":[{"id":"agent-1","name":"Support Bot"}]}`

	cfg := p.runConfig()
	cfg.Actions = []actions.Kind{actions.ActionShare}

	r, err := NewRunner(cfg, p.server.Client())
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)

	outcome := summary.Outcomes[0]
	assert.Equal(t, actions.StatusFailedManualRequired, outcome.Status)
	assert.NotEmpty(t, outcome.ManualSteps)
	assert.Equal(t, 0, report.ExitCode(err), "manual-required outcomes keep the pipeline green")
	assert.Empty(t, p.actionCalls)
}
