// Package runner wires the orchestration stages of one configuration run:
// credential exchange, environment resolution, agent discovery, then a
// sequential (resource, action) loop. Execution is strictly sequential — one
// token, one resolution, one discovery pass — and each pair's attempt log is
// independent, so nothing here needs synchronization.
package runner

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/botsmith-dev/botsmith/pkg/actions"
	"github.com/botsmith-dev/botsmith/pkg/auth"
	"github.com/botsmith-dev/botsmith/pkg/config"
	"github.com/botsmith-dev/botsmith/pkg/environments"
	"github.com/botsmith-dev/botsmith/pkg/logger"
	"github.com/botsmith-dev/botsmith/pkg/networking"
	"github.com/botsmith-dev/botsmith/pkg/report"
	"github.com/botsmith-dev/botsmith/pkg/resources"
)

// Runner executes one configuration run.
type Runner struct {
	cfg    *config.RunConfig
	client *http.Client
}

// NewRunner creates a Runner for the given configuration. A nil client gets
// the standard hardened client with the configured timeout.
func NewRunner(cfg *config.RunConfig, client *http.Client) (*Runner, error) {
	if client == nil {
		built, err := networking.NewHttpClientBuilder().
			WithTimeout(cfg.HTTPTimeout).
			Build()
		if err != nil {
			return nil, err
		}
		client = built
	}
	return &Runner{cfg: cfg, client: client}, nil
}

// Run performs the whole run and returns its summary. A non-nil error is
// fatal — nothing beyond the failing stage was attempted; partial action
// failures are carried inside the summary instead.
func (r *Runner) Run(ctx context.Context) (*report.RunSummary, error) {
	runID := uuid.NewString()
	logger.Infow("starting configuration run",
		"run", runID,
		"environment", r.cfg.EnvironmentURL,
		"actions", r.cfg.Actions,
	)

	authenticator, err := auth.NewAuthenticator(r.cfg.Authority, r.client)
	if err != nil {
		return nil, err
	}
	token, err := authenticator.Acquire(ctx, r.cfg.Credentials())
	if err != nil {
		return nil, err
	}

	resolver, err := environments.NewResolver(environments.Config{
		DirectoryBases: r.cfg.DirectoryBases,
		HostSuffixes:   r.cfg.HostSuffixes,
		HTTPClient:     r.client,
	})
	if err != nil {
		return nil, err
	}
	env, err := resolver.Resolve(ctx, environments.Reference{SuppliedURL: r.cfg.EnvironmentURL}, token)
	if err != nil {
		return nil, err
	}

	discovery, err := resources.NewOrchestrator(r.client)
	if err != nil {
		return nil, err
	}
	agents, err := discovery.List(ctx, env, token)
	if err != nil {
		return nil, err
	}

	agents = resources.FilterByName(agents, r.cfg.ResourceFilter)
	if len(agents) == 0 {
		logger.Warnw("no agents found in environment; run ends cleanly",
			"run", runID,
			"environment", env.EnvironmentID,
			"filter", r.cfg.ResourceFilter,
		)
		return report.Summarize(runID, env, nil), nil
	}

	executor, err := actions.NewExecutor(actions.Config{
		HTTPClient:  r.client,
		SettleDelay: r.cfg.SettleDelay,
	})
	if err != nil {
		return nil, err
	}

	var outcomes []*actions.Outcome
	for _, agent := range agents {
		for _, kind := range r.cfg.Actions {
			outcomes = append(outcomes, executor.Execute(ctx, env, agent, kind, token))
		}
	}

	return report.Summarize(runID, env, outcomes), nil
}
