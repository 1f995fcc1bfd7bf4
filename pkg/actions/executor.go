// Package actions executes the post-deployment state changes (publish,
// enable, share) against discovered agents. Each action has an ordered list
// of candidate endpoints — functionally equivalent API variants that may or
// may not exist on a given platform version — and the executor walks them
// until one accepts, classifying every failure along the way. Exhaustion is
// degraded to "manual intervention required" rather than aborting the run.
package actions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/botsmith-dev/botsmith/pkg/auth"
	"github.com/botsmith-dev/botsmith/pkg/environments"
	"github.com/botsmith-dev/botsmith/pkg/logger"
	"github.com/botsmith-dev/botsmith/pkg/networking"
	"github.com/botsmith-dev/botsmith/pkg/resources"
)

const (
	// DefaultSettleDelay is how long a successful publish waits before the
	// outcome is considered final. Publish is asynchronous server-side; an
	// immediate follow-up enable could race ahead of completion.
	DefaultSettleDelay = 10 * time.Second

	// defaultTransportRetries is the bounded retry budget for
	// network-level failures on a single candidate endpoint.
	defaultTransportRetries = 2

	// transportRetryInterval is the pause between transport retries.
	transportRetryInterval = 500 * time.Millisecond
)

// endpointCandidate is one API variant for an action.
type endpointCandidate struct {
	name  string
	build func(base, resourceID string) string
}

// actionCandidates fixes the candidate-endpoint priority order per action.
// The order is set here once; at runtime attempts are never skipped or
// reordered.
var actionCandidates = map[Kind][]endpointCandidate{
	ActionPublish: {
		{"agents-v2", func(base, id string) string {
			return fmt.Sprintf("%s/api/agents/v2/%s/publish", base, id)
		}},
		{"bots-v1", func(base, id string) string {
			return fmt.Sprintf("%s/api/botmanagement/v1/bots/%s/publish", base, id)
		}},
		{"org-data", func(base, id string) string {
			return fmt.Sprintf("%s/api/data/v9.2/bots(%s)/publish", base, id)
		}},
	},
	ActionEnable: {
		{"agents-v2", func(base, id string) string {
			return fmt.Sprintf("%s/api/agents/v2/%s/enable", base, id)
		}},
		{"bots-v1", func(base, id string) string {
			return fmt.Sprintf("%s/api/botmanagement/v1/bots/%s/enable", base, id)
		}},
		{"org-data", func(base, id string) string {
			return fmt.Sprintf("%s/api/data/v9.2/bots(%s)/enable", base, id)
		}},
	},
}

// Config configures an Executor.
type Config struct {
	// HTTPClient is the client used for action requests.
	HTTPClient networking.HTTPClient

	// SettleDelay overrides DefaultSettleDelay when positive.
	SettleDelay time.Duration

	// Sleep is the settle-delay sleeper; tests inject a recorder here.
	// Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Executor performs actions against agents.
type Executor struct {
	client      networking.HTTPClient
	settleDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor from the given configuration.
func NewExecutor(cfg Config) (*Executor, error) {
	client := cfg.HTTPClient
	if client == nil {
		built, err := networking.NewHttpClientBuilder().Build()
		if err != nil {
			return nil, err
		}
		client = built
	}

	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Executor{client: client, settleDelay: settle, sleep: sleep}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs one action against one resource and returns its terminal
// outcome. The outcome is terminal for the (resource, action) pair: the
// caller runs Execute at most once per pair per run.
func (e *Executor) Execute(
	ctx context.Context,
	env *environments.Record,
	res resources.Record,
	kind Kind,
	tok *auth.Token,
) *Outcome {
	outcome := &Outcome{
		ResourceID:   res.ResourceID,
		ResourceName: res.DisplayName,
		Action:       kind,
	}

	if kind == ActionShare {
		return e.shareOutcome(outcome, env, res)
	}

	base := strings.TrimRight(env.InstanceURL, "/")
	for _, candidate := range actionCandidates[kind] {
		endpoint := candidate.build(base, res.ResourceID)

		status, err := e.attempt(ctx, endpoint, tok)
		now := time.Now()

		if err != nil {
			outcome.Attempts = append(outcome.Attempts, Attempt{
				Endpoint:    endpoint,
				StatusClass: statusClass(0),
				ErrorKind:   KindTransport,
				Timestamp:   now,
			})
			logger.Warnw("action attempt failed at transport level",
				"action", kind, "resource", res.ResourceID, "endpoint", endpoint, "error", err)
			continue
		}

		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			outcome.Attempts = append(outcome.Attempts, Attempt{
				Endpoint:    endpoint,
				StatusClass: statusClass(status),
				Timestamp:   now,
			})
			outcome.Status = StatusSucceeded
			logger.Infow("action succeeded",
				"action", kind, "resource", res.ResourceID, "endpoint", candidate.name)

			if kind == ActionPublish {
				logger.Debugf("waiting %s for publish to settle", e.settleDelay)
				if err := e.sleep(ctx, e.settleDelay); err != nil {
					logger.Warnf("settle delay interrupted: %v", err)
				}
			}
			return outcome
		}

		errKind := classifyStatus(status)
		outcome.Attempts = append(outcome.Attempts, Attempt{
			Endpoint:    endpoint,
			StatusClass: statusClass(status),
			ErrorKind:   errKind,
			Timestamp:   now,
		})
		logger.Debugw("action attempt rejected, trying next candidate",
			"action", kind, "resource", res.ResourceID, "endpoint", candidate.name,
			"status", status, "kind", errKind)
	}

	outcome.Status = StatusFailedManualRequired
	outcome.Reason = fmt.Sprintf("every candidate endpoint failed (%d attempts)", len(outcome.Attempts))
	outcome.ManualSteps = []string{
		fmt.Sprintf("Open the environment portal for %s and run %q on agent %q manually", env.EnvironmentID, kind, res.DisplayName),
		"Check the attempt log above for the status each endpoint variant returned",
	}
	return outcome
}

// attempt issues one state-changing request against a candidate endpoint.
// Network-level failures are retried with a bounded constant backoff; any
// HTTP response, success or failure, ends the retry loop and is returned for
// classification.
func (e *Executor) attempt(ctx context.Context, endpoint string, tok *auth.Token) (int, error) {
	operation := func() (int, error) {
		_, status, err := networking.FetchRaw(ctx, e.client, endpoint,
			networking.WithMethod(http.MethodPost),
			networking.WithHeader("Authorization", "Bearer "+tok.AccessToken),
			networking.WithHeader("Content-Type", networking.ContentTypeJSON),
			networking.WithBody(strings.NewReader("{}")),
		)
		if err != nil && status == 0 {
			// no response at all: retryable
			return 0, err
		}
		return status, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(transportRetryInterval)),
		backoff.WithMaxTries(defaultTransportRetries+1),
		backoff.WithNotify(func(err error, duration time.Duration) {
			logger.Debugf("transport failure on %s: %v, retrying in %s", endpoint, err, duration)
		}),
	)
}

// shareOutcome produces the manual-required outcome for Share. No remote call
// is made: sharing needs interactive identity and group resolution that the
// pipeline does not own, so the absence of automation is surfaced as expected
// manual work, not as an error.
func (e *Executor) shareOutcome(outcome *Outcome, env *environments.Record, res resources.Record) *Outcome {
	name := env.DisplayName
	if name == "" {
		name = env.EnvironmentID
	}

	outcome.Status = StatusFailedManualRequired
	outcome.Reason = "sharing requires interactive identity and group resolution"
	outcome.ManualSteps = []string{
		fmt.Sprintf("Open the environment portal for %s (%s)", name, env.InstanceURL),
		fmt.Sprintf("Open agent %q (%s) and choose Share", res.DisplayName, res.ResourceID),
		"Assign the owning security group and grant viewer access to the intended audience",
		"Confirm the agent's channels show the shared state before closing the change",
	}
	return outcome
}
