// Package report aggregates per-resource action outcomes into the run summary
// handed back to the pipeline, and owns the process exit policy: only fatal
// authentication or environment-resolution failures fail the run; per-resource
// manual-required outcomes are reported loudly but keep exit status zero,
// because deployment of the packaged resources is the critical path and
// post-deployment configuration is best-effort with a visible manual fallback.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/botsmith-dev/botsmith/pkg/actions"
	"github.com/botsmith-dev/botsmith/pkg/environments"
	"github.com/botsmith-dev/botsmith/pkg/errors"
)

// RunSummary is the aggregated result of one configuration run.
type RunSummary struct {
	// RunID correlates the summary with the run's log lines.
	RunID string `json:"runId"`

	// EnvironmentID is the environment the run executed against.
	EnvironmentID string `json:"environmentId"`

	// EnvironmentName is the environment display name, when verified.
	EnvironmentName string `json:"environmentName,omitempty"`

	// GeneratedAt is when the summary was produced.
	GeneratedAt time.Time `json:"generatedAt"`

	// Outcomes holds one entry per (resource, action) pair, in execution order.
	Outcomes []*actions.Outcome `json:"outcomes"`
}

// Summarize aggregates the outcomes of a run.
func Summarize(runID string, env *environments.Record, outcomes []*actions.Outcome) *RunSummary {
	summary := &RunSummary{
		RunID:       runID,
		GeneratedAt: time.Now(),
		Outcomes:    outcomes,
	}
	if env != nil {
		summary.EnvironmentID = env.EnvironmentID
		summary.EnvironmentName = env.DisplayName
	}
	return summary
}

// Counts returns how many outcomes succeeded and how many need manual follow-up.
func (s *RunSummary) Counts() (succeeded, manualRequired int) {
	for _, outcome := range s.Outcomes {
		if outcome.Succeeded() {
			succeeded++
		} else {
			manualRequired++
		}
	}
	return succeeded, manualRequired
}

// Render writes the human-readable summary table followed by the manual steps
// of every outcome that needs follow-up.
func (s *RunSummary) Render(w io.Writer) error {
	if len(s.Outcomes) == 0 {
		_, err := fmt.Fprintln(w, "No agents found in the environment; nothing to configure.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithHeader([]string{"Agent", "Action", "Status", "Detail"}),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(4, tw.AlignLeft)),
	)

	for _, outcome := range s.Outcomes {
		if err := table.Append([]string{
			outcome.ResourceName,
			string(outcome.Action),
			statusCell(outcome),
			detailCell(outcome),
		}); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	for _, outcome := range s.Outcomes {
		if outcome.Succeeded() || len(outcome.ManualSteps) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\nManual steps for %q (%s):\n", outcome.ResourceName, outcome.Action); err != nil {
			return err
		}
		for i, step := range outcome.ManualSteps {
			if _, err := fmt.Fprintf(w, "  %d. %s\n", i+1, step); err != nil {
				return err
			}
		}
	}

	succeeded, manual := s.Counts()
	_, err := fmt.Fprintf(w, "\n%d succeeded, %d require manual follow-up (run %s)\n", succeeded, manual, s.RunID)
	return err
}

// RenderJSON writes the summary as indented JSON for machine consumers.
func (s *RunSummary) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func statusCell(outcome *actions.Outcome) string {
	if outcome.Succeeded() {
		return "✅ Succeeded"
	}
	return "⚠️ Manual required"
}

func detailCell(outcome *actions.Outcome) string {
	if outcome.Succeeded() {
		return fmt.Sprintf("after %d attempt(s)", len(outcome.Attempts))
	}
	return outcome.Reason
}

// ExitCode maps a run-level error to the process exit status. Only fatal
// conditions — nothing could proceed at all — fail the pipeline step.
func ExitCode(runErr error) int {
	if runErr == nil {
		return 0
	}
	if errors.IsFatal(runErr) {
		return 1
	}
	return 0
}
