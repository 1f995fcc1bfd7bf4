package actions

import (
	"time"
)

// Status is the terminal state of one (resource, action) pair. Once recorded,
// no further attempts are made for that pair in the same run.
type Status string

const (
	// StatusSucceeded means one of the candidate endpoints accepted the action.
	StatusSucceeded Status = "succeeded"

	// StatusFailedManualRequired means every candidate failed, or the
	// action is inherently manual; an operator has to finish it.
	StatusFailedManualRequired Status = "failed-manual-required"
)

// Attempt is one append-only entry in the attempt log of a (resource, action)
// pair. Attempts are ordered by the fixed candidate-endpoint priority list.
type Attempt struct {
	// Endpoint is the candidate endpoint that was tried.
	Endpoint string

	// StatusClass is the HTTP status class observed ("2xx", "4xx", "none"
	// when the request never got a response).
	StatusClass string

	// ErrorKind classifies the failure; empty on success.
	ErrorKind ErrorKind

	// Timestamp is when the attempt completed.
	Timestamp time.Time
}

// Outcome is the terminal result of executing one action against one resource.
type Outcome struct {
	// ResourceID identifies the agent the action ran against.
	ResourceID string

	// ResourceName is the agent's display name, carried for reporting.
	ResourceName string

	// Action is the action that was executed.
	Action Kind

	// Status is the terminal status.
	Status Status

	// Attempts is the ordered, append-only attempt log.
	Attempts []Attempt

	// Reason summarizes why the action needs manual follow-up; empty on success.
	Reason string

	// ManualSteps lists the concrete manual follow-up, populated for Share
	// and for exhausted actions.
	ManualSteps []string
}

// Succeeded reports whether the outcome is terminal success.
func (o *Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}
