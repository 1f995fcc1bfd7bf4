// Package chain implements the ordered-fallback control flow shared by the
// authentication, environment resolution, and discovery orchestrators: try
// each step in priority order and stop at the first success.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/botsmith-dev/botsmith/pkg/logger"
)

// Step is one strategy in an ordered fallback chain.
type Step[T any] struct {
	// Name identifies the step in logs and aggregated errors.
	Name string

	// Run executes the step. A nil error means the chain stops here.
	Run func(ctx context.Context) (T, error)
}

// Result carries the value produced by the winning step along with its name,
// so callers can report which strategy succeeded.
type Result[T any] struct {
	Value T
	Step  string
}

// ErrExhausted is returned (wrapped) by First when every step failed.
var ErrExhausted = errors.New("all steps failed")

// First runs the steps in order and returns the result of the first one that
// succeeds. When every step fails, the returned error wraps ErrExhausted and
// joins each step's failure so nothing is lost for diagnosis. Context
// cancellation stops the chain between steps.
func First[T any](ctx context.Context, steps []Step[T]) (*Result[T], error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps configured", ErrExhausted)
	}

	var failures []error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, err := step.Run(ctx)
		if err == nil {
			logger.Debugf("step %q succeeded", step.Name)
			return &Result[T]{Value: value, Step: step.Name}, nil
		}

		logger.Debugf("step %q failed: %v", step.Name, err)
		failures = append(failures, fmt.Errorf("%s: %w", step.Name, err))
	}

	return nil, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(failures...))
}
