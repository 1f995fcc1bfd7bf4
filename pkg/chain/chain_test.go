package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(name string, value string, err error) Step[string] {
	return Step[string]{
		Name: name,
		Run: func(_ context.Context) (string, error) {
			return value, err
		},
	}
}

func TestFirst_StopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	thirdRan := false
	steps := []Step[string]{
		step("primary", "", errors.New("unavailable")),
		step("alternate", "winner", nil),
		{
			Name: "fallback",
			Run: func(_ context.Context) (string, error) {
				thirdRan = true
				return "loser", nil
			},
		},
	}

	res, err := First(context.Background(), steps)
	require.NoError(t, err)
	assert.Equal(t, "winner", res.Value)
	assert.Equal(t, "alternate", res.Step)
	assert.False(t, thirdRan, "later steps must not run after a success")
}

func TestFirst_ExhaustionJoinsAllFailures(t *testing.T) {
	t.Parallel()

	steps := []Step[string]{
		step("primary", "", errors.New("boom one")),
		step("alternate", "", errors.New("boom two")),
	}

	_, err := First(context.Background(), steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Contains(t, err.Error(), "primary: boom one")
	assert.Contains(t, err.Error(), "alternate: boom two")
}

func TestFirst_NoSteps(t *testing.T) {
	t.Parallel()

	_, err := First[string](context.Background(), nil)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestFirst_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	steps := []Step[string]{
		{
			Name: "primary",
			Run: func(_ context.Context) (string, error) {
				cancel()
				return "", errors.New("unavailable")
			},
		},
		step("alternate", "should not run", nil),
	}

	_, err := First(ctx, steps)
	assert.ErrorIs(t, err, context.Canceled)
}
