package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAgentRun_Success(t *testing.T) {
	t.Parallel()

	agent := NewAgent("double", quietLogger(),
		func(_ context.Context, in int) (int, error) { return in * 2, nil })

	out, err := agent.Run(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, "double", agent.Name())
}

func TestAgentRun_InputValidation(t *testing.T) {
	t.Parallel()

	agent := NewAgent("positive", quietLogger(),
		func(_ context.Context, in int) (int, error) { return in, nil },
		WithInputValidator[int, int](func(in int) error {
			if in < 0 {
				return errors.New("negative input")
			}
			return nil
		}))

	_, err := agent.Run(context.Background(), -1)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "positive", verr.Stage)
	assert.Contains(t, verr.Error(), "negative input")
}

func TestAgentRun_OutputValidation(t *testing.T) {
	t.Parallel()

	agent := NewAgent("empty", quietLogger(),
		func(_ context.Context, _ int) (string, error) { return "", nil },
		WithOutputValidator[int, string](func(out string) error {
			if out == "" {
				return errors.New("empty output")
			}
			return nil
		}))

	_, err := agent.Run(context.Background(), 1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAgentRun_ErrorIsWrappedWithStageName(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	agent := NewAgent("failing", quietLogger(),
		func(_ context.Context, _ int) (int, error) { return 0, boom })

	_, err := agent.Run(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
}

func TestAgentRun_PanicRecovered(t *testing.T) {
	t.Parallel()

	agent := NewAgent("panicky", quietLogger(),
		func(_ context.Context, _ int) (int, error) { panic("nope") })

	_, err := agent.Run(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Contains(t, err.Error(), "nope")
}
