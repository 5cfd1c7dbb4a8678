package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Agent is the uniform stage contract: validate the input, process it,
// validate the output. Stages are stateless; collaborators are captured by
// the process function. The zero validators accept everything.
type Agent[In, Out any] struct {
	name           string
	log            *slog.Logger
	validateInput  func(In) error
	validateOutput func(Out) error
	process        func(context.Context, In) (Out, error)
}

// AgentOption configures an Agent.
type AgentOption[In, Out any] func(*Agent[In, Out])

// WithInputValidator installs an input validator. A validation failure is
// returned as a ValidationError without running the stage.
func WithInputValidator[In, Out any](v func(In) error) AgentOption[In, Out] {
	return func(a *Agent[In, Out]) { a.validateInput = v }
}

// WithOutputValidator installs an output validator.
func WithOutputValidator[In, Out any](v func(Out) error) AgentOption[In, Out] {
	return func(a *Agent[In, Out]) { a.validateOutput = v }
}

// NewAgent creates a named stage around a process function.
func NewAgent[In, Out any](
	name string,
	log *slog.Logger,
	process func(context.Context, In) (Out, error),
	opts ...AgentOption[In, Out],
) *Agent[In, Out] {
	a := &Agent[In, Out]{
		name:    name,
		log:     log.With("agent", name),
		process: process,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the stage name.
func (a *Agent[In, Out]) Name() string { return a.name }

// Run executes the stage. A panic in the process function is recovered and
// returned as an error so one bad unit cannot take down a batch.
func (a *Agent[In, Out]) Run(ctx context.Context, in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", a.name, r)
			a.log.Error("stage panicked", "panic", r)
		}
	}()

	if a.validateInput != nil {
		if verr := a.validateInput(in); verr != nil {
			return out, &ValidationError{Stage: a.name, Err: verr}
		}
	}

	out, err = a.process(ctx, in)
	if err != nil {
		a.log.Error("stage failed", "error", err)
		return out, fmt.Errorf("%s: %w", a.name, err)
	}

	if a.validateOutput != nil {
		if verr := a.validateOutput(out); verr != nil {
			return out, &ValidationError{Stage: a.name, Err: verr}
		}
	}

	return out, nil
}
