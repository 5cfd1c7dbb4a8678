package pipeline

import "fmt"

// ValidationError reports malformed input or output at a stage boundary.
// It is fatal for the unit being processed, never for the whole batch.
type ValidationError struct {
	Stage string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid data: %v", e.Stage, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
