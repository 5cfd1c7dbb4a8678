// Package llm provides optional LLM-backed post-processing for reports,
// abstracted behind interfaces for testability. Nothing in the evaluation
// pipeline depends on it; a missing or failing backend degrades to the
// rule-based output.
package llm

import "context"

// GenerateRequest defines the input for one completion call.
type GenerateRequest struct {
	Prompt      string
	SystemMsg   string
	Temperature float64
	MaxTokens   int
}

// GenerateResponse holds the completion and the model that produced it.
type GenerateResponse struct {
	Content string
	Model   string
}

// Backend defines the interface for LLM text generation.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Name() string
}
