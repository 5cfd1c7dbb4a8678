package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaTimeout = 30 * time.Second

// OllamaBackend generates text through a local Ollama server. Streaming is
// disabled: the polisher wants exactly one short completion per call.
type OllamaBackend struct {
	endpoint string
	model    string
	client   *http.Client
}

// OllamaOption configures the OllamaBackend.
type OllamaOption func(*OllamaBackend)

// WithOllamaHTTPClient overrides the default HTTP client.
func WithOllamaHTTPClient(hc *http.Client) OllamaOption {
	return func(b *OllamaBackend) {
		b.client = hc
	}
}

// NewOllamaBackend creates a backend for the given Ollama endpoint and model.
func NewOllamaBackend(endpoint, model string, opts ...OllamaOption) *OllamaBackend {
	b := &OllamaBackend{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: defaultOllamaTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name identifies the backend in polisher error messages.
func (*OllamaBackend) Name() string {
	return "ollama"
}

// generatePayload is the POST /api/generate body. num_predict caps the
// completion length; options carries sampling parameters.
type generatePayload struct {
	Model      string             `json:"model"`
	Prompt     string             `json:"prompt"`
	System     string             `json:"system,omitempty"`
	Stream     bool               `json:"stream"`
	NumPredict int                `json:"num_predict,omitempty"`
	Options    map[string]float64 `json:"options,omitempty"`
}

type generateResult struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// Generate issues one non-streaming completion request.
func (b *OllamaBackend) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	payload := generatePayload{
		Model:      b.model,
		Prompt:     req.Prompt,
		System:     req.SystemMsg,
		NumPredict: req.MaxTokens,
	}
	if req.Temperature > 0 {
		payload.Options = map[string]float64{"temperature": req.Temperature}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("llm: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("llm: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("llm: calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return GenerateResponse{}, fmt.Errorf("llm: ollama HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result generateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return GenerateResponse{}, fmt.Errorf("llm: decoding response: %w", err)
	}

	return GenerateResponse{
		Content: result.Response,
		Model:   result.Model,
	}, nil
}
