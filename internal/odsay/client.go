// Package odsay looks up public-transit commute routes via the ODsay API.
// Free tier is 1,000 calls a day, so callers should keep lookups behind the
// pipeline's FAIL short-circuit.
package odsay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dohyunlee/proplens/internal/metrics"
	"github.com/dohyunlee/proplens/internal/pipeline"
)

const defaultBaseURL = "https://api.odsay.com/v1/api"

// Client implements the pipeline's commute lookup against the ODsay
// searchPubTransPathT endpoint.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the default API endpoint. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates an ODsay client.
func NewClient(apiKey string, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With("source", "odsay"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transitResponse struct {
	Error  json.RawMessage `json:"error"`
	Result *transitResult  `json:"result"`
}

type transitResult struct {
	Path []transitPath `json:"path"`
}

type transitPath struct {
	PathType int         `json:"pathType"`
	Info     transitInfo `json:"info"`
}

type transitInfo struct {
	TotalTime          int `json:"totalTime"`
	TotalWalk          int `json:"totalWalk"`
	Payment            int `json:"payment"`
	BusTransitCount    int `json:"busTransitCount"`
	SubwayTransitCount int `json:"subwayTransitCount"`
}

// Route resolves the recommended transit route from a coordinate to a named
// station. An unknown destination or an empty route set yields (nil, nil).
func (c *Client) Route(ctx context.Context, lat, lng float64, destination string) (*pipeline.CommuteRoute, error) {
	dest, ok := StationCoords(destination)
	if !ok {
		c.log.Warn("unknown commute destination", "destination", destination)
		return nil, nil
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("SX", formatCoord(lng))
	params.Set("SY", formatCoord(lat))
	params.Set("EX", formatCoord(dest.Lng))
	params.Set("EY", formatCoord(dest.Lat))
	params.Set("SearchType", "0")

	metrics.SourceRequestsTotal.WithLabelValues("odsay").Inc()

	u := c.baseURL + "/searchPubTransPathT?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("odsay: creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("odsay").Inc()
		return nil, fmt.Errorf("odsay: transit lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("odsay").Inc()
		return nil, fmt.Errorf("odsay: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.SourceErrorsTotal.WithLabelValues("odsay").Inc()
		return nil, fmt.Errorf("odsay: HTTP %d", resp.StatusCode)
	}

	var tr transitResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("odsay").Inc()
		return nil, fmt.Errorf("odsay: parsing response: %w", err)
	}
	if len(tr.Error) > 0 {
		metrics.SourceErrorsTotal.WithLabelValues("odsay").Inc()
		return nil, fmt.Errorf("odsay: API error: %s", tr.Error)
	}
	if tr.Result == nil || len(tr.Result.Path) == 0 {
		return nil, nil
	}

	// First path is the recommended one.
	best := tr.Result.Path[0]
	return &pipeline.CommuteRoute{
		Minutes:     best.Info.TotalTime,
		PathType:    pathTypeName(best.PathType),
		TransferCnt: best.Info.BusTransitCount + best.Info.SubwayTransitCount,
	}, nil
}

func pathTypeName(t int) string {
	switch t {
	case 1:
		return "지하철"
	case 2:
		return "버스"
	case 3:
		return "지하철+버스"
	default:
		return "기타"
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
