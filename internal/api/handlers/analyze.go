package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dohyunlee/proplens/internal/pipeline"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

// Analyzer runs the full evaluation pipeline for a set of criteria.
type Analyzer interface {
	Run(ctx context.Context, criteria *domain.SearchCriteria) (domain.Report, error)
}

// CriteriaValidator rejects malformed criteria before a run is started.
type CriteriaValidator interface {
	ValidateCriteria(criteria *domain.SearchCriteria) error
}

// AnalyzeHandler handles ad-hoc analysis requests.
type AnalyzeHandler struct {
	analyzer  Analyzer
	validator CriteriaValidator
	saver     pipeline.ReportSaver // nil when persistence is disabled
	log       *slog.Logger
}

// NewAnalyzeHandler creates a new AnalyzeHandler. saver may be nil.
func NewAnalyzeHandler(
	analyzer Analyzer,
	validator CriteriaValidator,
	saver pipeline.ReportSaver,
	log *slog.Logger,
) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, validator: validator, saver: saver, log: log}
}

// AnalyzeInput is the request body for an ad-hoc analysis run.
type AnalyzeInput struct {
	Body domain.SearchCriteria
}

// AnalyzeOutput is the response body for an ad-hoc analysis run.
type AnalyzeOutput struct {
	Body domain.Report
}

// adhocProfile labels reports persisted from API-triggered runs.
const adhocProfile = "adhoc"

// Analyze runs the evaluation pipeline synchronously and returns the report.
func (h *AnalyzeHandler) Analyze(ctx context.Context, input *AnalyzeInput) (*AnalyzeOutput, error) {
	if err := h.validator.ValidateCriteria(&input.Body); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid criteria: " + err.Error())
	}

	report, err := h.analyzer.Run(ctx, &input.Body)
	if err != nil {
		return nil, huma.Error500InternalServerError("analysis failed: " + err.Error())
	}

	if h.saver != nil {
		if err := h.saver.SaveReport(ctx, adhocProfile, &report); err != nil {
			h.log.Warn("saving report failed", "report_id", report.ID, "error", err)
		}
	}

	return &AnalyzeOutput{Body: report}, nil
}

// RegisterAnalyzeRoutes registers the analysis endpoint with the Huma API.
func RegisterAnalyzeRoutes(api huma.API, h *AnalyzeHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "analyze",
		Method:      http.MethodPost,
		Path:        "/api/v1/analyze",
		Summary:     "Run an ad-hoc analysis",
		Description: "Runs the full evaluation pipeline for the given search criteria: " +
			"search listings, enrich with transaction prices, filter, score, assess risk, " +
			"and return a ranked report.",
		Tags:   []string{"analyze"},
		Errors: []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.Analyze)
}
