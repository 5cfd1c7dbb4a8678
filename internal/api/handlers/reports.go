package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dohyunlee/proplens/internal/store"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

// ReportsHandler handles stored report query endpoints.
type ReportsHandler struct {
	store store.Store
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(s store.Store) *ReportsHandler {
	return &ReportsHandler{store: s}
}

// ListReportsInput is the input for listing stored reports.
type ListReportsInput struct {
	Profile string `query:"profile" doc:"Filter by profile name"`
	Limit   int    `query:"limit"   doc:"Number of results (default 20)" minimum:"1" maximum:"200"`
	Offset  int    `query:"offset"  doc:"Pagination offset"              minimum:"0"`
}

// ListReportsOutput is the response for listing stored reports.
type ListReportsOutput struct {
	Body struct {
		Reports []store.ReportSummary `json:"reports"`
		Total   int                   `json:"total"`
		Limit   int                   `json:"limit"`
		Offset  int                   `json:"offset"`
	}
}

// GetReportInput is the input for getting a single report.
type GetReportInput struct {
	ID string `path:"id" doc:"Report UUID"`
}

// GetReportOutput is the response for getting a single report.
type GetReportOutput struct {
	Body domain.Report
}

// ListReports returns stored report summaries, newest first.
func (h *ReportsHandler) ListReports(
	ctx context.Context,
	input *ListReportsInput,
) (*ListReportsOutput, error) {
	q := &store.ReportQuery{
		Profile: input.Profile,
		Limit:   input.Limit,
		Offset:  input.Offset,
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	summaries, total, err := h.store.ListReports(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("report query failed: " + err.Error())
	}

	resp := &ListReportsOutput{}
	resp.Body.Reports = summaries
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset

	return resp, nil
}

// GetReport returns a single stored report by ID.
func (h *ReportsHandler) GetReport(
	ctx context.Context,
	input *GetReportInput,
) (*GetReportOutput, error) {
	report, err := h.store.GetReport(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("report not found")
		}
		return nil, huma.Error500InternalServerError("report query failed: " + err.Error())
	}

	return &GetReportOutput{Body: *report}, nil
}

// RegisterReportRoutes registers report endpoints with the Huma API.
func RegisterReportRoutes(api huma.API, h *ReportsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-reports",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports",
		Summary:     "List stored reports",
		Description: "Returns stored report summaries, newest first, with optional profile filter and pagination.",
		Tags:        []string{"reports"},
	}, h.ListReports)

	huma.Register(api, huma.Operation{
		OperationID: "get-report",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/{id}",
		Summary:     "Get a report by ID",
		Description: "Returns a single stored report by its UUID.",
		Tags:        []string{"reports"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetReport)
}
