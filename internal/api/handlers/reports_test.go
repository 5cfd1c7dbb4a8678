package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohyunlee/proplens/internal/api/handlers"
	"github.com/dohyunlee/proplens/internal/store"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

type mockStore struct {
	summaries []store.ReportSummary
	total     int
	report    *domain.Report
	gotQuery  *store.ReportQuery
	err       error
}

func (m *mockStore) SaveReport(_ context.Context, _ string, _ *domain.Report) error {
	return m.err
}

func (m *mockStore) GetReport(_ context.Context, _ string) (*domain.Report, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockStore) ListReports(_ context.Context, q *store.ReportQuery) ([]store.ReportSummary, int, error) {
	m.gotQuery = q
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.summaries, m.total, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Ping(_ context.Context) error    { return nil }

func sampleSummaries() []store.ReportSummary {
	now := time.Now().Truncate(time.Second)
	return []store.ReportSummary{
		{ID: "report-2", Profile: "mapo-jeonse", CreatedAt: now, TotalCount: 5, PassedCount: 2},
		{ID: "report-1", Profile: "adhoc", CreatedAt: now.Add(-time.Hour), TotalCount: 3, PassedCount: 1},
	}
}

func TestListReports_Success(t *testing.T) {
	t.Parallel()

	s := &mockStore{summaries: sampleSummaries(), total: 2}
	h := handlers.NewReportsHandler(s)

	_, api := humatest.New(t)
	handlers.RegisterReportRoutes(api, h)

	resp := api.Get("/api/v1/reports")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "report-2")
	assert.Contains(t, resp.Body.String(), "mapo-jeonse")
	assert.Contains(t, resp.Body.String(), `"total":2`)

	require.NotNil(t, s.gotQuery)
	assert.Equal(t, 20, s.gotQuery.Limit)
}

func TestListReports_ProfileFilter(t *testing.T) {
	t.Parallel()

	s := &mockStore{summaries: sampleSummaries()[:1], total: 1}
	h := handlers.NewReportsHandler(s)

	_, api := humatest.New(t)
	handlers.RegisterReportRoutes(api, h)

	resp := api.Get("/api/v1/reports?profile=mapo-jeonse&limit=5&offset=10")
	require.Equal(t, http.StatusOK, resp.Code)

	require.NotNil(t, s.gotQuery)
	assert.Equal(t, "mapo-jeonse", s.gotQuery.Profile)
	assert.Equal(t, 5, s.gotQuery.Limit)
	assert.Equal(t, 10, s.gotQuery.Offset)
}

func TestListReports_Error(t *testing.T) {
	t.Parallel()

	h := handlers.NewReportsHandler(&mockStore{err: errors.New("db error")})

	_, api := humatest.New(t)
	handlers.RegisterReportRoutes(api, h)

	resp := api.Get("/api/v1/reports")
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "report query failed")
}

func TestGetReport_Success(t *testing.T) {
	t.Parallel()

	report := &domain.Report{ID: "report-1", TotalCount: 3, PassedCount: 1}
	h := handlers.NewReportsHandler(&mockStore{report: report})

	_, api := humatest.New(t)
	handlers.RegisterReportRoutes(api, h)

	resp := api.Get("/api/v1/reports/report-1")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"id":"report-1"`)
}

func TestGetReport_NotFound(t *testing.T) {
	t.Parallel()

	h := handlers.NewReportsHandler(&mockStore{err: store.ErrNotFound})

	_, api := humatest.New(t)
	handlers.RegisterReportRoutes(api, h)

	resp := api.Get("/api/v1/reports/missing")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "report not found")
}

func TestGetReport_StoreError(t *testing.T) {
	t.Parallel()

	h := handlers.NewReportsHandler(&mockStore{err: errors.New("db error")})

	_, api := humatest.New(t)
	handlers.RegisterReportRoutes(api, h)

	resp := api.Get("/api/v1/reports/report-1")
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}
