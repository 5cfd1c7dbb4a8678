// Package store persists finished analysis reports. The pipeline never
// depends on it; serve mode wires it behind the Store interface for the API
// surface and the scheduler.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

// ErrNotFound is returned when a report id does not exist.
var ErrNotFound = errors.New("store: not found")

// ReportSummary is the list-view projection of a stored report.
type ReportSummary struct {
	ID          string    `json:"id"`
	Profile     string    `json:"profile,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	TotalCount  int       `json:"total_count"`
	PassedCount int       `json:"passed_count"`
}

// ReportQuery defines optional filters for report listing.
type ReportQuery struct {
	Profile string
	Limit   int // default 20
	Offset  int
}

// Store defines report persistence. SaveReport also satisfies the
// scheduler's report-saver contract.
type Store interface {
	SaveReport(ctx context.Context, profile string, r *domain.Report) error
	GetReport(ctx context.Context, id string) (*domain.Report, error)
	ListReports(ctx context.Context, q *ReportQuery) ([]ReportSummary, int, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}
