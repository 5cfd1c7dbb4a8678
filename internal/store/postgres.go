package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool. Reports are stored whole as
// JSONB next to the columns the list view needs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

const querySaveReport = `
	INSERT INTO reports (id, profile, created_at, total_count, passed_count, payload)
	VALUES (@id, @profile, @created_at, @total_count, @passed_count, @payload)
`

// SaveReport stores one finished report.
func (s *PostgresStore) SaveReport(ctx context.Context, profile string, r *domain.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	args := pgx.NamedArgs{
		"id":           r.ID,
		"profile":      profile,
		"created_at":   r.CreatedAt,
		"total_count":  r.TotalCount,
		"passed_count": r.PassedCount,
		"payload":      payload,
	}
	if _, err := s.pool.Exec(ctx, querySaveReport, args); err != nil {
		return fmt.Errorf("inserting report %s: %w", r.ID, err)
	}
	return nil
}

// GetReport retrieves one report with its full payload.
func (s *PostgresStore) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		"SELECT payload FROM reports WHERE id = $1", id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying report %s: %w", id, err)
	}

	r := &domain.Report{}
	if err := json.Unmarshal(payload, r); err != nil {
		return nil, fmt.Errorf("unmarshaling report %s: %w", id, err)
	}
	return r, nil
}

const queryListReports = `
	SELECT id, profile, created_at, total_count, passed_count
	FROM reports
	WHERE ($1 = '' OR profile = $1)
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
`

// ListReports returns report summaries, newest first, and the total count.
func (s *PostgresStore) ListReports(ctx context.Context, q *ReportQuery) ([]ReportSummary, int, error) {
	if q == nil {
		q = &ReportQuery{}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		"SELECT count(*) FROM reports WHERE ($1 = '' OR profile = $1)", q.Profile,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting reports: %w", err)
	}

	rows, err := s.pool.Query(ctx, queryListReports, q.Profile, limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var summaries []ReportSummary
	for rows.Next() {
		var rs ReportSummary
		if err := rows.Scan(&rs.ID, &rs.Profile, &rs.CreatedAt, &rs.TotalCount, &rs.PassedCount); err != nil {
			return nil, 0, fmt.Errorf("scanning report row: %w", err)
		}
		summaries = append(summaries, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating reports: %w", err)
	}

	return summaries, total, nil
}
