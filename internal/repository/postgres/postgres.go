package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityweather/backend/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS weather_lookups (
		id          TEXT PRIMARY KEY,
		request_id  TEXT NOT NULL DEFAULT '',
		city        TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		latency_ms  BIGINT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS weather_lookups_created_at_idx ON weather_lookups (created_at DESC);
`

// PostgresRepository implements domain.LookupRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the lookup table when missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	return nil
}

// SaveLookup persists a lookup record to PostgreSQL
func (r *PostgresRepository) SaveLookup(ctx context.Context, rec domain.LookupRecord) error {
	query := `
		INSERT INTO weather_lookups (
			id, request_id, city, outcome, status_code, latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.RequestID, rec.City, rec.Outcome, rec.StatusCode, rec.LatencyMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save lookup: %w", err)
	}

	return nil
}

// GetRecentLookups retrieves lookups from PostgreSQL, newest first
func (r *PostgresRepository) GetRecentLookups(ctx context.Context, from, to time.Time) ([]domain.LookupRecord, error) {
	query := `
		SELECT id, request_id, city, outcome, status_code, latency_ms, created_at
		FROM weather_lookups
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query lookups: %w", err)
	}
	defer rows.Close()

	results := make([]domain.LookupRecord, 0)
	for rows.Next() {
		var rec domain.LookupRecord
		err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.City, &rec.Outcome, &rec.StatusCode, &rec.LatencyMS, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan lookup row: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read lookup rows: %w", err)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
