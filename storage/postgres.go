package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"portal_leads/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS processed_leads (
			lead_id TEXT PRIMARY KEY,
			platform TEXT,
			lead_type TEXT,
			deal_id BIGINT,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS ingest_runs (
			id BIGSERIAL PRIMARY KEY,
			run_key TEXT,
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			status TEXT,
			leads_found INTEGER DEFAULT 0,
			deals_new INTEGER DEFAULT 0,
			duplicates INTEGER DEFAULT 0,
			recordings INTEGER DEFAULT 0,
			errors_count INTEGER DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS ingest_logs (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT,
			timestamp TIMESTAMPTZ,
			level TEXT,
			message TEXT,
			source TEXT,
			lead_type TEXT,
			operation TEXT,
			lead_id TEXT,
			deal_id INTEGER
		);

		ALTER TABLE ingest_logs
			ADD COLUMN IF NOT EXISTS lead_type TEXT,
			ADD COLUMN IF NOT EXISTS operation TEXT,
			ADD COLUMN IF NOT EXISTS lead_id TEXT,
			ADD COLUMN IF NOT EXISTS deal_id INTEGER;

		CREATE INDEX IF NOT EXISTS idx_logs_lead ON ingest_logs(lead_id);`)
	return err
}

// =============================================================================
// Processed leads
// =============================================================================

func (s *PostgresStore) Load(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT lead_id FROM processed_leads`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	var dealID *int64
	if e.DealID > 0 {
		v := int64(e.DealID)
		dealID = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_leads (lead_id, platform, lead_type, deal_id, processed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lead_id) DO NOTHING`,
		e.LeadID, string(e.Platform), string(e.LeadType), dealID, e.ProcessedAt)
	return err
}

// =============================================================================
// Runs
// =============================================================================

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.IngestRun) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO ingest_runs (run_key, started_at, status)
		VALUES ($1, $2, $3)
		RETURNING id`,
		run.RunKey, run.StartedAt, string(run.Status),
	).Scan(&id)
	return id, err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.IngestRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs SET
			finished_at = $2, status = $3, leads_found = $4, deals_new = $5,
			duplicates = $6, recordings = $7, errors_count = $8
		WHERE id = $1`,
		run.ID, run.FinishedAt, string(run.Status), run.LeadsFound, run.DealsNew,
		run.Duplicates, run.Recordings, run.ErrorsCount)
	return err
}

func (s *PostgresStore) Log(ctx context.Context, entry *models.IngestLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	var dealID *int64
	if entry.DealID > 0 {
		v := int64(entry.DealID)
		dealID = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_logs (run_id, timestamp, level, message, source, lead_type, operation, lead_id, deal_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9)`,
		entry.RunID, entry.Timestamp, string(entry.Level), entry.Message, entry.Source,
		string(entry.LeadType), string(entry.Operation), entry.LeadID, dealID)
	return err
}

func (s *PostgresStore) LastRun(ctx context.Context) (*models.IngestRun, error) {
	var run models.IngestRun
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT id, run_key, started_at, finished_at, status, leads_found, deals_new,
			duplicates, recordings, errors_count
		FROM ingest_runs ORDER BY id DESC LIMIT 1`,
	).Scan(&run.ID, &run.RunKey, &run.StartedAt, &run.FinishedAt, &status, &run.LeadsFound,
		&run.DealsNew, &run.Duplicates, &run.Recordings, &run.ErrorsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	return &run, nil
}
