package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"portal_leads/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_leads (
		lead_id TEXT PRIMARY KEY,
		platform TEXT,
		lead_type TEXT,
		deal_id INTEGER,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS ingest_runs (
		id INTEGER PRIMARY KEY,
		run_key TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		leads_found INTEGER,
		deals_new INTEGER,
		duplicates INTEGER,
		recordings INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS ingest_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		source TEXT,
		lead_type TEXT,
		operation TEXT,
		lead_id TEXT,
		deal_id INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_leads_platform ON processed_leads(platform, lead_type);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON ingest_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON ingest_runs(status, started_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before ingest_logs carried lead columns.
	if err := s.addMissingColumns("ingest_logs", logColumns); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_logs_lead ON ingest_logs(lead_id)`)
	return err
}

var logColumns = [][2]string{
	{"lead_type", "TEXT"},
	{"operation", "TEXT"},
	{"lead_id", "TEXT"},
	{"deal_id", "INTEGER"},
}

func (s *SQLiteStore) addMissingColumns(table string, columns [][2]string) error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	have := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		have[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range columns {
		if have[c[0]] {
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, c[0], c[1])); err != nil {
			return fmt.Errorf("add %s.%s: %w", table, c[0], err)
		}
	}
	return nil
}

// =============================================================================
// Processed leads
// =============================================================================

func (s *SQLiteStore) Load(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT lead_id FROM processed_leads`)
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

func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO processed_leads (lead_id, platform, lead_type, deal_id, processed_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.LeadID, string(e.Platform), string(e.LeadType), nullInt(e.DealID), e.ProcessedAt)
	return err
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// =============================================================================
// Runs
// =============================================================================

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.IngestRun) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (run_key, started_at, status, leads_found, deals_new,
			duplicates, recordings, errors_count)
		VALUES (?, ?, ?, 0, 0, 0, 0, 0)`,
		run.RunKey, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.IngestRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_runs SET finished_at = ?, status = ?, leads_found = ?, deals_new = ?,
			duplicates = ?, recordings = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.LeadsFound, run.DealsNew,
		run.Duplicates, run.Recordings, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) Log(ctx context.Context, entry *models.IngestLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_logs (run_id, timestamp, level, message, source, lead_type, operation, lead_id, deal_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Timestamp, string(entry.Level), entry.Message, entry.Source,
		nullString(string(entry.LeadType)), string(entry.Operation), nullString(entry.LeadID), nullInt(entry.DealID))
	return err
}

func (s *SQLiteStore) LastRun(ctx context.Context) (*models.IngestRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, run_key, started_at, finished_at, status, leads_found, deals_new,
			duplicates, recordings, errors_count
		FROM ingest_runs ORDER BY id DESC LIMIT 1`)

	var run models.IngestRun
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.RunKey, &run.StartedAt, &finished, &run.Status, &run.LeadsFound,
		&run.DealsNew, &run.Duplicates, &run.Recordings, &run.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// RunLogs returns the log lines of a run, oldest first.
func (s *SQLiteStore) RunLogs(ctx context.Context, runID int64) ([]models.IngestLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, timestamp, level, message, source,
			COALESCE(lead_type, ''), COALESCE(operation, ''), COALESCE(lead_id, ''), COALESCE(deal_id, 0)
		FROM ingest_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.IngestLog
	for rows.Next() {
		var l models.IngestLog
		var rid sql.NullInt64
		if err := rows.Scan(&l.ID, &rid, &l.Timestamp, &l.Level, &l.Message, &l.Source,
			&l.LeadType, &l.Operation, &l.LeadID, &l.DealID); err != nil {
			return nil, err
		}
		if rid.Valid {
			l.RunID = &rid.Int64
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
