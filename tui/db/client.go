package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Client reads the daemon's run and lead tables. It is read-only; runs are
// triggered through the admin API.
type Client struct {
	db       *sql.DB
	postgres bool
	ctx      context.Context
}

type Summary struct {
	ProcessedLeads int
	WithDeal       int
	Runs           int
	FailedRuns     int
	LastRunAt      *time.Time
	LastRunStatus  *string
}

// ChannelCount is the number of processed leads per platform and lead type.
type ChannelCount struct {
	Platform string
	LeadType string
	Count    int
}

type IngestRun struct {
	ID          int64
	RunKey      string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      string
	LeadsFound  int
	DealsNew    int
	Duplicates  int
	Recordings  int
	ErrorsCount int
}

type Lead struct {
	LeadID      string
	Platform    string
	LeadType    string
	DealID      *int64
	ProcessedAt *time.Time
}

type IngestLog struct {
	ID        int64
	RunID     *int64
	Timestamp time.Time
	Level     string
	Message   string
	Source    string
	Operation string
	LeadID    string
}

// New opens the run store. A postgres:// URL selects Postgres, anything else
// is taken as a SQLite path.
func New(dsn string) (*Client, error) {
	driver := "sqlite"
	postgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	if postgres {
		driver = "pgx"
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return &Client{db: conn, postgres: postgres, ctx: context.Background()}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// rebind turns ? placeholders into $n for Postgres.
func (c *Client) rebind(query string) string {
	if !c.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c *Client) GetSummary() (Summary, error) {
	var s Summary
	err := c.db.QueryRowContext(c.ctx, `
		SELECT COUNT(*), COUNT(deal_id) FROM processed_leads
	`).Scan(&s.ProcessedLeads, &s.WithDeal)
	if err != nil {
		return s, err
	}

	err = c.db.QueryRowContext(c.ctx, `
		SELECT COUNT(*), COUNT(CASE WHEN status = 'failed' THEN 1 END) FROM ingest_runs
	`).Scan(&s.Runs, &s.FailedRuns)
	if err != nil {
		return s, err
	}

	var started sql.NullTime
	var status sql.NullString
	err = c.db.QueryRowContext(c.ctx, `
		SELECT started_at, status FROM ingest_runs ORDER BY started_at DESC LIMIT 1
	`).Scan(&started, &status)
	if err != nil && err != sql.ErrNoRows {
		return s, err
	}
	if started.Valid {
		s.LastRunAt = &started.Time
	}
	if status.Valid {
		s.LastRunStatus = &status.String
	}
	return s, nil
}

func (c *Client) GetChannelCounts() ([]ChannelCount, error) {
	rows, err := c.db.QueryContext(c.ctx, `
		SELECT COALESCE(platform, ''), COALESCE(lead_type, ''), COUNT(*)
		FROM processed_leads
		GROUP BY platform, lead_type
		ORDER BY platform, lead_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChannelCount
	for rows.Next() {
		var cc ChannelCount
		if err := rows.Scan(&cc.Platform, &cc.LeadType, &cc.Count); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (c *Client) GetRecentRuns(limit int) ([]IngestRun, error) {
	rows, err := c.db.QueryContext(c.ctx, c.rebind(`
		SELECT id, COALESCE(run_key, ''), started_at, finished_at, COALESCE(status, ''),
			COALESCE(leads_found, 0), COALESCE(deals_new, 0), COALESCE(duplicates, 0),
			COALESCE(recordings, 0), COALESCE(errors_count, 0)
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var r IngestRun
		var finished sql.NullTime
		err := rows.Scan(&r.ID, &r.RunKey, &r.StartedAt, &finished, &r.Status,
			&r.LeadsFound, &r.DealsNew, &r.Duplicates, &r.Recordings, &r.ErrorsCount)
		if err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetLeads pages through processed leads, newest first. An empty platform
// means all platforms.
func (c *Client) GetLeads(platform string, limit, offset int) ([]Lead, error) {
	query := `SELECT lead_id, COALESCE(platform, ''), COALESCE(lead_type, ''), deal_id, processed_at
		FROM processed_leads`
	var args []interface{}
	if platform != "" {
		query += ` WHERE platform = ?`
		args = append(args, platform)
	}
	query += ` ORDER BY processed_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := c.db.QueryContext(c.ctx, c.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var l Lead
		var deal sql.NullInt64
		var at sql.NullTime
		if err := rows.Scan(&l.LeadID, &l.Platform, &l.LeadType, &deal, &at); err != nil {
			return nil, err
		}
		if deal.Valid {
			l.DealID = &deal.Int64
		}
		if at.Valid {
			l.ProcessedAt = &at.Time
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (c *Client) GetLeadCount(platform string) (int, error) {
	query := `SELECT COUNT(*) FROM processed_leads`
	var args []interface{}
	if platform != "" {
		query += ` WHERE platform = ?`
		args = append(args, platform)
	}
	var n int
	err := c.db.QueryRowContext(c.ctx, c.rebind(query), args...).Scan(&n)
	return n, err
}

// GetLogs returns the newest log entries. minLevel "warn" hides info lines,
// "error" shows errors only.
func (c *Client) GetLogs(minLevel string, limit int) ([]IngestLog, error) {
	query := `SELECT id, run_id, timestamp, COALESCE(level, ''), COALESCE(message, ''), COALESCE(source, ''),
			COALESCE(operation, ''), COALESCE(lead_id, '')
		FROM ingest_logs`
	switch minLevel {
	case "warn":
		query += ` WHERE level IN ('warn', 'error')`
	case "error":
		query += ` WHERE level = 'error'`
	case "", "info":
	default:
		return nil, fmt.Errorf("unknown level %q", minLevel)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`

	rows, err := c.db.QueryContext(c.ctx, c.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []IngestLog
	for rows.Next() {
		var l IngestLog
		var runID sql.NullInt64
		if err := rows.Scan(&l.ID, &runID, &l.Timestamp, &l.Level, &l.Message, &l.Source, &l.Operation, &l.LeadID); err != nil {
			return nil, err
		}
		if runID.Valid {
			l.RunID = &runID.Int64
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
