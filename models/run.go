package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IngestRun is the persisted record of one pass over every platform and lead type.
type IngestRun struct {
	ID          int64      `json:"id" db:"id"`
	RunKey      string     `json:"run_key" db:"run_key"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
	Status      RunStatus  `json:"status" db:"status"`
	LeadsFound  int        `json:"leads_found" db:"leads_found"`
	DealsNew    int        `json:"deals_new" db:"deals_new"`
	Duplicates  int        `json:"duplicates" db:"duplicates"`
	Recordings  int        `json:"recordings" db:"recordings"`
	ErrorsCount int        `json:"errors_count" db:"errors_count"`
}

// BatchStats counts the outcome of one (platform, lead type) batch.
type BatchStats struct {
	Platform   Platform `json:"platform"`
	LeadType   LeadType `json:"lead_type"`
	Fetched    int      `json:"fetched"`
	Created    int      `json:"created"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
	Recordings int      `json:"recordings"`
	FetchError string   `json:"fetch_error,omitempty"`
	Skipped    bool     `json:"skipped,omitempty"`
}

type RunStats struct {
	RunKey     string        `json:"run_key"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Batches    []*BatchStats `json:"batches"`
}

// Batch returns the stats entry for the pair, creating it on first use.
func (s *RunStats) Batch(platform Platform, leadType LeadType) *BatchStats {
	for _, b := range s.Batches {
		if b.Platform == platform && b.LeadType == leadType {
			return b
		}
	}
	b := &BatchStats{Platform: platform, LeadType: leadType}
	s.Batches = append(s.Batches, b)
	return b
}

// Totals sums every batch into one BatchStats with empty platform and type.
func (s *RunStats) Totals() BatchStats {
	var t BatchStats
	for _, b := range s.Batches {
		t.Fetched += b.Fetched
		t.Created += b.Created
		t.Duplicates += b.Duplicates
		t.Failed += b.Failed
		t.Recordings += b.Recordings
	}
	return t
}

// ToRun converts the stats into a run record for persistence.
func (s *RunStats) ToRun() *IngestRun {
	t := s.Totals()
	finished := s.FinishedAt
	status := RunStatusCompleted
	if finished.IsZero() {
		status = RunStatusRunning
	}
	run := &IngestRun{
		RunKey:      s.RunKey,
		StartedAt:   s.StartedAt,
		Status:      status,
		LeadsFound:  t.Fetched,
		DealsNew:    t.Created,
		Duplicates:  t.Duplicates,
		Recordings:  t.Recordings,
		ErrorsCount: t.Failed,
	}
	if !finished.IsZero() {
		run.FinishedAt = &finished
	}
	return run
}
