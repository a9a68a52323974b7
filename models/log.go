package models

import "time"

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Operation is the pipeline step a run log line is about.
type Operation string

const (
	OpRun       Operation = "run"
	OpFetch     Operation = "fetch"
	OpDedup     Operation = "dedup"
	OpMap       Operation = "map"
	OpDeal      Operation = "deal"
	OpStore     Operation = "store"
	OpRecording Operation = "recording"
	OpEvent     Operation = "event"
)

// IngestLog is one line of a run's log. Source is the platform, or "ingest"
// for run-level lines; LeadID is empty unless the line is about one lead.
type IngestLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Source    string    `json:"source" db:"source"`
	LeadType  LeadType  `json:"lead_type,omitempty" db:"lead_type"`
	Operation Operation `json:"operation" db:"operation"`
	LeadID    string    `json:"lead_id,omitempty" db:"lead_id"`
	DealID    int       `json:"deal_id,omitempty" db:"deal_id"`
	Message   string    `json:"message" db:"message"`
}
