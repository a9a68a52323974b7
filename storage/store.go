package storage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"portal_leads/models"
)

// Entry is one processed lead. Only LeadID is required; backends that keep
// columns for the rest store them for replay and auditing.
type Entry struct {
	LeadID      string
	Platform    models.Platform
	LeadType    models.LeadType
	DealID      int
	ProcessedAt time.Time
}

// LeadLog is the durable side of the processed-lead set.
type LeadLog interface {
	// Load returns every lead id recorded so far. No prior state is not an error.
	Load(ctx context.Context) (map[string]struct{}, error)
	Append(ctx context.Context, e Entry) error
}

// RunRecorder persists run records and their log lines.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *models.IngestRun) (int64, error)
	UpdateRun(ctx context.Context, run *models.IngestRun) error
	// Log stores one line; a zero Timestamp is stamped with the current time.
	Log(ctx context.Context, entry *models.IngestLog) error
	LastRun(ctx context.Context) (*models.IngestRun, error)
}

// ProcessedLeads is the in-memory view of a LeadLog, loaded once per process.
// Ids added during a run are visible to later Contains calls without
// re-reading the backend.
type ProcessedLeads struct {
	mu      sync.RWMutex
	backend LeadLog
	ids     map[string]struct{}
}

func OpenProcessedLeads(ctx context.Context, backend LeadLog) (*ProcessedLeads, error) {
	ids, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load processed leads: %w", err)
	}
	if ids == nil {
		ids = make(map[string]struct{})
	}
	log.Printf("[info] store: %d processed leads loaded", len(ids))
	return &ProcessedLeads{backend: backend, ids: ids}, nil
}

func (p *ProcessedLeads) Contains(leadID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.ids[strings.TrimSpace(leadID)]
	return ok
}

// Record appends e to the backend and marks it seen. The id is marked even
// when the append fails: the deal already exists, so a repeat of the id later
// in this process must still be skipped. The append error is returned.
func (p *ProcessedLeads) Record(ctx context.Context, e Entry) error {
	e.LeadID = strings.TrimSpace(e.LeadID)
	if e.LeadID == "" {
		return fmt.Errorf("empty lead id")
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}

	err := p.backend.Append(ctx, e)

	p.mu.Lock()
	p.ids[e.LeadID] = struct{}{}
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("append %s: %w", e.LeadID, err)
	}
	return nil
}

func (p *ProcessedLeads) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ids)
}
