// Package ingest runs one pass over every portal and lead type, turning new
// leads into CRM deals.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"portal_leads/events"
	"portal_leads/logging"
	"portal_leads/mapping"
	"portal_leads/metrics"
	"portal_leads/models"
	"portal_leads/recording"
	"portal_leads/storage"
)

var ErrRunInProgress = errors.New("ingest run already in progress")

type Fetcher interface {
	Fetch(ctx context.Context, platform models.Platform, leadType models.LeadType, since string) ([]models.Lead, error)
}

type Mapper interface {
	Map(ctx context.Context, k mapping.Key, lead *models.Lead) (models.DealFields, error)
}

type DealCreator interface {
	CreateDeal(ctx context.Context, fields models.DealFields) (int, error)
}

type LeadStore interface {
	Contains(leadID string) bool
	Record(ctx context.Context, e storage.Entry) error
}

type RecordingHandler interface {
	Handle(ctx context.Context, c recording.Call) (*recording.Result, error)
}

type EventPublisher interface {
	PublishDealCreated(ctx context.Context, ev events.DealCreated) error
}

// Deps are the collaborators of a Processor. Recordings, Events, Runs and
// Journal are optional.
type Deps struct {
	Fetcher    Fetcher
	Mapper     Mapper
	CRM        DealCreator
	Store      LeadStore
	Recordings RecordingHandler
	Events     EventPublisher
	Runs       storage.RunRecorder
	Journal    *logging.Journal
}

type Options struct {
	Since     string
	Platforms []models.Platform
	LeadTypes []models.LeadType
}

type Processor struct {
	Deps
	opts Options

	running sync.Mutex

	mu   sync.RWMutex
	last *models.RunStats
}

func NewProcessor(deps Deps, opts Options) *Processor {
	if len(opts.Platforms) == 0 {
		opts.Platforms = models.Platforms
	}
	if len(opts.LeadTypes) == 0 {
		opts.LeadTypes = models.LeadTypes
	}
	return &Processor{Deps: deps, opts: opts}
}

// LastRun returns the stats of the most recent finished run, nil before the first.
func (p *Processor) LastRun() *models.RunStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Run fetches every (platform, type) pair, then processes each batch. Failures
// are isolated per lead and per batch; only cancellation ends a run early.
func (p *Processor) Run(ctx context.Context) (*models.RunStats, error) {
	if !p.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.running.Unlock()

	stats := &models.RunStats{
		RunKey:    uuid.NewString(),
		StartedAt: time.Now(),
	}
	r := &run{Processor: p, stats: stats}
	r.open(ctx)

	batches := r.fetchAll(ctx)

	var runErr error
	for _, platform := range p.opts.Platforms {
		for _, leadType := range p.opts.LeadTypes {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
			k := mapping.Key{Platform: platform, Type: leadType}
			if leads := batches[k]; len(leads) > 0 {
				r.processBatch(ctx, k, leads)
			}
		}
	}

	stats.FinishedAt = time.Now()
	r.close(runErr)
	metrics.RecordRun(stats.StartedAt, stats.FinishedAt)

	p.mu.Lock()
	p.last = stats
	p.mu.Unlock()

	return stats, runErr
}

// run carries the state of one Run call.
type run struct {
	*Processor
	stats *models.RunStats
	runID *int64
}

func (r *run) open(ctx context.Context) {
	if r.Runs == nil {
		return
	}
	rec := r.stats.ToRun()
	id, err := r.Runs.CreateRun(ctx, rec)
	if err != nil {
		log.Printf("[warn] ingest: create run record: %v", err)
		return
	}
	r.runID = &id
}

func (r *run) close(runErr error) {
	t := r.stats.Totals()
	r.log(models.LogLevelInfo, models.IngestLog{Source: "ingest", Operation: models.OpRun}, fmt.Sprintf(
		"Completed: %d fetched, %d deals created, %d duplicates, %d failed, %d recordings",
		t.Fetched, t.Created, t.Duplicates, t.Failed, t.Recordings))

	if r.Runs == nil || r.runID == nil {
		return
	}
	rec := r.stats.ToRun()
	rec.ID = *r.runID
	if runErr != nil {
		rec.Status = models.RunStatusFailed
	}
	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Runs.UpdateRun(ctx, rec); err != nil {
		log.Printf("[warn] ingest: update run record: %v", err)
	}
}

func (r *run) fetchAll(ctx context.Context) map[mapping.Key][]models.Lead {
	batches := make(map[mapping.Key][]models.Lead)

	for _, platform := range r.opts.Platforms {
		for _, leadType := range r.opts.LeadTypes {
			if ctx.Err() != nil {
				return batches
			}
			k := mapping.Key{Platform: platform, Type: leadType}
			b := r.stats.Batch(platform, leadType)

			leads, err := r.Fetcher.Fetch(ctx, platform, leadType, r.opts.Since)
			if err != nil {
				b.FetchError = err.Error()
				metrics.RecordFailure(string(platform), string(leadType), metrics.StageFetch)
				r.log(models.LogLevelError, entry(k, models.OpFetch, "", 0), fmt.Sprintf("%s: fetch: %v", k, err))
				r.Journal.Write("error.log", err.Error())
				leads = nil
			}

			b.Fetched = len(leads)
			batches[k] = leads
			metrics.RecordFetched(string(platform), string(leadType), len(leads))

			r.log(models.LogLevelInfo, entry(k, models.OpFetch, "", 0), fmt.Sprintf("%s %s: %d", platform.Title(), leadType.Channel(), len(leads)))
			r.Journal.WriteJSON(fmt.Sprintf("%s_%s.log", platform, leadType.QueryValue()), leads)
		}
	}
	return batches
}

func (r *run) processBatch(ctx context.Context, k mapping.Key, leads []models.Lead) {
	b := r.stats.Batch(k.Platform, k.Type)

	for i := range leads {
		if ctx.Err() != nil {
			return
		}
		err := r.processLead(ctx, k, &leads[i], b)
		if errors.Is(err, mapping.ErrNoMapper) {
			b.Skipped = true
			metrics.RecordFailure(string(k.Platform), string(k.Type), metrics.StageMap)
			r.log(models.LogLevelError, entry(k, models.OpMap, "", 0), fmt.Sprintf("%s: %v, batch skipped", k, err))
			r.Journal.Write("error.log", err.Error())
			return
		}
	}
}

// processLead returns an error only when the whole batch has to stop.
func (r *run) processLead(ctx context.Context, k mapping.Key, lead *models.Lead, b *models.BatchStats) error {
	platform, leadType := string(k.Platform), string(k.Type)
	id := lead.ID()
	if id == "" {
		b.Failed++
		metrics.RecordFailure(platform, leadType, metrics.StageMap)
		r.log(models.LogLevelWarn, entry(k, models.OpDedup, "", 0), fmt.Sprintf("%s: lead without lead_id ignored", k))
		return nil
	}

	if r.Store.Contains(id) {
		b.Duplicates++
		metrics.RecordDuplicate(platform, leadType)
		r.log(models.LogLevelInfo, entry(k, models.OpDedup, id, 0), fmt.Sprintf("%s lead=%s: duplicate skipped", k, id))
		return nil
	}

	fields, err := r.Mapper.Map(ctx, k, lead)
	if err != nil {
		if errors.Is(err, mapping.ErrNoMapper) {
			return err
		}
		b.Failed++
		metrics.RecordFailure(platform, leadType, metrics.StageMap)
		r.fail(entry(k, models.OpMap, id, 0), fmt.Sprintf("%s lead=%s: map: %v", k, id, err))
		return nil
	}
	r.Journal.WriteJSON("fields.log", fields)

	dealID, err := r.CRM.CreateDeal(ctx, fields)
	if err != nil {
		b.Failed++
		metrics.RecordFailure(platform, leadType, metrics.StageDeal)
		r.fail(entry(k, models.OpDeal, id, 0), fmt.Sprintf("%s lead=%s: create deal: %v", k, id, err))
		return nil
	}
	b.Created++
	metrics.RecordDealCreated(platform, leadType)
	r.log(models.LogLevelInfo, entry(k, models.OpDeal, id, dealID), fmt.Sprintf("%s lead=%s: deal %d created", k, id, dealID))

	if err := r.Store.Record(ctx, storage.Entry{LeadID: id, Platform: k.Platform, LeadType: k.Type, DealID: dealID}); err != nil {
		b.Failed++
		metrics.RecordFailure(platform, leadType, metrics.StageStore)
		r.fail(entry(k, models.OpStore, id, dealID), fmt.Sprintf("%s lead=%s: mark processed (deal %d already created): %v", k, id, dealID, err))
	}

	ownerID := fields.Int(mapping.FieldAssignedBy)

	if k.Type == models.LeadTypeCall && r.Recordings != nil && recording.HasRecording(lead.CallRecordingURL) {
		res, err := r.Recordings.Handle(ctx, recording.Call{
			Platform: k.Platform,
			Lead:     lead,
			DealID:   dealID,
			OwnerID:  ownerID,
			SourceID: fields.String(mapping.FieldSource),
		})
		if err != nil {
			metrics.RecordFailure(platform, leadType, metrics.StageRecording)
			r.fail(entry(k, models.OpRecording, id, dealID), fmt.Sprintf("%s lead=%s: recording for deal %d: %v", k, id, dealID, err))
		} else if res != nil && res.Attached {
			b.Recordings++
			metrics.RecordRecording(platform)
		}
	}

	if r.Events != nil {
		err := r.Events.PublishDealCreated(ctx, events.DealCreated{
			LeadID:     id,
			DealID:     dealID,
			Platform:   platform,
			LeadType:   leadType,
			OwnerID:    ownerID,
			Title:      fields.String(mapping.FieldTitle),
			RunKey:     r.stats.RunKey,
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			metrics.RecordFailure(platform, leadType, metrics.StageEvent)
			r.log(models.LogLevelWarn, entry(k, models.OpEvent, id, dealID), fmt.Sprintf("%s lead=%s: publish event: %v", k, id, err))
		}
	}

	return nil
}

// entry starts a log line about batch k, and about one lead when leadID is set.
func entry(k mapping.Key, op models.Operation, leadID string, dealID int) models.IngestLog {
	return models.IngestLog{
		Source:    string(k.Platform),
		LeadType:  k.Type,
		Operation: op,
		LeadID:    leadID,
		DealID:    dealID,
	}
}

func (r *run) fail(e models.IngestLog, message string) {
	r.log(models.LogLevelError, e, message)
	r.Journal.Write("error.log", message)
}

func (r *run) log(level models.LogLevel, e models.IngestLog, message string) {
	log.Printf("[%s] %s: %s", level, e.Source, message)
	if r.Runs == nil || r.runID == nil {
		return
	}
	e.RunID = r.runID
	e.Level = level
	e.Message = message
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Runs.Log(ctx, &e); err != nil {
		log.Printf("[warn] ingest: store log line: %v", err)
	}
}
