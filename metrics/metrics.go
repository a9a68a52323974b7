package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_leads_fetched_total",
			Help: "Total number of leads fetched from the portals",
		},
		[]string{"platform", "type"},
	)

	dealsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_leads_deals_created_total",
			Help: "Total number of CRM deals created",
		},
		[]string{"platform", "type"},
	)

	duplicatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_leads_duplicates_total",
			Help: "Total number of already processed leads skipped",
		},
		[]string{"platform", "type"},
	)

	leadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_leads_failures_total",
			Help: "Total number of lead processing failures by stage",
		},
		[]string{"platform", "type", "stage"},
	)

	recordingsAttached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_leads_recordings_attached_total",
			Help: "Total number of call recordings attached to deals",
		},
		[]string{"platform"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portal_leads_run_duration_seconds",
			Help:    "Duration of ingest runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	lastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_leads_last_run_timestamp_seconds",
			Help: "Unix time the last ingest run finished",
		},
	)
)

// Failure stages.
const (
	StageFetch     = "fetch"
	StageDecode    = "decode"
	StageMap       = "map"
	StageDeal      = "deal"
	StageStore     = "store"
	StageRecording = "recording"
	StageEvent     = "event"
)

func RecordFetched(platform, leadType string, n int) {
	leadsFetched.WithLabelValues(platform, leadType).Add(float64(n))
}

func RecordDealCreated(platform, leadType string) {
	dealsCreated.WithLabelValues(platform, leadType).Inc()
}

func RecordDuplicate(platform, leadType string) {
	duplicatesSkipped.WithLabelValues(platform, leadType).Inc()
}

func RecordFailure(platform, leadType, stage string) {
	leadFailures.WithLabelValues(platform, leadType, stage).Inc()
}

func RecordRecording(platform string) {
	recordingsAttached.WithLabelValues(platform).Inc()
}

func RecordRun(started, finished time.Time) {
	runDuration.Observe(finished.Sub(started).Seconds())
	lastRun.Set(float64(finished.Unix()))
}
