// Package api serves the admin endpoints of the daemon.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portal_leads/ingest"
	"portal_leads/models"
	"portal_leads/storage"
)

type Runner interface {
	Run(ctx context.Context) (*models.RunStats, error)
	LastRun() *models.RunStats
}

// Checker reports the health of one dependency.
type Checker func(ctx context.Context) error

type Server struct {
	runner    Runner
	runs      storage.RunRecorder
	checks    map[string]Checker
	startTime time.Time
}

// NewServer builds the admin API. runs may be nil.
func NewServer(runner Runner, runs storage.RunRecorder, checks map[string]Checker) *Server {
	return &Server{
		runner:    runner,
		runs:      runs,
		checks:    checks,
		startTime: time.Now(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/run", s.handleRun)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// ListenAndServe blocks until ctx is done, then shuts the server down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Admin API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type healthResponse struct {
	Status       string            `json:"status"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deps := make(map[string]string, len(s.checks))
	status := "healthy"
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			deps[name] = "healthy"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{
		Status:       status,
		Uptime:       time.Since(s.startTime).Round(time.Second).String(),
		Dependencies: deps,
	})
}

type statusResponse struct {
	LastRun     *models.RunStats   `json:"last_run"`
	Totals      *models.BatchStats `json:"totals,omitempty"`
	RecordedRun *models.IngestRun  `json:"recorded_run,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{LastRun: s.runner.LastRun()}
	if resp.LastRun != nil {
		t := resp.LastRun.Totals()
		resp.Totals = &t
	}

	if s.runs != nil {
		run, err := s.runs.LastRun(r.Context())
		if err != nil {
			log.Printf("[warn] api: last run: %v", err)
		}
		resp.RecordedRun = run
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRun runs synchronously and returns the run stats. The run survives
// the client disconnecting.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	stats, err := s.runner.Run(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, ingest.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error(), "stats": stats})
	default:
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[warn] api: encode response: %v", err)
	}
}
