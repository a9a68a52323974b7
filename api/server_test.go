package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal_leads/ingest"
	"portal_leads/models"
)

type stubRunner struct {
	stats *models.RunStats
	err   error
	last  *models.RunStats
	calls int
}

func (s *stubRunner) Run(ctx context.Context) (*models.RunStats, error) {
	s.calls++
	return s.stats, s.err
}

func (s *stubRunner) LastRun() *models.RunStats {
	return s.last
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	srv := NewServer(&stubRunner{}, nil, map[string]Checker{
		"store": func(ctx context.Context) error { return nil },
	})

	rec := do(t, srv.Router(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Dependencies["store"])
}

func TestHealthDegraded(t *testing.T) {
	srv := NewServer(&stubRunner{}, nil, map[string]Checker{
		"rabbitmq": func(ctx context.Context) error { return errors.New("connection closed") },
	})

	rec := do(t, srv.Router(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection closed")
}

func TestStatus(t *testing.T) {
	last := &models.RunStats{RunKey: "r1"}
	last.Batch(models.PlatformBayut, models.LeadTypeEmail).Created = 2
	srv := NewServer(&stubRunner{last: last}, nil, nil)

	rec := do(t, srv.Router(), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.LastRun)
	assert.Equal(t, "r1", body.LastRun.RunKey)
	assert.Equal(t, 2, body.Totals.Created)
}

func TestStatusBeforeFirstRun(t *testing.T) {
	srv := NewServer(&stubRunner{}, nil, nil)
	rec := do(t, srv.Router(), http.MethodGet, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_run":null`)
}

func TestRun(t *testing.T) {
	runner := &stubRunner{stats: &models.RunStats{RunKey: "r2"}}
	srv := NewServer(runner, nil, nil)

	rec := do(t, srv.Router(), http.MethodPost, "/run")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_key":"r2"`)
	assert.Equal(t, 1, runner.calls)

	rec = do(t, srv.Router(), http.MethodGet, "/run")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRunInProgress(t *testing.T) {
	srv := NewServer(&stubRunner{err: ingest.ErrRunInProgress}, nil, nil)

	rec := do(t, srv.Router(), http.MethodPost, "/run")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(&stubRunner{}, nil, nil)
	h := srv.Router()

	do(t, h, http.MethodGet, "/status")
	rec := do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "portal_leads_http_requests_total"))
}
