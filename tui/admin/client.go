// Package admin talks to the daemon's admin API.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrRunInProgress = errors.New("a run is already in progress")

type Client struct {
	baseURL string
	http    *http.Client
}

// RunTotals is the subset of the run response the TUI shows.
type RunTotals struct {
	RunKey  string `json:"run_key"`
	Batches []struct {
		Created    int `json:"created"`
		Duplicates int `json:"duplicates"`
		Failed     int `json:"failed"`
	} `json:"batches"`
}

func (r RunTotals) Sum() (created, duplicates, failed int) {
	for _, b := range r.Batches {
		created += b.Created
		duplicates += b.Duplicates
		failed += b.Failed
	}
	return
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// A run fetches six batches and may attach recordings.
		http: &http.Client{Timeout: 10 * time.Minute},
	}
}

// TriggerRun asks the daemon for an ingest pass and waits for it to finish.
func (c *Client) TriggerRun(ctx context.Context) (*RunTotals, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("admin API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrRunInProgress
	case resp.StatusCode != http.StatusOK:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("admin API: HTTP %d: %s", resp.StatusCode, body.Error)
	}

	var totals RunTotals
	if err := json.NewDecoder(resp.Body).Decode(&totals); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}
	return &totals, nil
}
