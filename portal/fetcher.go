// Package portal fetches leads from the Bayut and Dubizzle stats API.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"portal_leads/metrics"
	"portal_leads/models"
)

const maxBodySize = 32 * 1024 * 1024

type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindDecode    ErrorKind = "decode"
)

type FetchError struct {
	Kind     ErrorKind
	Platform models.Platform
	LeadType models.LeadType
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s/%s: %s %d: %v", e.Platform, e.LeadType, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s/%s: %s: %v", e.Platform, e.LeadType, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Fetcher struct {
	baseURLs  map[models.Platform]string
	authToken string
	client    *http.Client
}

func NewFetcher(baseURLs map[string]string, authToken string, client *http.Client) *Fetcher {
	urls := make(map[models.Platform]string, len(baseURLs))
	for p, u := range baseURLs {
		urls[models.Platform(p)] = u
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{baseURLs: urls, authToken: authToken, client: client}
}

// Fetch returns the leads of one type since the given timestamp. A body that
// is empty, null or not a JSON array yields no leads and no error.
func (f *Fetcher) Fetch(ctx context.Context, platform models.Platform, leadType models.LeadType, since string) ([]models.Lead, error) {
	fail := func(kind ErrorKind, status int, err error) error {
		return &FetchError{Kind: kind, Platform: platform, LeadType: leadType, Status: status, Err: err}
	}

	base, ok := f.baseURLs[platform]
	if !ok {
		return nil, fail(KindTransport, 0, fmt.Errorf("no endpoint for platform %q", platform))
	}

	endpoint, err := url.Parse(base)
	if err != nil {
		return nil, fail(KindTransport, 0, err)
	}
	q := endpoint.Query()
	q.Set("type", leadType.QueryValue())
	q.Set("timestamp", since)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fail(KindTransport, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.authToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fail(KindTransport, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fail(KindTransport, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(KindStatus, resp.StatusCode, fmt.Errorf("%s", truncate(body, 512)))
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if body[0] != '[' {
		if !json.Valid(body) {
			return nil, fail(KindDecode, resp.StatusCode, fmt.Errorf("invalid JSON: %s", truncate(body, 128)))
		}
		log.Printf("[warn] portal: %s/%s: non-array response ignored", platform, leadType)
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fail(KindDecode, resp.StatusCode, err)
	}

	leads := make([]models.Lead, 0, len(items))
	for i, item := range items {
		var lead models.Lead
		if err := json.Unmarshal(item, &lead); err != nil {
			log.Printf("[warn] portal: %s/%s: lead %s (item %d) skipped: %v",
				platform, leadType, leadIDOf(item), i, err)
			metrics.RecordFailure(string(platform), string(leadType), metrics.StageDecode)
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// leadIDOf pulls lead_id out of an element that failed to decode as a Lead.
func leadIDOf(item json.RawMessage) string {
	var head struct {
		LeadID models.FlexString `json:"lead_id"`
	}
	if err := json.Unmarshal(item, &head); err != nil || head.LeadID == "" {
		return "?"
	}
	return head.LeadID.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
