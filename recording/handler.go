// Package recording attaches call recordings to the deals created from call leads.
package recording

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"portal_leads/crm"
	"portal_leads/mapping"
	"portal_leads/models"
	"portal_leads/storage"
)

const maxRecordingSize = 50 * 1024 * 1024

// Telephony is the CRM surface for external calls.
type Telephony interface {
	RegisterCall(ctx context.Context, reg crm.CallRegistration) (string, error)
	FinishCall(ctx context.Context, finish crm.CallFinish) error
	AttachRecording(ctx context.Context, att crm.RecordingAttachment) error
}

// Archiver stores a copy of each recording.
type Archiver interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// HasRecording reports whether a call log carries a usable recording URL.
func HasRecording(url string) bool {
	url = strings.TrimSpace(url)
	return url != "" && url != "None"
}

// Call is a created deal whose call lead may carry a recording.
type Call struct {
	Platform models.Platform
	Lead     *models.Lead
	DealID   int
	OwnerID  int
	SourceID string
}

type Result struct {
	Size        int64
	ContentHash string
	ArchiveKey  string
	CallID      string
	Attached    bool
}

type Handler struct {
	client    *http.Client
	telephony Telephony
	archiver  Archiver
	unique    func() string
}

// NewHandler builds a handler. archiver may be nil.
func NewHandler(client *http.Client, telephony Telephony, archiver Archiver) *Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return &Handler{
		client:    client,
		telephony: telephony,
		archiver:  archiver,
		unique: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
		},
	}
}

// Handle downloads the recording, then registers, finishes and attaches the
// call. A failed download stops before any CRM call is made.
func (h *Handler) Handle(ctx context.Context, c Call) (*Result, error) {
	lead := c.Lead
	data, contentType, err := h.download(ctx, lead.CallRecordingURL)
	if err != nil {
		return nil, fmt.Errorf("download recording: %w", err)
	}

	sum := sha256.Sum256(data)
	result := &Result{Size: int64(len(data)), ContentHash: hex.EncodeToString(sum[:])}

	if h.archiver != nil {
		key := storage.RecordingKey(string(c.Platform), lead.ID())
		if err := h.archiver.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
			log.Printf("[warn] recording: %s lead=%s: archive: %v", c.Platform, lead.ID(), err)
		} else {
			result.ArchiveKey = key
		}
	}

	receiver := strings.TrimSpace(lead.ReceiverNumber.String())
	callID, err := h.telephony.RegisterCall(ctx, crm.CallRegistration{
		UserPhoneInner: receiver,
		UserID:         c.OwnerID,
		PhoneNumber:    strings.TrimSpace(lead.CallerNumber.String()),
		CallStartDate:  lead.CallStart(),
		CRMCreate:      false,
		CRMSource:      c.SourceID,
		CRMEntityType:  "DEAL",
		CRMEntityID:    c.DealID,
		Show:           false,
		Type:           crm.CallTypeIncoming,
		LineNumber:     c.Platform.Title() + " " + receiver,
	})
	if err != nil {
		return result, fmt.Errorf("register call: %w", err)
	}
	if callID == "" {
		log.Printf("[warn] recording: %s lead=%s: no call id for deal %d", c.Platform, lead.ID(), c.DealID)
		return result, nil
	}
	result.CallID = callID

	duration, err := mapping.DurationSeconds(lead.CallConnectedDuration.String())
	if err != nil {
		log.Printf("[warn] recording: %s lead=%s: %v, using 0", c.Platform, lead.ID(), err)
		duration = 0
	}

	if err := h.telephony.FinishCall(ctx, crm.CallFinish{
		CallID:     callID,
		UserID:     c.OwnerID,
		Duration:   duration,
		StatusCode: 200,
	}); err != nil {
		return result, fmt.Errorf("finish call %s: %w", callID, err)
	}

	if err := h.telephony.AttachRecording(ctx, crm.RecordingAttachment{
		CallID:      callID,
		Filename:    fmt.Sprintf("%s|call%s.mp3", lead.ID(), h.unique()),
		FileContent: base64.StdEncoding.EncodeToString(data),
	}); err != nil {
		return result, fmt.Errorf("attach recording %s: %w", callID, err)
	}
	result.Attached = true

	return result, nil
}

func (h *Handler) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(url), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRecordingSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxRecordingSize {
		return nil, "", fmt.Errorf("recording exceeds %d bytes", maxRecordingSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return data, contentType, nil
}
