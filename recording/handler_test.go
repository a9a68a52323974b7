package recording

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portal_leads/crm"
	"portal_leads/models"
)

type mockTelephony struct {
	mock.Mock
}

func (m *mockTelephony) RegisterCall(ctx context.Context, reg crm.CallRegistration) (string, error) {
	args := m.Called(ctx, reg)
	return args.String(0), args.Error(1)
}

func (m *mockTelephony) FinishCall(ctx context.Context, finish crm.CallFinish) error {
	return m.Called(ctx, finish).Error(0)
}

func (m *mockTelephony) AttachRecording(ctx context.Context, att crm.RecordingAttachment) error {
	return m.Called(ctx, att).Error(0)
}

type memArchive struct {
	keys []string
	err  error
}

func (a *memArchive) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	return nil
}

func audioServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func callLead(url string) *models.Lead {
	return &models.Lead{
		LeadID:                "901",
		CallerNumber:          "971501234567",
		ReceiverNumber:        "97143000000",
		CallConnectedDuration: "0:01:05",
		CallRecordingURL:      url,
		Date:                  "2025-03-03",
		Time:                  "14:05:00",
	}
}

func TestHasRecording(t *testing.T) {
	assert.False(t, HasRecording(""))
	assert.False(t, HasRecording("None"))
	assert.False(t, HasRecording("  None "))
	assert.True(t, HasRecording("https://rec.example.com/1.mp3"))
}

func TestHandleFullFlow(t *testing.T) {
	srv := audioServer(t, http.StatusOK, "ID3-audio")
	ctx := context.Background()

	tel := &mockTelephony{}
	tel.On("RegisterCall", ctx, crm.CallRegistration{
		UserPhoneInner: "97143000000",
		UserID:         64,
		PhoneNumber:    "971501234567",
		CallStartDate:  "2025-03-03 14:05:00",
		CRMSource:      "BAYUT",
		CRMEntityType:  "DEAL",
		CRMEntityID:    3001,
		Type:           2,
		LineNumber:     "Bayut 97143000000",
	}).Return("externalCall.1", nil)
	tel.On("FinishCall", ctx, crm.CallFinish{CallID: "externalCall.1", UserID: 64, Duration: 65, StatusCode: 200}).Return(nil)
	tel.On("AttachRecording", ctx, crm.RecordingAttachment{
		CallID:      "externalCall.1",
		Filename:    "901|callabc.mp3",
		FileContent: base64.StdEncoding.EncodeToString([]byte("ID3-audio")),
	}).Return(nil)

	archive := &memArchive{}
	h := NewHandler(srv.Client(), tel, archive)
	h.unique = func() string { return "abc" }

	res, err := h.Handle(ctx, Call{
		Platform: models.PlatformBayut,
		Lead:     callLead(srv.URL + "/901.mp3"),
		DealID:   3001,
		OwnerID:  64,
		SourceID: "BAYUT",
	})
	require.NoError(t, err)
	tel.AssertExpectations(t)

	assert.True(t, res.Attached)
	assert.Equal(t, "externalCall.1", res.CallID)
	assert.Equal(t, int64(9), res.Size)
	assert.Equal(t, "recordings/bayut/901.mp3", res.ArchiveKey)
	assert.Equal(t, []string{"recordings/bayut/901.mp3"}, archive.keys)
}

func TestHandleDownloadFailureMakesNoCRMCalls(t *testing.T) {
	srv := audioServer(t, http.StatusNotFound, "gone")

	tel := &mockTelephony{}
	h := NewHandler(srv.Client(), tel, nil)

	_, err := h.Handle(context.Background(), Call{Platform: models.PlatformDubizzle, Lead: callLead(srv.URL), DealID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download recording")
	tel.AssertNotCalled(t, "RegisterCall", mock.Anything, mock.Anything)
}

func TestHandleNoCallID(t *testing.T) {
	srv := audioServer(t, http.StatusOK, "x")

	tel := &mockTelephony{}
	tel.On("RegisterCall", mock.Anything, mock.Anything).Return("", nil)

	h := NewHandler(srv.Client(), tel, nil)
	res, err := h.Handle(context.Background(), Call{Platform: models.PlatformDubizzle, Lead: callLead(srv.URL), DealID: 1})
	require.NoError(t, err)
	assert.False(t, res.Attached)
	tel.AssertNotCalled(t, "FinishCall", mock.Anything, mock.Anything)
	tel.AssertNotCalled(t, "AttachRecording", mock.Anything, mock.Anything)
}

func TestHandleBadDurationUsesZero(t *testing.T) {
	srv := audioServer(t, http.StatusOK, "x")

	tel := &mockTelephony{}
	tel.On("RegisterCall", mock.Anything, mock.Anything).Return("c1", nil)
	tel.On("FinishCall", mock.Anything, mock.MatchedBy(func(f crm.CallFinish) bool { return f.Duration == 0 })).Return(nil)
	tel.On("AttachRecording", mock.Anything, mock.Anything).Return(nil)

	lead := callLead(srv.URL)
	lead.CallConnectedDuration = "n/a"

	h := NewHandler(srv.Client(), tel, nil)
	res, err := h.Handle(context.Background(), Call{Platform: models.PlatformBayut, Lead: lead, DealID: 1})
	require.NoError(t, err)
	assert.True(t, res.Attached)
	tel.AssertExpectations(t)
}

func TestHandleArchiveFailureIsNotFatal(t *testing.T) {
	srv := audioServer(t, http.StatusOK, "x")

	tel := &mockTelephony{}
	tel.On("RegisterCall", mock.Anything, mock.Anything).Return("c1", nil)
	tel.On("FinishCall", mock.Anything, mock.Anything).Return(nil)
	tel.On("AttachRecording", mock.Anything, mock.Anything).Return(nil)

	h := NewHandler(srv.Client(), tel, &memArchive{err: errors.New("access denied")})
	res, err := h.Handle(context.Background(), Call{Platform: models.PlatformBayut, Lead: callLead(srv.URL), DealID: 1})
	require.NoError(t, err)
	assert.Empty(t, res.ArchiveKey)
	assert.True(t, res.Attached)
}

func TestHandleRegisterError(t *testing.T) {
	srv := audioServer(t, http.StatusOK, "x")

	tel := &mockTelephony{}
	tel.On("RegisterCall", mock.Anything, mock.Anything).Return("", &crm.APIError{Method: "telephony.externalcall.register", Code: "ACCESS_DENIED"})

	h := NewHandler(srv.Client(), tel, nil)
	_, err := h.Handle(context.Background(), Call{Platform: models.PlatformBayut, Lead: callLead(srv.URL), DealID: 1})

	var apiErr *crm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "ACCESS_DENIED", apiErr.Code)
}
