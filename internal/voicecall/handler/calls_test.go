package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge-server/internal/observability"
	"voicebridge-server/internal/sessions"
	"voicebridge-server/internal/voicecall/bridge"
)

type fakeCallCreator struct {
	callSID string
	err     error

	to                string
	webhookURL        string
	statusCallbackURL string
}

func (f *fakeCallCreator) InitiateCall(ctx context.Context, to, webhookURL, statusCallbackURL string) (string, error) {
	f.to = to
	f.webhookURL = webhookURL
	f.statusCallbackURL = statusCallbackURL
	return f.callSID, f.err
}

type fakeFinalizer struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeFinalizer) Finalize(ctx context.Context, callSID string) {
	f.mu.Lock()
	f.calls = append(f.calls, callSID)
	f.mu.Unlock()
}

func newTestRouter(creator *fakeCallCreator, store *sessions.Store, finalizer *fakeFinalizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(creator, store, nil, nil, finalizer, bridge.Config{}, observability.NewLogger())

	router := gin.New()
	router.POST("/initiate-call", h.HandleInitiateCall)
	router.POST("/call-status", h.HandleCallStatus)
	router.GET("/outgoing-call-webhook", h.HandleOutgoingCallWebhook)
	router.GET("/incoming-call", h.HandleIncomingCall)
	return router
}

func TestHandleInitiateCall(t *testing.T) {
	creator := &fakeCallCreator{callSID: "CA1"}
	store := sessions.NewStore()
	router := newTestRouter(creator, store, &fakeFinalizer{})

	body := `{"phoneNumber":"+15551234567","clientInfo":{"Name":"Ann","AccountId":"12345"}}`
	req := httptest.NewRequest(http.MethodPost, "/initiate-call", strings.NewReader(body))
	req.Host = "voice.example.com"
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"callSid":"CA1"`)

	assert.Equal(t, "+15551234567", creator.to)
	assert.Equal(t, "https://voice.example.com/outgoing-call-webhook", creator.webhookURL)
	assert.Equal(t, "https://voice.example.com/call-status", creator.statusCallbackURL)

	sess, ok := store.Get("CA1")
	require.True(t, ok, "the session must exist before the media stream connects")
	assert.Equal(t, map[string]string{"Name": "Ann", "AccountId": "12345"}, sess.ClientInfo())
}

func TestHandleInitiateCallMissingPhoneNumber(t *testing.T) {
	store := sessions.NewStore()
	router := newTestRouter(&fakeCallCreator{callSID: "CA1"}, store, &fakeFinalizer{})

	req := httptest.NewRequest(http.MethodPost, "/initiate-call", strings.NewReader(`{"clientInfo":{}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Phone number is required")
	assert.Equal(t, 0, store.Len(), "no session may be created for a rejected request")
}

func TestHandleInitiateCallProviderFailure(t *testing.T) {
	creator := &fakeCallCreator{err: errors.New("twilio unavailable")}
	store := sessions.NewStore()
	router := newTestRouter(creator, store, &fakeFinalizer{})

	req := httptest.NewRequest(http.MethodPost, "/initiate-call", strings.NewReader(`{"phoneNumber":"+15551234567"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, store.Len())
}

func TestHandleOutgoingCallWebhookReturnsTwiML(t *testing.T) {
	router := newTestRouter(&fakeCallCreator{}, sessions.NewStore(), &fakeFinalizer{})

	req := httptest.NewRequest(http.MethodGet, "/outgoing-call-webhook", nil)
	req.Host = "voice.example.com"
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Hi! We are connecting you, wait a moment")
	assert.Contains(t, rec.Body.String(), `wss://voice.example.com/media-stream`)
	assert.Contains(t, rec.Body.String(), "<Pause")
}

func TestHandleIncomingCallReturnsTwiML(t *testing.T) {
	router := newTestRouter(&fakeCallCreator{}, sessions.NewStore(), &fakeFinalizer{})

	req := httptest.NewRequest(http.MethodGet, "/incoming-call", nil)
	req.Host = "voice.example.com"
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hi! Connecting you to our assistant. One moment please.")
	assert.NotContains(t, rec.Body.String(), "<Pause")
}

func TestHandleCallStatusCompletedFinalizes(t *testing.T) {
	finalizer := &fakeFinalizer{}
	router := newTestRouter(&fakeCallCreator{}, sessions.NewStore(), finalizer)

	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}}
	req := httptest.NewRequest(http.MethodPost, "/call-status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"CA1"}, finalizer.calls)
}

func TestHandleCallStatusIntermediateStatesDoNotFinalize(t *testing.T) {
	finalizer := &fakeFinalizer{}
	router := newTestRouter(&fakeCallCreator{}, sessions.NewStore(), finalizer)

	for _, status := range []string{"initiated", "ringing", "answered"} {
		form := url.Values{"CallSid": {"CA1"}, "CallStatus": {status}}
		req := httptest.NewRequest(http.MethodPost, "/call-status", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Empty(t, finalizer.calls)
}
