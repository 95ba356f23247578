package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge-server/internal/observability"
)

func TestNotifyDeliversJSONPayload(t *testing.T) {
	var received map[string]interface{}
	var contentType string
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer srv.Close()

	notifier := NewNotifier(srv.URL, observability.NewLogger())
	notifier.Notify(context.Background(), map[string]string{"customerName": "Ann"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "Ann", received["customerName"])
}

func TestNotifyToleratesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	notifier := NewNotifier(srv.URL, observability.NewLogger())

	// Must not panic or propagate anything to the caller.
	notifier.Notify(context.Background(), map[string]string{"transcript": "User: hi\n"})
}

func TestNotifyToleratesUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	notifier := NewNotifier(srv.URL, observability.NewLogger())
	notifier.Notify(context.Background(), map[string]string{"transcript": "User: hi\n"})
}

func TestNotifySkipsWhenURLEmpty(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	notifier := NewNotifier("", observability.NewLogger())
	notifier.Notify(context.Background(), map[string]string{"transcript": "User: hi\n"})

	assert.Equal(t, 0, calls)
}
