package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge-server/internal/apierrors"
	"voicebridge-server/internal/observability"
)

// completionServer returns a mock chat-completions endpoint whose assistant
// message content is the given string.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func newTestExtractor(srv *httptest.Server) *Extractor {
	return New("test-key", "gpt-4o", observability.NewLogger(),
		option.WithBaseURL(srv.URL+"/"))
}

func TestExtractParsesStructuredRecord(t *testing.T) {
	content := `{"customerName":"Ann","customerAvailability":"weekdays after 5pm","specialNotes":"prefers email follow-up"}`
	srv := completionServer(t, content)
	defer srv.Close()

	details, err := newTestExtractor(srv).Extract(context.Background(), "User: hi\nAgent: hello\n")
	require.NoError(t, err)

	assert.Equal(t, CustomerDetails{
		CustomerName:         "Ann",
		CustomerAvailability: "weekdays after 5pm",
		SpecialNotes:         "prefers email follow-up",
	}, details)
}

func TestExtractRejectsMissingField(t *testing.T) {
	srv := completionServer(t, `{"customerName":"Ann","customerAvailability":"weekdays"}`)
	defer srv.Close()

	_, err := newTestExtractor(srv).Extract(context.Background(), "User: hi\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrExtraction)
}

func TestExtractRejectsNonStringField(t *testing.T) {
	srv := completionServer(t, `{"customerName":"Ann","customerAvailability":"weekdays","specialNotes":42}`)
	defer srv.Close()

	_, err := newTestExtractor(srv).Extract(context.Background(), "User: hi\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrExtraction)
}

func TestExtractRejectsNonJSONContent(t *testing.T) {
	srv := completionServer(t, "I could not extract anything.")
	defer srv.Close()

	_, err := newTestExtractor(srv).Extract(context.Background(), "User: hi\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrExtraction)
}

func TestExtractRejectsEmptyContent(t *testing.T) {
	srv := completionServer(t, "")
	defer srv.Close()

	_, err := newTestExtractor(srv).Extract(context.Background(), "User: hi\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrExtraction)
}

func TestExtractWrapsAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid request"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestExtractor(srv).Extract(context.Background(), "User: hi\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrExtraction)
}

func TestParseDetailsAllowsExtraFields(t *testing.T) {
	content := `{"customerName":"Ann","customerAvailability":"weekdays","specialNotes":"","confidence":0.9}`

	details, err := parseDetails(content)
	require.NoError(t, err)
	assert.Equal(t, "Ann", details.CustomerName)
	assert.Equal(t, "", details.SpecialNotes)
}

func TestParseDetailsErrorNamesMissingField(t *testing.T) {
	_, err := parseDetails(`{"customerName":"Ann","specialNotes":""}`)
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "customerAvailability")
}
