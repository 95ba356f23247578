package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicebridge-server/internal/observability"
)

// Notifier posts post-call payloads to a configured endpoint. Delivery is
// best-effort and at-most-once: outcomes are logged, nothing is retried,
// and no failure propagates to the caller.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewNotifier creates a webhook notifier. An empty URL disables delivery.
func NewNotifier(url string, logger *observability.Logger) *Notifier {
	return &Notifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Notify sends payload as JSON to the configured endpoint and logs the
// response status. The response body is discarded.
func (n *Notifier) Notify(ctx context.Context, payload interface{}) {
	if n.url == "" {
		n.logger.Info(ctx, "WEBHOOK_URL is not configured, skipping webhook delivery")
		return
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error(ctx, "Failed to marshal webhook payload", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		n.logger.Error(ctx, "Failed to create webhook request", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error(ctx, "Failed to send webhook", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "webhook_status", Value: resp.StatusCode},
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		n.logger.Info(ctx, "Webhook delivered")
	} else {
		n.logger.Error(ctx, "Webhook delivery failed",
			fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
}
