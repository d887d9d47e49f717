package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notifier sends operational alerts. Implementations must never block the
// caller on delivery failures; alerting is best-effort.
type Notifier interface {
	// Alert sends a named event with a detail payload
	Alert(ctx context.Context, event string, details map[string]any)
}

// WebhookNotifier posts alerts as JSON to a configured webhook URL.
// Failures are logged and swallowed.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier creates a WebhookNotifier. An empty URL yields a
// notifier that drops every alert.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Alert posts the event to the webhook. Errors are logged, never returned.
func (n *WebhookNotifier) Alert(ctx context.Context, event string, details map[string]any) {
	if n.url == "" {
		return
	}

	payload := map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"details":   details,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("failed to marshal alert payload",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("failed to build alert request",
			zap.String("event", event),
			zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("failed to deliver alert",
			zap.String("event", event),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Warn("alert webhook returned an error status",
			zap.String("event", event),
			zap.String("status", fmt.Sprintf("%d", resp.StatusCode)))
	}
}

// NopNotifier drops every alert. Used in tests and when alerting is not
// configured.
type NopNotifier struct{}

// Alert does nothing
func (NopNotifier) Alert(context.Context, string, map[string]any) {}

var (
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = NopNotifier{}
)
