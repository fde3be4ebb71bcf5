package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WebhookNotifier POSTs each notification as JSON to a fixed URL.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// NewWebhookNotifier creates a webhook sink. retries counts extra attempts
// after the first failure.
func NewWebhookNotifier(url string, timeout time.Duration, retries int, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: 200 * time.Millisecond,
		logger:  logger,
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.backoff * time.Duration(attempt)):
			}
		}
		lastErr = w.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		w.logger.Debug("webhook attempt failed", zap.Int("attempt", attempt+1), zap.Error(lastErr))
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", w.retries+1, lastErr)
}

func (w *WebhookNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (w *WebhookNotifier) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
