// Package webhook implements the Notifier port by posting alerts to a
// configured HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Notifier)(nil)

// Notifier POSTs each alert as a small JSON document to a webhook URL.
// Failures are returned to the caller for logging; nothing is retried here.
type Notifier struct {
	url    string
	client *http.Client
}

// NewNotifier creates a Notifier for the given webhook URL.
func NewNotifier(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// payload is the webhook request body. The "content" field name matches the
// common chat-webhook convention.
type payload struct {
	Content string `json:"content"`
}

// Send posts the alert text. Non-2xx responses are reported as errors.
func (n *Notifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(payload{Content: text})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post alert: unexpected status %d", resp.StatusCode)
	}

	return nil
}
