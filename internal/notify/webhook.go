package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const webhookTimeout = 5 * time.Second

// Webhook posts notifications as JSON to an external endpoint.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook constructs a webhook channel.
func NewWebhook(url string) (*Webhook, error) {
	if url == "" {
		return nil, errors.New("notify: empty webhook url")
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
	}, nil
}

// Name identifies the channel in metrics and logs.
func (w *Webhook) Name() string { return "webhook" }

// Notify posts the notification payload.
func (w *Webhook) Notify(ctx context.Context, userID int64, title, body string) error {
	payload, err := json.Marshal(map[string]any{
		"user_id": userID,
		"title":   title,
		"body":    body,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook delivery: status %d", resp.StatusCode)
	}
	return nil
}
