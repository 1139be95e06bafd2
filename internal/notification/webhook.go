package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// WebhookNotifier POSTs alerts as JSON to an arbitrary endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: newHTTPClient(), now: time.Now}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

type webhookPayload struct {
	Level   AlertLevel `json:"level"`
	Symbol  string     `json:"symbol"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	TS      time.Time  `json:"ts"`
	SentAt  time.Time  `json:"sent_at"`
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	p := webhookPayload{
		Level:   alert.Level,
		Symbol:  alert.Symbol,
		Title:   alert.Title,
		Message: alert.Message,
		TS:      alert.TS.UTC(),
		SentAt:  w.now().UTC(),
	}
	if _, err := postJSON(ctx, w.client, w.url, p); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	log.Printf("[webhook] sent alert: %s", alert.Title)
	return nil
}
