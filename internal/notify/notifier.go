package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/repository"
)

// WebhookNotifier delivers watch-list match alerts. Delivery is best-effort:
// a failure is returned only so the caller can record it, never retried.
type WebhookNotifier struct {
	httpClient *http.Client
	log        zerolog.Logger
}

func NewWebhookNotifier(timeout time.Duration, log zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type webhookPayload struct {
	BoloID     string    `json:"bolo_id"`
	EventID    string    `json:"event_id"`
	Plate      string    `json:"plate"`
	Confidence float64   `json:"confidence"`
	CapturedAt time.Time `json:"captured_at"`
}

// Notify posts the match to the rule's webhook. A rule without a webhook is
// a no-op success. The email path is configuration-only for now; no dispatch
// behavior is attached to it.
func (n *WebhookNotifier) Notify(ctx context.Context, bolo *repository.Bolo, event *repository.Event) error {
	if bolo.NotificationWebhook == nil || *bolo.NotificationWebhook == "" {
		return nil
	}

	payload, err := json.Marshal(webhookPayload{
		BoloID:     bolo.ID,
		EventID:    event.ID,
		Plate:      event.Plate,
		Confidence: event.Confidence,
		CapturedAt: event.CapturedAt,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *bolo.NotificationWebhook, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.log.Info().
		Str("bolo_id", bolo.ID).
		Str("event_id", event.ID).
		Msg("bolo webhook sent")
	return nil
}
