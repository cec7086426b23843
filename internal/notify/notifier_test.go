package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/repository"
)

func testBolo(webhook string) *repository.Bolo {
	b := &repository.Bolo{ID: "bolo-1", PlatePattern: "ABC"}
	if webhook != "" {
		b.NotificationWebhook = &webhook
	}
	return b
}

func testEvent() *repository.Event {
	return &repository.Event{
		ID:         "event-1",
		Plate:      "ABC 123",
		Confidence: 0.93,
		CapturedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestNotifyPostsPayload(t *testing.T) {
	var got webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), testBolo(ts.URL), testEvent()); err != nil {
		t.Fatal(err)
	}

	if got.BoloID != "bolo-1" || got.EventID != "event-1" {
		t.Errorf("payload ids = %s/%s", got.BoloID, got.EventID)
	}
	if got.Plate != "ABC 123" {
		t.Errorf("payload plate = %q", got.Plate)
	}
	if got.Confidence != 0.93 {
		t.Errorf("payload confidence = %v", got.Confidence)
	}
}

func TestNotifyNoWebhookIsNoop(t *testing.T) {
	n := NewWebhookNotifier(time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), testBolo(""), testEvent()); err != nil {
		t.Fatalf("no-webhook rule must be a no-op success, got %v", err)
	}
}

func TestNotifyNon2xxIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), testBolo(ts.URL), testEvent()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestNotifyTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		ts.Close()
	}()

	n := NewWebhookNotifier(20*time.Millisecond, zerolog.Nop())
	start := time.Now()
	err := n.Notify(context.Background(), testBolo(ts.URL), testEvent())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not bounded: took %v", elapsed)
	}
}
