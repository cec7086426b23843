package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/repository"
)

func strPtr(s string) *string { return &s }

func testEvent(normalized string) *repository.Event {
	return &repository.Event{
		ID:              "event-1",
		Plate:           normalized,
		NormalizedPlate: normalized,
		Confidence:      0.91,
		CapturedAt:      time.Now().UTC(),
	}
}

func TestMatcherPatternMatch(t *testing.T) {
	bolos := newFakeBoloStore(
		repository.Bolo{ID: "b1", PlatePattern: "ABC.*", Active: true},
		repository.Bolo{ID: "b2", PlatePattern: "XYZ", Active: true},
	)
	notifier := &fakeNotifier{}
	m := NewMatcher(bolos, notifier, zerolog.Nop())

	if err := m.Evaluate(context.Background(), testEvent("ABC123")); err != nil {
		t.Fatal(err)
	}

	if len(bolos.matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(bolos.matches))
	}
	if bolos.matches[0].BoloID != "b1" {
		t.Errorf("matched bolo %s, want b1", bolos.matches[0].BoloID)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "b1" {
		t.Errorf("notifier calls = %v, want [b1]", notifier.calls)
	}
	if rec := bolos.notifications["match-1"]; !rec.sent {
		t.Error("notification outcome not recorded as sent")
	}
}

func TestMatcherCaseInsensitiveSubstring(t *testing.T) {
	bolos := newFakeBoloStore(
		repository.Bolo{ID: "b1", PlatePattern: "c12", Active: true},
	)
	m := NewMatcher(bolos, &fakeNotifier{}, zerolog.Nop())

	// Pattern matches anywhere in the text, case-insensitively.
	if err := m.Evaluate(context.Background(), testEvent("ABC123")); err != nil {
		t.Fatal(err)
	}
	if len(bolos.matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(bolos.matches))
	}
}

func TestMatcherSkipsExpiredAndInactive(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	bolos := newFakeBoloStore(
		repository.Bolo{ID: "expired", PlatePattern: "ABC", Active: true, ExpiresAt: &past},
		repository.Bolo{ID: "inactive", PlatePattern: "ABC", Active: false},
		repository.Bolo{ID: "live", PlatePattern: "ABC", Active: true, ExpiresAt: &future},
	)
	m := NewMatcher(bolos, &fakeNotifier{}, zerolog.Nop())

	if err := m.Evaluate(context.Background(), testEvent("ABC123")); err != nil {
		t.Fatal(err)
	}

	if len(bolos.matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(bolos.matches))
	}
	if bolos.matches[0].BoloID != "live" {
		t.Errorf("matched %s, want live", bolos.matches[0].BoloID)
	}
}

func TestMatcherInvalidPatternIsolation(t *testing.T) {
	bolos := newFakeBoloStore(
		repository.Bolo{ID: "broken", PlatePattern: "([", Active: true},
		repository.Bolo{ID: "good", PlatePattern: "ABC", Active: true},
	)
	m := NewMatcher(bolos, &fakeNotifier{}, zerolog.Nop())

	if err := m.Evaluate(context.Background(), testEvent("ABC123")); err != nil {
		t.Fatalf("broken pattern escaped evaluation: %v", err)
	}

	if len(bolos.matches) != 1 || bolos.matches[0].BoloID != "good" {
		t.Fatalf("broken pattern prevented the valid rule: matches = %+v", bolos.matches)
	}
}

func TestMatcherIndependentNotificationOutcomes(t *testing.T) {
	bolos := newFakeBoloStore(
		repository.Bolo{ID: "failing", PlatePattern: "ABC", Active: true},
		repository.Bolo{ID: "working", PlatePattern: "123", Active: true},
	)
	notifier := &fakeNotifier{fail: map[string]error{
		"failing": errors.New("webhook timed out"),
	}}
	m := NewMatcher(bolos, notifier, zerolog.Nop())

	if err := m.Evaluate(context.Background(), testEvent("ABC123")); err != nil {
		t.Fatal(err)
	}

	if len(bolos.matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(bolos.matches))
	}
	if len(notifier.calls) != 2 {
		t.Fatalf("got %d dispatch attempts, want 2", len(notifier.calls))
	}

	recFailing := bolos.notifications["match-1"]
	if recFailing.sent || recFailing.errMsg == "" {
		t.Errorf("failing rule outcome = %+v, want unsent with error", recFailing)
	}
	recWorking := bolos.notifications["match-2"]
	if !recWorking.sent {
		t.Errorf("working rule outcome = %+v, want sent", recWorking)
	}
}

func TestMatcherNoMatchCreatesNothing(t *testing.T) {
	bolos := newFakeBoloStore(
		repository.Bolo{ID: "b1", PlatePattern: "XYZ", Active: true},
	)
	notifier := &fakeNotifier{}
	m := NewMatcher(bolos, notifier, zerolog.Nop())

	if err := m.Evaluate(context.Background(), testEvent("ABC123")); err != nil {
		t.Fatal(err)
	}
	if len(bolos.matches) != 0 {
		t.Fatalf("got %d matches, want 0", len(bolos.matches))
	}
	if len(notifier.calls) != 0 {
		t.Fatalf("notifier invoked with no match")
	}
}
