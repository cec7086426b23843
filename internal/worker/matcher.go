package worker

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/repository"
)

// Matcher evaluates freshly persisted events against the active watch-list.
// Rules are re-read per event rather than cached: the set is small and may
// change between evaluations, and correctness wins over throughput here.
type Matcher struct {
	bolos    BoloStore
	notifier Notifier
	log      zerolog.Logger
}

func NewMatcher(bolos BoloStore, notifier Notifier, log zerolog.Logger) *Matcher {
	return &Matcher{bolos: bolos, notifier: notifier, log: log}
}

// Evaluate finds every active, non-expired rule whose pattern occurs in the
// event's normalized plate and creates one match per hit. A malformed
// pattern or a failed notification is isolated to its rule; only database
// faults propagate.
func (m *Matcher) Evaluate(ctx context.Context, event *repository.Event) error {
	bolos, err := m.bolos.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active bolos: %w", err)
	}

	now := time.Now().UTC()
	for i := range bolos {
		bolo := &bolos[i]

		if bolo.ExpiresAt != nil && bolo.ExpiresAt.Before(now) {
			continue
		}

		re, err := regexp.Compile("(?i)" + bolo.PlatePattern)
		if err != nil {
			m.log.Error().
				Err(err).
				Str("bolo_id", bolo.ID).
				Str("pattern", bolo.PlatePattern).
				Msg("invalid bolo pattern, skipping rule")
			continue
		}

		// Substring search: the pattern matches if found anywhere in
		// the normalized plate.
		if !re.MatchString(event.NormalizedPlate) {
			continue
		}

		match := &repository.BoloMatch{
			BoloID:    bolo.ID,
			EventID:   event.ID,
			MatchedAt: now,
		}
		if err := m.bolos.CreateMatch(ctx, match); err != nil {
			return fmt.Errorf("create bolo match: %w", err)
		}

		m.log.Warn().
			Str("bolo_id", bolo.ID).
			Str("event_id", event.ID).
			Str("plate", event.Plate).
			Msg("bolo match detected")

		m.dispatch(ctx, bolo, event, match)
	}

	return nil
}

// dispatch sends the notification and records the outcome on the match row.
// Failures are absorbed: they never reach the caller.
func (m *Matcher) dispatch(ctx context.Context, bolo *repository.Bolo, event *repository.Event, match *repository.BoloMatch) {
	if err := m.notifier.Notify(ctx, bolo, event); err != nil {
		m.log.Error().
			Err(err).
			Str("bolo_id", bolo.ID).
			Str("event_id", event.ID).
			Msg("failed to send bolo notification")
		if recErr := m.bolos.RecordNotification(ctx, match.ID, false, err.Error()); recErr != nil {
			m.log.Error().Err(recErr).Str("match_id", match.ID).Msg("failed to record notification error")
		}
		return
	}

	if err := m.bolos.RecordNotification(ctx, match.ID, true, ""); err != nil {
		m.log.Error().Err(err).Str("match_id", match.ID).Msg("failed to record notification result")
	}
}
