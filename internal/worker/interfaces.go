package worker

import (
	"context"
	"time"

	"anpr-pipeline/internal/domain/plates"
	"anpr-pipeline/internal/repository"
)

// The worker depends on narrow consumer-side interfaces so the pipeline can
// be exercised without Postgres, Redis or a live webhook in tests.

type UploadStore interface {
	GetByID(ctx context.Context, id string) (*repository.Upload, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	MarkDone(ctx context.Context, id string, eventsDetected int, completedAt time.Time) error
	MarkFailed(ctx context.Context, id string, errMsg string, completedAt time.Time) error
}

type EventStore interface {
	Create(ctx context.Context, event *repository.Event) error
}

type BoloStore interface {
	ListActive(ctx context.Context) ([]repository.Bolo, error)
	CreateMatch(ctx context.Context, match *repository.BoloMatch) error
	RecordNotification(ctx context.Context, matchID string, sent bool, errMsg string) error
}

type Notifier interface {
	Notify(ctx context.Context, bolo *repository.Bolo, event *repository.Event) error
}

type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*plates.JobMessage, error)
	Len(ctx context.Context) (int64, error)
}
