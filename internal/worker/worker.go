package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/config"
	"anpr-pipeline/internal/domain/plates"
	"anpr-pipeline/internal/metrics"
)

// Worker is the top-level scheduling driver: it polls the queue and runs one
// job at a time. Scaling out means running more instances of the same loop
// against the shared queue; BRPOP's pop-once semantics is the only
// coordination between them.
type Worker struct {
	queue     Queue
	processor *Processor
	metrics   *metrics.Metrics
	cfg       config.WorkerConfig
	log       zerolog.Logger
}

func New(queue Queue, processor *Processor, m *metrics.Metrics, cfg config.WorkerConfig, log zerolog.Logger) *Worker {
	return &Worker{
		queue:     queue,
		processor: processor,
		metrics:   m,
		cfg:       cfg,
		log:       log,
	}
}

// Run polls until the context is cancelled. A single job's failure never
// terminates the loop: anything escaping the processor is logged and
// followed by a backoff sleep.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Dur("poll_timeout", w.cfg.PollTimeout).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error().Err(err).Msg("dequeue failed")
			w.sleep(ctx, w.cfg.ErrorBackoff)
			continue
		}
		if msg == nil {
			w.sleep(ctx, w.cfg.IdleSleep)
			continue
		}

		if depth, err := w.queue.Len(ctx); err == nil {
			w.metrics.QueueDepth.Set(float64(depth))
		}

		if err := w.runJob(ctx, msg); err != nil {
			w.log.Error().
				Err(err).
				Str("job_id", msg.JobID).
				Msg("worker error")
			w.sleep(ctx, w.cfg.ErrorBackoff)
		}
	}
}

// runJob isolates a crashing job from the loop.
func (w *Worker) runJob(ctx context.Context, msg *plates.JobMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return w.processor.Process(ctx, *msg)
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
