package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"anpr-pipeline/internal/domain/plates"
)

// JobQueue is a durable FIFO over a Redis list. Enqueue pushes to the head,
// Dequeue blocks on the tail, so jobs are delivered oldest-first. BRPOP is
// atomic: each payload reaches exactly one consumer, which is the only
// cross-worker coordination in the system.
type JobQueue struct {
	client *redis.Client
	name   string
	log    zerolog.Logger
}

func New(client *redis.Client, name string, log zerolog.Logger) *JobQueue {
	return &JobQueue{client: client, name: name, log: log}
}

// Connect builds the Redis client and verifies connectivity.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (q *JobQueue) Enqueue(ctx context.Context, msg plates.JobMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	q.log.Info().
		Str("queue", q.name).
		Str("job_id", msg.JobID).
		Msg("job enqueued")
	return nil
}

// Dequeue pops the next job, blocking up to timeout. An empty queue yields
// (nil, nil), not an error.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*plates.JobMessage, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue job: %w", err)
	}
	if len(res) < 2 {
		return nil, nil
	}

	var msg plates.JobMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	return &msg, nil
}

// Len reports the number of pending jobs.
func (q *JobQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
