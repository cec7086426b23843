package detector

import (
	"context"
	"sync"

	"anpr-pipeline/internal/domain/plates"
)

// Source produces plate detections from a local media file. Implementations
// are opaque to the pipeline; the worker only consumes the stream.
type Source interface {
	Detect(ctx context.Context, mediaPath, cameraID string) (*Stream, error)
}

// Stream is a pull-based iterator over detection candidates, fed by a
// producer goroutine through a bounded channel. The consumer may stop early:
// Close releases the producer and the underlying media handle regardless of
// how far iteration got.
type Stream struct {
	ch     chan plates.Candidate
	cancel context.CancelFunc

	mu     sync.Mutex
	err    error
	closed bool

	done chan struct{}
}

func newStream(cancel context.CancelFunc, buffer int) *Stream {
	return &Stream{
		ch:     make(chan plates.Candidate, buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Next returns the next candidate. ok is false once the stream is exhausted
// or closed; check Err afterwards to distinguish completion from failure.
func (s *Stream) Next() (plates.Candidate, bool) {
	c, ok := <-s.ch
	return c, ok
}

// Err reports the terminal stream error, if any. Valid after Next returned
// false.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the producer and waits for it to finish. Safe to call more
// than once and concurrently with Next.
func (s *Stream) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.cancel()
	}
	s.mu.Unlock()

	// Drain so the producer never blocks on send.
	go func() {
		for range s.ch {
		}
	}()
	<-s.done
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil && !s.closed {
		s.err = err
	}
}

func (s *Stream) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// finish must be called exactly once by the producer when it stops.
func (s *Stream) finish() {
	close(s.ch)
	close(s.done)
}
