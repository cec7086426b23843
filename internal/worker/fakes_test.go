package worker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gorm.io/gorm"

	"anpr-pipeline/internal/domain/plates"
	"anpr-pipeline/internal/repository"
)

type fakeUploadStore struct {
	mu      sync.Mutex
	uploads map[string]*repository.Upload

	processing []string
	done       map[string]int
	failed     map[string]string
}

func newFakeUploadStore(uploads ...*repository.Upload) *fakeUploadStore {
	s := &fakeUploadStore{
		uploads: make(map[string]*repository.Upload),
		done:    make(map[string]int),
		failed:  make(map[string]string),
	}
	for _, u := range uploads {
		s.uploads[u.ID] = u
	}
	return s
}

func (s *fakeUploadStore) GetByID(_ context.Context, id string) (*repository.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (s *fakeUploadStore) MarkProcessing(_ context.Context, id string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = append(s.processing, id)
	return nil
}

func (s *fakeUploadStore) MarkDone(_ context.Context, id string, eventsDetected int, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done[id] = eventsDetected
	return nil
}

func (s *fakeUploadStore) MarkFailed(_ context.Context, id string, errMsg string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = errMsg
	return nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []*repository.Event
	err    error
}

func (s *fakeEventStore) Create(_ context.Context, event *repository.Event) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = fmt.Sprintf("event-%d", len(s.events)+1)
	s.events = append(s.events, event)
	return nil
}

type notificationRecord struct {
	sent   bool
	errMsg string
}

type fakeBoloStore struct {
	mu            sync.Mutex
	bolos         []repository.Bolo
	listErr       error
	matchErr      error
	matches       []*repository.BoloMatch
	notifications map[string]notificationRecord
}

func newFakeBoloStore(bolos ...repository.Bolo) *fakeBoloStore {
	return &fakeBoloStore{
		bolos:         bolos,
		notifications: make(map[string]notificationRecord),
	}
}

func (s *fakeBoloStore) ListActive(_ context.Context) ([]repository.Bolo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	active := make([]repository.Bolo, 0, len(s.bolos))
	for _, b := range s.bolos {
		if b.Active {
			active = append(active, b)
		}
	}
	return active, nil
}

func (s *fakeBoloStore) CreateMatch(_ context.Context, match *repository.BoloMatch) error {
	if s.matchErr != nil {
		return s.matchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	match.ID = fmt.Sprintf("match-%d", len(s.matches)+1)
	s.matches = append(s.matches, match)
	return nil
}

func (s *fakeBoloStore) RecordNotification(_ context.Context, matchID string, sent bool, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[matchID] = notificationRecord{sent: sent, errMsg: errMsg}
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string // bolo ids in dispatch order
	fail  map[string]error
}

func (n *fakeNotifier) Notify(_ context.Context, bolo *repository.Bolo, _ *repository.Event) error {
	n.mu.Lock()
	n.calls = append(n.calls, bolo.ID)
	n.mu.Unlock()
	if n.fail != nil {
		if err, ok := n.fail[bolo.ID]; ok {
			return err
		}
	}
	return nil
}

type fakeStorage struct {
	mu         sync.Mutex
	presignURL string
	presignErr error
	uploadErr  error
	uploaded   []string // keys
	deleted    []string
}

func (s *fakeStorage) Upload(_ context.Context, r io.Reader, _ int64, _, key, _ string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	_, _ = io.Copy(io.Discard, r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, key)
	return key, nil
}

func (s *fakeStorage) PresignedURL(_ context.Context, _, _ string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return s.presignURL, nil
}

func (s *fakeStorage) Delete(_ context.Context, _, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

// fakeQueue replays a scripted sequence of dequeue results.
type queueStep struct {
	msg *plates.JobMessage
	err error
}

type fakeQueue struct {
	mu    sync.Mutex
	steps []queueStep
	polls int
}

func (q *fakeQueue) Dequeue(_ context.Context, _ time.Duration) (*plates.JobMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.polls++
	if len(q.steps) == 0 {
		return nil, nil
	}
	step := q.steps[0]
	q.steps = q.steps[1:]
	return step.msg, step.err
}

func (q *fakeQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.steps)), nil
}

func (q *fakeQueue) pollCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.polls
}
