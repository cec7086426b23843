package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"anpr-pipeline/internal/config"
	"anpr-pipeline/internal/domain/plates"
	"anpr-pipeline/internal/queue"
	"anpr-pipeline/internal/repository"
	"anpr-pipeline/internal/storage"
	"anpr-pipeline/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

var videoExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
	".mkv": true,
}

// Service is the intake-side application layer: it accepts uploads, feeds
// the job queue and answers status, event and watch-list queries.
type Service struct {
	uploads *repository.UploadRepository
	events  *repository.EventRepository
	bolos   *repository.BoloRepository
	store   storage.Storage
	jobs    *queue.JobQueue
	cfg     config.StorageConfig
	log     zerolog.Logger
}

func New(
	uploads *repository.UploadRepository,
	events *repository.EventRepository,
	bolos *repository.BoloRepository,
	store storage.Storage,
	jobs *queue.JobQueue,
	cfg config.StorageConfig,
	log zerolog.Logger,
) *Service {
	return &Service{
		uploads: uploads,
		events:  events,
		bolos:   bolos,
		store:   store,
		jobs:    jobs,
		cfg:     cfg,
		log:     log,
	}
}

// CreateUpload stores the video, creates the queued upload row and enqueues
// the processing job.
func (s *Service) CreateUpload(ctx context.Context, file io.Reader, size int64, filename, cameraID, uploadedBy string) (*repository.Upload, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !videoExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, ext)
	}

	jobID := uuid.New().String()
	storagePath := fmt.Sprintf("uploads/%s/%s", jobID, filename)

	contentType := "video/mp4"
	if _, err := s.store.Upload(ctx, file, size, s.cfg.UploadsBucket, storagePath, contentType); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to store video")
		return nil, fmt.Errorf("store video: %w", err)
	}

	upload := &repository.Upload{
		JobID:       jobID,
		Filename:    filename,
		StoragePath: storagePath,
		FileSize:    size,
		Status:      plates.StatusQueued,
	}
	if cameraID != "" {
		upload.CameraID = &cameraID
	}
	if uploadedBy != "" {
		upload.UploadedBy = &uploadedBy
	}

	if err := s.uploads.Create(ctx, upload); err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}

	if err := s.jobs.Enqueue(ctx, plates.JobMessage{
		JobID:       jobID,
		UploadID:    upload.ID,
		StoragePath: storagePath,
		CameraID:    cameraID,
	}); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.log.Info().
		Str("job_id", jobID).
		Str("uploaded_by", uploadedBy).
		Msg("upload created")
	return upload, nil
}

// GetJob answers the status-polling surface: the upload row is the only
// place a job's outcome is visible.
func (s *Service) GetJob(ctx context.Context, jobID string) (*repository.Upload, error) {
	upload, err := s.uploads.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	return upload, nil
}

func (s *Service) FindEvents(ctx context.Context, plateQuery *string, from, to *string, limit, offset int) ([]repository.Event, error) {
	var normalizedPlate *string
	if plateQuery != nil {
		normalized := utils.NormalizePlate(*plateQuery)
		if normalized != "" {
			normalizedPlate = &normalized
		}
	}

	var fromTime, toTime *time.Time
	if from != nil && *from != "" {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid from time format", ErrInvalidInput)
		}
		fromTime = &t
	}
	if to != nil && *to != "" {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid to time format", ErrInvalidInput)
		}
		toTime = &t
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	return s.events.Find(ctx, normalizedPlate, fromTime, toTime, limit, offset)
}

// ReviewEvent applies a reviewer's verdict.
func (s *Service) ReviewEvent(ctx context.Context, eventID string, state plates.ReviewState, reviewedBy string, notes *string) error {
	switch state {
	case plates.ReviewConfirmed, plates.ReviewCorrected, plates.ReviewRejected:
	default:
		return fmt.Errorf("%w: invalid review state %q", ErrInvalidInput, state)
	}

	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
		}
		return fmt.Errorf("load event: %w", err)
	}

	return s.events.Review(ctx, eventID, state, reviewedBy, notes, time.Now().UTC())
}

// CreateBolo registers a watch-list rule. The pattern is validated eagerly
// so obviously broken rules are rejected at the door, but evaluation still
// guards against patterns that were valid here and malformed in storage.
func (s *Service) CreateBolo(ctx context.Context, pattern, description, createdBy string, priority int, webhook, email *string, expiresAt *time.Time) (*repository.Bolo, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: pattern is required", ErrInvalidInput)
	}
	if priority <= 0 {
		priority = 1
	}

	bolo := &repository.Bolo{
		PlatePattern:        pattern,
		Active:              true,
		Priority:            priority,
		NotificationWebhook: webhook,
		NotificationEmail:   email,
		ExpiresAt:           expiresAt,
	}
	if description != "" {
		bolo.Description = &description
	}
	if createdBy != "" {
		bolo.CreatedBy = &createdBy
	}

	if err := s.bolos.Create(ctx, bolo); err != nil {
		return nil, fmt.Errorf("create bolo: %w", err)
	}

	s.log.Info().
		Str("bolo_id", bolo.ID).
		Str("pattern", pattern).
		Msg("bolo created")
	return bolo, nil
}

func (s *Service) ListBolos(ctx context.Context, limit, offset int) ([]repository.Bolo, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.bolos.List(ctx, limit, offset)
}

func (s *Service) DeactivateBolo(ctx context.Context, id string) error {
	return s.bolos.Deactivate(ctx, id)
}
