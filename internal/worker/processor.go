package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"anpr-pipeline/internal/config"
	"anpr-pipeline/internal/detector"
	"anpr-pipeline/internal/domain/plates"
	"anpr-pipeline/internal/metrics"
	"anpr-pipeline/internal/repository"
	"anpr-pipeline/internal/storage"
)

const presignTTL = time.Hour

// Processor owns one job from dequeue to terminal status: it downloads the
// source video, drives the detection stream, persists events one commit at a
// time, and hands each new event to the matcher.
type Processor struct {
	uploads UploadStore
	events  EventStore
	matcher *Matcher
	store   storage.Storage
	source  detector.Source
	metrics *metrics.Metrics
	log     zerolog.Logger

	httpClient    *http.Client
	uploadsBucket string
	cropsBucket   string
	scratchDir    string
	threshold     float64
}

func NewProcessor(
	uploads UploadStore,
	events EventStore,
	matcher *Matcher,
	store storage.Storage,
	source detector.Source,
	m *metrics.Metrics,
	storageCfg config.StorageConfig,
	workerCfg config.WorkerConfig,
	threshold float64,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		uploads:       uploads,
		events:        events,
		matcher:       matcher,
		store:         store,
		source:        source,
		metrics:       m,
		log:           log,
		httpClient:    &http.Client{Timeout: workerCfg.DownloadTimeout},
		uploadsBucket: storageCfg.UploadsBucket,
		cropsBucket:   storageCfg.CropsBucket,
		scratchDir:    workerCfg.ScratchDir,
		threshold:     threshold,
	}
}

// Process runs one dequeued job to completion. Job-level failures are
// terminal: the upload is marked failed and no retry happens here. The
// returned error covers only faults the processor could not absorb, such as
// a status commit failing.
//
// Queue pop is not tied to completion, so a worker crash mid-job leaves the
// upload stuck in processing with no automatic requeue. Operators reconcile
// stuck rows out of band.
func (p *Processor) Process(ctx context.Context, msg plates.JobMessage) error {
	upload, err := p.uploads.GetByID(ctx, msg.UploadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing to write a failure to; the job is dropped.
			p.log.Error().
				Str("job_id", msg.JobID).
				Str("upload_id", msg.UploadID).
				Msg("upload not found, dropping job")
			return nil
		}
		return fmt.Errorf("load upload %s: %w", msg.UploadID, err)
	}

	if err := p.uploads.MarkProcessing(ctx, upload.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark upload processing: %w", err)
	}

	p.log.Info().
		Str("job_id", msg.JobID).
		Str("upload_id", upload.ID).
		Msg("processing upload")

	eventsCount, procErr := p.run(ctx, msg, upload)
	if procErr != nil {
		p.log.Error().
			Err(procErr).
			Str("job_id", msg.JobID).
			Msg("job processing failed")
		p.metrics.JobsFailed.Inc()
		if err := p.uploads.MarkFailed(ctx, upload.ID, procErr.Error(), time.Now().UTC()); err != nil {
			return fmt.Errorf("mark upload failed: %w", err)
		}
		return nil
	}

	if err := p.uploads.MarkDone(ctx, upload.ID, eventsCount, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark upload done: %w", err)
	}

	p.metrics.JobsProcessed.Inc()
	p.log.Info().
		Str("job_id", msg.JobID).
		Int("events", eventsCount).
		Msg("upload processed")
	return nil
}

// run performs the fallible middle of the job: download, detect, persist,
// match. It returns the number of events created.
func (p *Processor) run(ctx context.Context, msg plates.JobMessage, upload *repository.Upload) (int, error) {
	videoPath, err := p.downloadVideo(ctx, msg.StoragePath)
	if err != nil {
		return 0, err
	}

	cameraID := msg.CameraID
	if cameraID == "" && upload.CameraID != nil {
		cameraID = *upload.CameraID
	}

	stream, err := p.source.Detect(ctx, videoPath, cameraID)
	if err != nil {
		os.Remove(videoPath)
		return 0, fmt.Errorf("start detection: %w", err)
	}
	defer stream.Close()

	eventsCount := 0
	for {
		cand, ok := stream.Next()
		if !ok {
			break
		}
		// The detection boundary already filters, but the threshold is
		// re-applied here rather than trusted.
		if cand.Confidence < p.threshold {
			continue
		}

		event, err := p.saveEvent(ctx, upload, cand)
		if err != nil {
			p.metrics.EventsFailed.Inc()
			os.Remove(videoPath)
			return eventsCount, err
		}
		eventsCount++
		p.metrics.EventsProcessed.Inc()

		// Strictly after the event row is committed.
		if err := p.matcher.Evaluate(ctx, event); err != nil {
			os.Remove(videoPath)
			return eventsCount, err
		}
	}

	if err := stream.Err(); err != nil {
		os.Remove(videoPath)
		return eventsCount, err
	}

	// Scratch cleanup is best-effort; a leftover file never fails the job.
	if err := os.Remove(videoPath); err != nil {
		p.log.Warn().Err(err).Str("path", videoPath).Msg("failed to remove scratch video")
	}

	return eventsCount, nil
}

// downloadVideo resolves the storage locator to a local scratch file via a
// time-bounded presigned URL and a bounded-timeout fetch.
func (p *Processor) downloadVideo(ctx context.Context, storagePath string) (string, error) {
	url, err := p.store.PresignedURL(ctx, p.uploadsBucket, storagePath, presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign source video: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download source video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download source video: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(p.scratchDir, "anpr-*.mp4")
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close scratch file: %w", err)
	}

	p.log.Info().Str("path", tmp.Name()).Msg("video downloaded")
	return tmp.Name(), nil
}

// saveEvent uploads the crop and commits the event row. A crop upload
// failure aborts the whole job rather than skipping the detection silently.
func (p *Processor) saveEvent(ctx context.Context, upload *repository.Upload, cand plates.Candidate) (*repository.Event, error) {
	cropPath := fmt.Sprintf("crops/%s/%s.jpg", upload.ID, uuid.New())

	if _, err := p.store.Upload(ctx, bytes.NewReader(cand.Crop), int64(len(cand.Crop)), p.cropsBucket, cropPath, "image/jpeg"); err != nil {
		return nil, fmt.Errorf("upload crop: %w", err)
	}

	bbox, err := json.Marshal(cand.BBox)
	if err != nil {
		return nil, fmt.Errorf("encode bbox: %w", err)
	}

	event := &repository.Event{
		UploadID:        upload.ID,
		Plate:           cand.Plate,
		NormalizedPlate: cand.NormalizedPlate,
		Confidence:      cand.Confidence,
		BBox:            datatypes.JSON(bbox),
		FrameNo:         cand.FrameNo,
		CapturedAt:      cand.CapturedAt,
		CropPath:        cropPath,
		ReviewState:     plates.ReviewUnreviewed,
	}
	if cand.CameraID != "" {
		event.CameraID = &cand.CameraID
	} else if upload.CameraID != nil {
		event.CameraID = upload.CameraID
	}

	if err := p.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("save event: %w", err)
	}

	p.log.Info().
		Str("event_id", event.ID).
		Str("plate", event.Plate).
		Msg("event saved")
	return event, nil
}
