package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"anpr-pipeline/internal/domain/plates"
)

type Upload struct {
	ID             string              `gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	JobID          string              `gorm:"not null;uniqueIndex"`
	CameraID       *string             `gorm:"type:uuid"`
	UploadedBy     *string             `gorm:"type:uuid"`
	Filename       string              `gorm:"not null"`
	StoragePath    string              `gorm:"not null"`
	FileSize       int64               `gorm:"not null"`
	Status         plates.UploadStatus `gorm:"not null;default:queued"`
	ErrorMessage   *string
	Metadata       datatypes.JSON
	EventsDetected int `gorm:"not null;default:0"`
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

type UploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) Create(ctx context.Context, upload *Upload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (*Upload, error) {
	var upload Upload
	if err := r.db.WithContext(ctx).First(&upload, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *UploadRepository) GetByJobID(ctx context.Context, jobID string) (*Upload, error) {
	var upload Upload
	if err := r.db.WithContext(ctx).First(&upload, "job_id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

// MarkProcessing commits the status flip before any detection work starts so
// concurrent status reads are accurate.
func (r *UploadRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&Upload{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     plates.StatusProcessing,
			"started_at": startedAt,
		}).Error
}

func (r *UploadRepository) MarkDone(ctx context.Context, id string, eventsDetected int, completedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&Upload{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          plates.StatusDone,
			"events_detected": eventsDetected,
			"completed_at":    completedAt,
		}).Error
}

func (r *UploadRepository) MarkFailed(ctx context.Context, id string, errMsg string, completedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&Upload{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        plates.StatusFailed,
			"error_message": errMsg,
			"completed_at":  completedAt,
		}).Error
}
