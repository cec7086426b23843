package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"anpr-pipeline/internal/domain/plates"
)

type Event struct {
	ID              string             `gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	UploadID        string             `gorm:"not null;type:uuid;index"`
	CameraID        *string            `gorm:"type:uuid;index"`
	Plate           string             `gorm:"not null;index"`
	NormalizedPlate string             `gorm:"not null;index"`
	Confidence      float64            `gorm:"not null"`
	BBox            datatypes.JSON     `gorm:"column:bbox;not null"`
	FrameNo         int                `gorm:"not null"`
	CapturedAt      time.Time          `gorm:"not null;index"`
	CropPath        string             `gorm:"not null"`
	ReviewState     plates.ReviewState `gorm:"not null;default:unreviewed;index"`
	ReviewedBy      *string            `gorm:"type:uuid"`
	ReviewedAt      *time.Time
	Notes           *string
	CreatedAt       time.Time
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*Event, error) {
	var event Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) Find(ctx context.Context, normalizedPlate *string, from, to *time.Time, limit, offset int) ([]Event, error) {
	query := r.db.WithContext(ctx).Model(&Event{})

	if normalizedPlate != nil {
		query = query.Where("normalized_plate = ?", *normalizedPlate)
	}
	if from != nil {
		query = query.Where("captured_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("captured_at <= ?", *to)
	}

	query = query.Order("captured_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var events []Event
	err := query.Find(&events).Error
	return events, err
}

func (r *EventRepository) CountForUpload(ctx context.Context, uploadID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Event{}).
		Where("upload_id = ?", uploadID).
		Count(&count).Error
	return count, err
}

// Review applies a reviewer's verdict to an event. Only the review API calls
// this; the worker never mutates events after creation.
func (r *EventRepository) Review(ctx context.Context, id string, state plates.ReviewState, reviewedBy string, notes *string, reviewedAt time.Time) error {
	updates := map[string]interface{}{
		"review_state": state,
		"reviewed_by":  reviewedBy,
		"reviewed_at":  reviewedAt,
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	return r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		Updates(updates).Error
}
