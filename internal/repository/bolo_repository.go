package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Bolo struct {
	ID                  string `gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	PlatePattern        string `gorm:"not null;index"`
	Description         *string
	CreatedBy           *string `gorm:"type:uuid"`
	Active              bool    `gorm:"not null;default:true;index"`
	Priority            int     `gorm:"not null;default:1"`
	NotificationWebhook *string
	NotificationEmail   *string
	CreatedAt           time.Time
	ExpiresAt           *time.Time
}

type BoloMatch struct {
	ID                string    `gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	BoloID            string    `gorm:"not null;type:uuid;index"`
	EventID           string    `gorm:"not null;type:uuid;index"`
	MatchedAt         time.Time `gorm:"not null"`
	NotificationSent  bool      `gorm:"not null;default:false"`
	NotificationError *string
}

type BoloRepository struct {
	db *gorm.DB
}

func NewBoloRepository(db *gorm.DB) *BoloRepository {
	return &BoloRepository{db: db}
}

func (r *BoloRepository) Create(ctx context.Context, bolo *Bolo) error {
	return r.db.WithContext(ctx).Create(bolo).Error
}

// ListActive returns every rule flagged active. Expiry is checked by the
// matcher at evaluation time, not here, so the same query serves rules whose
// expiry passed moments ago.
func (r *BoloRepository) ListActive(ctx context.Context) ([]Bolo, error) {
	var bolos []Bolo
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Find(&bolos).Error
	return bolos, err
}

func (r *BoloRepository) List(ctx context.Context, limit, offset int) ([]Bolo, error) {
	query := r.db.WithContext(ctx).Model(&Bolo{}).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var bolos []Bolo
	err := query.Find(&bolos).Error
	return bolos, err
}

func (r *BoloRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Bolo{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (r *BoloRepository) CreateMatch(ctx context.Context, match *BoloMatch) error {
	return r.db.WithContext(ctx).Create(match).Error
}

// RecordNotification stores the dispatch outcome on an existing match row.
func (r *BoloRepository) RecordNotification(ctx context.Context, matchID string, sent bool, errMsg string) error {
	updates := map[string]interface{}{
		"notification_sent": sent,
	}
	if errMsg != "" {
		updates["notification_error"] = errMsg
	}
	return r.db.WithContext(ctx).Model(&BoloMatch{}).
		Where("id = ?", matchID).
		Updates(updates).Error
}
