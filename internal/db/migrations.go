package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS uploads (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		job_id          TEXT NOT NULL,
		camera_id       UUID,
		uploaded_by     UUID,
		filename        TEXT NOT NULL,
		storage_path    TEXT NOT NULL,
		file_size       BIGINT NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'queued',
		error_message   TEXT,
		metadata        JSONB,
		events_detected INT NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at      TIMESTAMPTZ,
		completed_at    TIMESTAMPTZ
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_uploads_job_id ON uploads(job_id);`,
	`CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);`,
	`CREATE TABLE IF NOT EXISTS events (
		id               UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		upload_id        UUID NOT NULL REFERENCES uploads(id),
		camera_id        UUID,
		plate            TEXT NOT NULL,
		normalized_plate TEXT NOT NULL,
		confidence       NUMERIC(5,4) NOT NULL,
		bbox             JSONB NOT NULL,
		frame_no         INT NOT NULL,
		captured_at      TIMESTAMPTZ NOT NULL,
		crop_path        TEXT NOT NULL,
		review_state     TEXT NOT NULL DEFAULT 'unreviewed',
		reviewed_by      UUID,
		reviewed_at      TIMESTAMPTZ,
		notes            TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_upload_id ON events(upload_id);`,
	`CREATE INDEX IF NOT EXISTS idx_events_normalized_plate ON events(normalized_plate);`,
	`CREATE INDEX IF NOT EXISTS idx_events_captured_at ON events(captured_at);`,
	`CREATE INDEX IF NOT EXISTS idx_events_review_state ON events(review_state);`,
	`CREATE TABLE IF NOT EXISTS bolos (
		id                   UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		plate_pattern        TEXT NOT NULL,
		description          TEXT,
		created_by           UUID,
		active               BOOLEAN NOT NULL DEFAULT true,
		priority             INT NOT NULL DEFAULT 1,
		notification_webhook TEXT,
		notification_email   TEXT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at           TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_bolos_active ON bolos(active);`,
	`CREATE TABLE IF NOT EXISTS bolo_matches (
		id                 UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		bolo_id            UUID NOT NULL REFERENCES bolos(id),
		event_id           UUID NOT NULL REFERENCES events(id),
		matched_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		notification_sent  BOOLEAN NOT NULL DEFAULT false,
		notification_error TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_bolo_matches_bolo_id ON bolo_matches(bolo_id);`,
	`CREATE INDEX IF NOT EXISTS idx_bolo_matches_event_id ON bolo_matches(event_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
