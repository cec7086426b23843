package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/config"
)

// Storage is the object-store capability consumed by the pipeline. Two
// implementations exist; exactly one is constructed per process.
type Storage interface {
	// Upload stores the object and returns its key.
	Upload(ctx context.Context, r io.Reader, size int64, bucket, key, contentType string) (string, error)
	// PresignedURL returns a time-bounded GET URL for the object.
	PresignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	// Delete removes the object.
	Delete(ctx context.Context, bucket, key string) error
}

// New selects the backend once at startup based on configuration.
func New(cfg config.StorageConfig, log zerolog.Logger) (Storage, error) {
	switch cfg.Mode {
	case "supabase":
		return NewSupabaseStorage(cfg, log)
	case "minio", "":
		return NewMinioStorage(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
	}
}
