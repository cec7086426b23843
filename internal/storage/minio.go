package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"anpr-pipeline/internal/config"
)

type MinioStorage struct {
	client *minio.Client
	log    zerolog.Logger
}

func NewMinioStorage(cfg config.StorageConfig, log zerolog.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}

	s := &MinioStorage{client: client, log: log}
	if err := s.ensureBuckets(context.Background(), cfg.UploadsBucket, cfg.CropsBucket); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioStorage) ensureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
			s.log.Info().Str("bucket", bucket).Msg("created storage bucket")
		}
	}
	return nil
}

func (s *MinioStorage) Upload(ctx context.Context, r io.Reader, size int64, bucket, key, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("minio put object: %w", err)
	}
	s.log.Debug().Str("bucket", bucket).Str("key", key).Msg("object uploaded")
	return key, nil
}

func (s *MinioStorage) PresignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("minio presign: %w", err)
	}
	return u.String(), nil
}

func (s *MinioStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove object: %w", err)
	}
	return nil
}
