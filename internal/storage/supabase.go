package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/config"
)

// SupabaseStorage talks to the Supabase storage REST API directly. There is
// no official Go client, so this is a thin HTTP wrapper over the three
// endpoints the pipeline needs.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewSupabaseStorage(cfg config.StorageConfig, log zerolog.Logger) (*SupabaseStorage, error) {
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		return nil, fmt.Errorf("supabase storage requires url and service key")
	}
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/") + "/storage/v1",
		serviceKey: cfg.SupabaseKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}, nil
}

func (s *SupabaseStorage) Upload(ctx context.Context, r io.Reader, size int64, bucket, key, contentType string) (string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, r)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("supabase upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	s.log.Debug().Str("bucket", bucket).Str("key", key).Msg("object uploaded")
	return key, nil
}

func (s *SupabaseStorage) PresignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	url := fmt.Sprintf("%s/object/sign/%s/%s", s.baseURL, bucket, key)
	payload, err := json.Marshal(map[string]int{"expiresIn": int(ttl.Seconds())})
	if err != nil {
		return "", fmt.Errorf("encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase sign: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("supabase sign: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	return s.baseURL + signed.SignedURL, nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, bucket, key string) error {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("supabase delete: status %d", resp.StatusCode)
	}
	return nil
}
