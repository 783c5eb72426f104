// Package objectstore persists completed artifacts to Google Cloud Storage.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Config holds durable object store settings
type Config struct {
	Bucket    string
	CDNDomain string // optional; public URLs fall back to storage.googleapis.com
	KeyPrefix string
}

// GCS implements the durable object store contract against a GCS bucket
type GCS struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
	keyPrefix string
	logger    *slog.Logger
}

// NewGCS creates a GCS-backed object store
func NewGCS(ctx context.Context, config *Config, logger *slog.Logger) (*GCS, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCS{
		client:    client,
		bucket:    config.Bucket,
		cdnDomain: strings.TrimSuffix(config.CDNDomain, "/"),
		keyPrefix: strings.Trim(config.KeyPrefix, "/"),
		logger:    logger,
	}, nil
}

// Upload writes data under a stable key
func (g *GCS) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(g.objectKey(key)).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object to GCS: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}

	g.logger.Debug("Object uploaded to GCS",
		slog.String("bucket", g.bucket),
		slog.String("key", g.objectKey(key)),
		slog.Int("size", len(data)),
	)

	return nil
}

// PublicURL returns the stable public reference for a key
func (g *GCS) PublicURL(key string) string {
	objKey := g.objectKey(key)

	if g.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", g.cdnDomain, objKey)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, objKey)
}

// Close releases the underlying client
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if g.keyPrefix == "" {
		return key
	}
	return g.keyPrefix + "/" + key
}
