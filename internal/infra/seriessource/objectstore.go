package seriessource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/usage-forecaster/internal/domain/series"
)

// ObjectStoreConfig locates a CSV object in an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Key       string
}

// ObjectCSV reads a series from a CSV object (S3, R2, MinIO).
type ObjectCSV struct {
	client *minio.Client
	bucket string
	key    string
	cols   Columns
	logger *slog.Logger
}

// NewObjectCSV constructs the source.
func NewObjectCSV(cfg ObjectStoreConfig, cols Columns, logger *slog.Logger) (*ObjectCSV, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("object source requires bucket and key")
	}
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(cfg.Endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       useSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &ObjectCSV{
		client: client,
		bucket: cfg.Bucket,
		key:    cfg.Key,
		cols:   cols,
		logger: logger.With("component", "seriessource.object"),
	}, nil
}

// Rows implements series.Source.
func (o *ObjectCSV) Rows(ctx context.Context) ([]series.RawRow, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	// GetObject is lazy; Stat surfaces a missing key before parsing.
	info, err := obj.Stat()
	if err != nil {
		return nil, err
	}
	o.logger.Debug("reading series object", "bucket", o.bucket, "key", o.key, "size", info.Size, "etag", info.ETag)
	return ReadCSV(obj, o.cols)
}

// Describe implements series.Source.
func (o *ObjectCSV) Describe() string {
	return "s3://" + o.bucket + "/" + o.key
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

var _ series.Source = (*ObjectCSV)(nil)
