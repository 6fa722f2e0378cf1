// Package archive mirrors raw source files to object storage so a run's
// input can be audited or replayed later.
package archive

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config captures the object-store connection for the raw mirror.
type Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// Mirror uploads raw files to a MinIO/S3 bucket, keyed by run.
type Mirror struct {
	client *minio.Client
	bucket string
}

// New creates a Mirror from config.
func New(cfg *Config) (*Mirror, error) {
	if cfg == nil || cfg.EndpointURL == "" {
		return nil, fmt.Errorf("endpoint URL is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	endpoint := cfg.EndpointURL
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.EndpointURL); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Mirror{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the mirror bucket if it does not exist.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Store uploads a local file under runs/<runID>/ and returns the object
// key. Mirror failures never abort a pipeline run; callers log and move
// on.
func (m *Mirror) Store(ctx context.Context, runID, path string) (string, error) {
	key := fmt.Sprintf("runs/%s/%s", runID, filepath.Base(path))
	_, err := m.client.FPutObject(ctx, m.bucket, key, path, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
