// Package objectstore archives rendered videos in S3-compatible storage.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/types"
)

// Archiver stores a finished render and returns its object URL.
type Archiver interface {
	Archive(ctx context.Context, localPath string) (string, error)
}

// Store is a minio-go backed Archiver.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	region string
	logger *zap.Logger
}

// New creates a Store from config. The bucket is not touched until
// EnsureBucket or Archive is called.
func New(cfg config.ObjectStoreConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Endpoint == "" {
		return nil, types.NewNotConfiguredError("object store", "endpoint")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, types.NewNotConfiguredError("object store", "access_key", "secret_key")
	}

	endpoint, secure := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: cfg.Region,
		logger: logger.With(zap.String("component", "objectstore")),
	}, nil
}

// parseEndpoint accepts "host:port" or a full URL; an https scheme forces TLS.
func parseEndpoint(raw string, useSSL bool) (string, bool) {
	if !strings.Contains(raw, "://") {
		return raw, useSSL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, useSSL
	}
	switch u.Scheme {
	case "https":
		return u.Host, true
	case "http":
		return u.Host, false
	}
	return u.Host, useSSL
}

// EnsureBucket creates the bucket when it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classifyError(err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return classifyError(err)
	}
	s.logger.Info("bucket created", zap.String("bucket", s.bucket))
	return nil
}

// Key returns the object key for a local render.
func (s *Store) Key(localPath string) string {
	return path.Join(s.prefix, filepath.Base(localPath))
}

// Archive uploads localPath and returns "s3://bucket/key".
func (s *Store) Archive(ctx context.Context, localPath string) (string, error) {
	key := s.Key(localPath)
	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", classifyError(err)
	}
	s.logger.Info("render archived",
		zap.String("key", key),
		zap.Int64("bytes", info.Size),
	)
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Ping lists the configured bucket as a health check.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return classifyError(err)
	}
	return nil
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func classifyError(err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchBucket", "NoSuchKey":
			return types.NewError(types.ErrNotFound, resp.Message).WithProvider("objectstore").WithCause(err)
		case "AccessDenied":
			return types.NewError(types.ErrForbidden, resp.Message).WithProvider("objectstore").WithCause(err)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return types.NewError(types.ErrUnauthorized, resp.Message).WithProvider("objectstore").WithCause(err)
		}
		if resp.StatusCode >= 500 {
			return types.NewError(types.ErrUpstreamError, resp.Message).WithProvider("objectstore").WithRetryable(true).WithCause(err)
		}
	}
	return types.NewError(types.ErrUpstreamError, "object store request failed").
		WithProvider("objectstore").
		WithCause(err)
}
