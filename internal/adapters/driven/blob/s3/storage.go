// Package s3 stores uploaded files in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure Storage implements the interface.
var _ driven.BlobStorage = (*Storage)(nil)

// Storage reads and writes objects in a single bucket.
type Storage struct {
	client *minio.Client
	bucket string
}

// New connects to the endpoint described by cfg.
// The bucket is created if it does not exist.
func New(ctx context.Context, cfg domain.S3Settings) (*Storage, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 endpoint and bucket are required", domain.ErrInvalidInput)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	s := &Storage{client: client, bucket: cfg.Bucket}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// Download reads the object stored at path.
func (s *Storage) Download(ctx context.Context, path string) ([]byte, error) {
	key := objectKey(path)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap("get", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap("read", key, err)
	}
	return data, nil
}

// Upload writes data to path, replacing any existing object.
func (s *Storage) Upload(ctx context.Context, data []byte, path string) error {
	key := objectKey(path)
	contentType := http.DetectContentType(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return s.wrap("put", key, err)
	}
	return nil
}

func (s *Storage) wrap(op, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: s3://%s/%s", domain.ErrNotFound, s.bucket, key)
	}
	return fmt.Errorf("%s s3://%s/%s: %w", op, s.bucket, key, err)
}

func objectKey(path string) string {
	return strings.TrimLeft(strings.TrimSpace(path), "/")
}
