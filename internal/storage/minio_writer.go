package storage

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/labwise-dev/labwise-go/internal/domain"
)

// MinioWriter persists artifacts to an S3-compatible object store.
type MinioWriter struct {
	client *minio.Client
	bucket string
}

func NewMinioWriter(cfg Config) (*MinioWriter, error) {
	client, err := newMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	return &MinioWriter{client: client, bucket: cfg.Bucket}, nil
}

func NewMinioWriterWithClient(client *minio.Client, bucket string) (*MinioWriter, error) {
	if client == nil {
		return nil, errors.New("minio client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return &MinioWriter{client: client, bucket: bucket}, nil
}

func (w *MinioWriter) Mode() string {
	return ModeS3
}

func (w *MinioWriter) Save(ctx context.Context, path string, content []byte, contentType string) error {
	if w == nil || w.client == nil {
		return errors.New("minio writer not initialized")
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := w.client.PutObject(ctx, w.bucket, path, bytes.NewReader(content), int64(len(content)), opts)
	if err != nil {
		return &domain.StorageWriteError{Path: path, Err: err}
	}
	return nil
}

// EnsureBucket creates the artifact bucket if it does not exist yet.
func (w *MinioWriter) EnsureBucket(ctx context.Context, region string) error {
	exists, err := w.client.BucketExists(ctx, w.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return w.client.MakeBucket(ctx, w.bucket, minio.MakeBucketOptions{Region: region})
}

// CheckBucket is the readiness probe against the object store.
func (w *MinioWriter) CheckBucket(ctx context.Context) error {
	exists, err := w.client.BucketExists(ctx, w.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return errors.New("artifact bucket missing: " + w.bucket)
	}
	return nil
}

func newMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	return minio.New(cfg.Endpoint, opts)
}
