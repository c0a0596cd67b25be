package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type MinioMirror struct {
	client *miniogo.Client
	bucket string
}

// NewMinioMirror mirrors artifacts into a MinIO (or any S3 compatible) bucket
func NewMinioMirror(cfg MinioConfig) (*MinioMirror, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioMirror{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioMirror) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *MinioMirror) Mirror(ctx context.Context, jobID, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(jobID, name), bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: contentType(name)})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func contentType(name string) string {
	if path.Ext(name) == ".json" {
		return "application/json"
	}
	return "application/octet-stream"
}
