// Package minio stores product images in an S3 compatible bucket through
// minio-go.
package minio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/utafrali/product-catalog/internal/storage"
)

// Config holds connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	// PublicURL, when set, is the base URL objects are served from. Without
	// it GetURL returns presigned URLs valid for PresignExpiry.
	PublicURL     string
	PresignExpiry time.Duration
}

// Storage implements storage.Storage on a MinIO client.
type Storage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	expiry    time.Duration
}

// New creates the client. It does not contact the server; call EnsureBucket
// at start-up.
func New(cfg Config) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	found, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if found {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Ping checks that the bucket is reachable, for readiness probes.
func (s *Storage) Ping(ctx context.Context) error {
	found, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// Upload writes the object with its content type.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	_, err := s.client.PutObject(ctx, s.bucket, input.Key, input.Data, input.Size, minio.PutObjectOptions{
		ContentType: input.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", input.Key, err)
	}

	url, err := s.GetURL(ctx, input.Key)
	if err != nil {
		return nil, err
	}
	return &storage.UploadResult{Key: input.Key, URL: url}, nil
}

// Delete removes the object. Removing a missing object succeeds.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// GetURL returns the public URL of key, or a presigned GET URL when no
// public base URL is configured.
func (s *Storage) GetURL(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return u.String(), nil
}
