// Package storage keeps uploaded files in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// ErrRejected marks an upload refused by the bucket's policy.
	ErrRejected = errors.New("object rejected")
	// ErrNotFound marks a key with no object behind it.
	ErrNotFound = errors.New("object not found")
)

const metaOriginalName = "original-name"

// Config is the MinIO connection configuration.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}

// Bucket is one MinIO bucket with an upload policy.
type Bucket struct {
	client *minio.Client
	name   string
	policy Policy
}

// Open connects to MinIO. The bucket is not checked until Ensure.
func Open(cfg Config, name string, policy Policy) (*Bucket, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, errors.New("MinIO is not configured")
	}
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}
	return &Bucket{client: client, name: name, policy: policy}, nil
}

func (b *Bucket) Name() string { return b.name }

// Ensure creates the bucket when it does not exist yet.
func (b *Bucket) Ensure(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.name)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.name, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.name, err)
	}
	return nil
}

// Put checks the upload against the policy and stores it under a fresh key in
// folder.
func (b *Bucket) Put(ctx context.Context, folder, fileName, contentType string, r io.Reader, size int64) (string, error) {
	contentType, err := b.policy.Check(contentType, size)
	if err != nil {
		return "", err
	}
	key := ObjectKey(folder, fileName)
	_, err = b.client.PutObject(ctx, b.name, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{metaOriginalName: path.Base(filepath.ToSlash(fileName))},
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// Get opens the object at key. The caller closes the reader.
func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return obj, nil
}

func (b *Bucket) Remove(ctx context.Context, key string) error {
	if err := b.client.RemoveObject(ctx, b.name, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// ObjectKey places fileName under folder with a random suffix, so the same
// name uploaded twice gets two keys. Directory parts of fileName are dropped.
func ObjectKey(folder, fileName string) string {
	base := path.Base(filepath.ToSlash(fileName))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" || stem == "." || stem == "/" {
		stem = "upload"
	}
	return path.Join(folder, fmt.Sprintf("%s_%s%s", stem, uuid.NewString()[:8], ext))
}
