package adapters

import (
	"context"
	"errors"
	"io"

	"crm_backend/internal/adapters/storage"
	"crm_backend/internal/leads/ports"
	"crm_backend/platform/apperr"
)

// ObjectStore is the bucket the import file store writes to.
type ObjectStore interface {
	Put(ctx context.Context, folder, fileName, contentType string, r io.Reader, size int64) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// ImportFileStore keeps queued import files until the worker has read them.
type ImportFileStore struct {
	objects ObjectStore
}

func NewImportFileStore(objects ObjectStore) *ImportFileStore {
	return &ImportFileStore{objects: objects}
}

// Upload stores the file under the tenant's folder and returns its key.
func (s *ImportFileStore) Upload(ctx context.Context, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	key, err := s.objects.Put(ctx, folder, fileName, contentType, reader, size)
	if errors.Is(err, storage.ErrRejected) {
		return "", apperr.Validation(err.Error())
	}
	return key, err
}

func (s *ImportFileStore) Download(ctx context.Context, fileKey string) (io.ReadCloser, error) {
	rc, err := s.objects.Get(ctx, fileKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Wrap(apperr.KindNotFound, "import file not found", err)
	}
	return rc, err
}

func (s *ImportFileStore) Delete(ctx context.Context, fileKey string) error {
	return s.objects.Remove(ctx, fileKey)
}

var _ ports.FileStore = (*ImportFileStore)(nil)
