package uploads

import (
	"context"
	"fmt"
	"time"

	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

// StoredObject describes an object held by an ObjectStore.
type StoredObject struct {
	Key     string
	Size    int64
	Headers map[string]string
	ModTime time.Time
}

// ObjectStore is the blob storage the upload service writes to.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, headers map[string]string) (*StoredObject, error)
	FindByPrefix(ctx context.Context, prefix string) (*StoredObject, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// jetStreamStore implements ObjectStore on an fs-jetstream bucket.
type jetStreamStore struct {
	bucket fsjetstream.FileStoragePort
}

// NewJetStreamStore wraps an fs-jetstream bucket.
func NewJetStreamStore(bucket fsjetstream.FileStoragePort) ObjectStore {
	return &jetStreamStore{bucket: bucket}
}

func (s *jetStreamStore) Put(ctx context.Context, key string, data []byte, headers map[string]string) (*StoredObject, error) {
	info, err := s.bucket.Put(ctx, key, data,
		fsjetstream.WithDescription(fmt.Sprintf("Document: %s", key)),
		fsjetstream.WithHeaders(headers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	return &StoredObject{
		Key:     key,
		Size:    int64(info.Size),
		Headers: headers,
		ModTime: info.ModTime,
	}, nil
}

func (s *jetStreamStore) FindByPrefix(_ context.Context, prefix string) (*StoredObject, error) {
	files, err := s.bucket.List(fsjetstream.WithPrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrDocumentNotFound
	}
	obj := files[0]
	return &StoredObject{
		Key:     obj.Name,
		Size:    int64(obj.Size),
		Headers: obj.Headers,
		ModTime: obj.ModTime,
	}, nil
}

func (s *jetStreamStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := s.bucket.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return data, nil
}
