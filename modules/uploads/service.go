package uploads

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Document is the metadata returned for a stored upload.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Service validates and stores shared documents. It never touches room state.
type Service struct {
	store    ObjectStore
	maxBytes int64
	now      func() time.Time
}

// NewService creates an upload service writing to store.
func NewService(store ObjectStore, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{store: store, maxBytes: maxBytes, now: time.Now}
}

// MaxBytes returns the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload validates and stores a document.
func (s *Service) Upload(ctx context.Context, filename, contentType string, data []byte) (*Document, error) {
	if err := Validate(contentType, int64(len(data)), s.maxBytes); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	name := sanitizeFilename(filename)
	uploadedAt := s.now().UTC()

	obj, err := s.store.Put(ctx, id+"/"+name, data, map[string]string{
		"Content-Type":  contentType,
		"Original-Name": name,
		"Document-ID":   id,
		"Uploaded-At":   uploadedAt.Format(time.RFC3339),
		"Size":          strconv.Itoa(len(data)),
	})
	if err != nil {
		return nil, err
	}

	return &Document{
		ID:         id,
		Name:       name,
		Type:       contentType,
		Size:       obj.Size,
		Path:       documentPath(id),
		UploadedAt: uploadedAt,
	}, nil
}

// Get returns a stored document and its metadata.
func (s *Service) Get(ctx context.Context, id string) ([]byte, *Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidDocumentID, id)
	}

	obj, err := s.store.FindByPrefix(ctx, id+"/")
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.Get(ctx, obj.Key)
	if err != nil {
		return nil, nil, err
	}
	return data, toDocument(id, obj), nil
}

func toDocument(id string, obj *StoredObject) *Document {
	doc := &Document{
		ID:         id,
		Name:       obj.Headers["Original-Name"],
		Type:       obj.Headers["Content-Type"],
		Size:       obj.Size,
		Path:       documentPath(id),
		UploadedAt: obj.ModTime,
	}
	if doc.Name == "" && len(obj.Key) > len(id)+1 {
		doc.Name = obj.Key[len(id)+1:]
	}
	if t, err := time.Parse(time.RFC3339, obj.Headers["Uploaded-At"]); err == nil {
		doc.UploadedAt = t
	}
	return doc
}

func documentPath(id string) string {
	return "/api/uploads/" + id
}

// IsRejected reports whether err is a validation failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrUploadRejected)
}
