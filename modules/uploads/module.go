package uploads

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	"github.com/go-monolith/mono/pkg/types"
)

// BucketName is the fs-jetstream bucket holding uploaded documents.
const BucketName = "documents"

// Module stores shared documents through the fs-jetstream plugin.
type Module struct {
	storage  *fsjetstream.PluginModule
	service  *Service
	maxBytes int64
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the uploads module.
func NewModule(maxBytes int64, logger types.Logger) *Module {
	return &Module{
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "uploads"
}

// SetPlugin receives the storage plugin from the framework.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "storage" {
		return
	}
	storage, ok := plugin.(*fsjetstream.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for storage",
			"alias", alias,
			"expected", "*fsjetstream.PluginModule")
		return
	}
	m.storage = storage
}

// Start opens the documents bucket.
func (m *Module) Start(_ context.Context) error {
	if m.storage == nil {
		return fmt.Errorf("required plugin 'storage' not registered")
	}
	bucket := m.storage.Bucket(BucketName)
	if bucket == nil {
		return fmt.Errorf("bucket '%s' not found in storage plugin", BucketName)
	}
	m.service = NewService(NewJetStreamStore(bucket), m.maxBytes)

	m.logger.Info("Uploads module started", "bucket", BucketName, "maxBytes", m.service.MaxBytes())
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Uploads module stopped")
	return nil
}

// Health reports whether the bucket is open.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "storage not ready"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"bucket": BucketName},
	}
}

// Service returns the upload service. It is nil until Start has run.
func (m *Module) Service() *Service {
	return m.service
}

// Upload stores a document through the running service.
func (m *Module) Upload(ctx context.Context, filename, contentType string, data []byte) (*Document, error) {
	if m.service == nil {
		return nil, fmt.Errorf("uploads module not started")
	}
	return m.service.Upload(ctx, filename, contentType, data)
}

// Get returns a stored document through the running service.
func (m *Module) Get(ctx context.Context, id string) ([]byte, *Document, error) {
	if m.service == nil {
		return nil, nil, fmt.Errorf("uploads module not started")
	}
	return m.service.Get(ctx, id)
}

// MaxBytes returns the configured upload size limit.
func (m *Module) MaxBytes() int64 {
	if m.maxBytes <= 0 {
		return DefaultMaxBytes
	}
	return m.maxBytes
}
