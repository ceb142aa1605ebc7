package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/collab-room-server/modules/broadcast"
	"github.com/example/collab-room-server/modules/room"
	"github.com/example/collab-room-server/modules/uploads"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Gateway submits connection events to the room engine.
type Gateway interface {
	Connect(ctx context.Context, attach func(connID string)) (string, error)
	Disconnect(ctx context.Context, connID string) error
	Dispatch(ctx context.Context, connID, event string, payload json.RawMessage) error
	Reply(ctx context.Context, connID, event string, payload any) error
}

// DocumentStore stores shared documents uploaded over HTTP.
type DocumentStore interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (*uploads.Document, error)
	Get(ctx context.Context, id string) ([]byte, *uploads.Document, error)
	MaxBytes() int64
}

// Settings configures the HTTP surface.
type Settings struct {
	Port              int
	AllowedOrigins    []string
	QueryTimeout      time.Duration
	MessagesPerSecond float64
	MessageBurst      int
	SendBuffer        int
	AccessLog         bool
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app       *fiber.App
	rooms     room.RoomPort
	gateway   Gateway
	hub       *broadcast.Hub
	documents DocumentStore
	settings  Settings
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(settings Settings, logger types.Logger) *APIModule {
	if settings.Port == 0 {
		settings.Port = 3000
	}
	if settings.QueryTimeout <= 0 {
		settings.QueryTimeout = 3 * time.Second
	}
	return &APIModule{
		settings: settings,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"room"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "room":
		m.rooms = room.NewRoomAdapter(container)
	}
}

// SetGateway sets the room engine the websocket endpoint feeds (called from main.go).
func (m *APIModule) SetGateway(gateway Gateway) {
	m.gateway = gateway
}

// SetHub sets the broadcast hub (called from main.go).
func (m *APIModule) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// SetDocuments sets the document store behind the upload routes (called from main.go).
func (m *APIModule) SetDocuments(documents DocumentStore) {
	m.documents = documents
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.rooms == nil {
		return fmt.Errorf("room adapter dependency not set")
	}
	if m.gateway == nil {
		return fmt.Errorf("room gateway dependency not set")
	}
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}

	m.app = m.newApp()

	addr := ":" + strconv.Itoa(m.settings.Port)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"port": m.settings.Port}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// newApp builds the Fiber application with every route mounted.
func (m *APIModule) newApp() *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if m.documents != nil {
		bodyLimit = int(m.documents.MaxBytes()) + 1024*1024
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		BodyLimit:             bodyLimit,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	if m.settings.AccessLog {
		app.Use(logger.New(logger.Config{
			Next:   func(c *fiber.Ctx) bool { return websocket.IsWebSocketUpgrade(c) },
			Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		}))
	}
	if len(m.settings.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(m.settings.AllowedOrigins, ","),
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Origin, Content-Type, Accept",
		}))
	}
	app.Use(m.loggerMiddleware())

	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
