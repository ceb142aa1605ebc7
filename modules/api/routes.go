package api

import (
	"context"
	"errors"
	"io"
	"time"

	domain "github.com/example/collab-room-server/domain/room"
	"github.com/example/collab-room-server/modules/metrics"
	"github.com/example/collab-room-server/modules/uploads"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)
	app.Get("/healthz", m.healthHandler)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket))

	// Room queries, served both at the root and under /api
	app.Get("/rooms", m.listRooms)
	app.Get("/rooms/:roomId/exists", m.roomExists)

	api := app.Group("/api")
	api.Get("/health", m.healthHandler)
	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:roomId/exists", m.roomExists)

	// Shared documents
	api.Post("/upload", m.uploadDocument)
	api.Get("/uploads/:id", m.getDocument)
}

// queryContext bounds a read against the room module.
func (m *APIModule) queryContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), m.settings.QueryTimeout)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	ctx, cancel := m.queryContext(c)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Port:      m.settings.Port,
	}
	stats, err := m.rooms.Stats(ctx)
	if err != nil {
		m.logger.Warn("Health check could not reach room module", "error", err)
		resp.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	resp.ActiveRooms = stats.ActiveRooms
	resp.ActiveSessions = stats.ActiveSessions
	return c.JSON(resp)
}

// listRooms handles GET /rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	ctx, cancel := m.queryContext(c)
	defer cancel()

	rooms, err := m.rooms.ListRooms(ctx)
	if err != nil {
		m.logger.Error("Failed to list rooms", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list rooms",
		})
	}

	response := RoomListResponse{Rooms: rooms.Rooms}
	if response.Rooms == nil {
		response.Rooms = []domain.RoomSummary{}
	}
	return c.JSON(response)
}

// roomExists handles GET /rooms/:roomId/exists.
func (m *APIModule) roomExists(c *fiber.Ctx) error {
	roomID := c.Params("roomId")
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Room ID is required",
		})
	}

	ctx, cancel := m.queryContext(c)
	defer cancel()

	resp, err := m.rooms.RoomExists(ctx, roomID)
	if err != nil {
		m.logger.Error("Failed to check room", "roomID", roomID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "lookup_failed",
			Message: "Failed to check room",
		})
	}

	return c.JSON(RoomExistsResponse{
		Exists:    resp.Exists,
		UserCount: resp.UserCount,
		Leader:    resp.Leader,
	})
}

// uploadDocument handles POST /api/upload.
func (m *APIModule) uploadDocument(c *fiber.Ctx) error {
	if m.documents == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Document storage is not configured",
		})
	}

	fh, err := c.FormFile("document")
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "upload_rejected",
			Message: "No file uploaded",
		})
	}

	limit := m.documents.MaxBytes()
	if fh.Size > limit {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error:   "upload_rejected",
			Message: "File exceeds the upload size limit",
		})
	}

	file, err := fh.Open()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "upload_failed",
			Message: "Failed to read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "upload_failed",
			Message: "Failed to read uploaded file",
		})
	}

	doc, err := m.documents.Upload(c.UserContext(), fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		if uploads.IsRejected(err) {
			metrics.UploadsTotal.WithLabelValues("rejected").Inc()
			status := fiber.StatusBadRequest
			if errors.Is(err, uploads.ErrTooLarge) {
				status = fiber.StatusRequestEntityTooLarge
			}
			return c.Status(status).JSON(ErrorResponse{
				Error:   "upload_rejected",
				Message: err.Error(),
			})
		}
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		m.logger.Error("Failed to store document", "filename", fh.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "upload_failed",
			Message: "Failed to store document",
		})
	}

	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	m.logger.Info("Document uploaded", "documentID", doc.ID, "name", doc.Name, "size", doc.Size)
	return c.JSON(UploadResponse{Success: true, Document: doc})
}

// getDocument handles GET /api/uploads/:id.
func (m *APIModule) getDocument(c *fiber.Ctx) error {
	if m.documents == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Document storage is not configured",
		})
	}

	data, doc, err := m.documents.Get(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, uploads.ErrInvalidDocumentID):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, uploads.ErrDocumentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Document not found",
		})
	case err != nil:
		m.logger.Error("Failed to read document", "documentID", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "read_failed",
			Message: "Failed to read document",
		})
	}

	c.Attachment(doc.Name)
	if doc.Type != "" {
		c.Set(fiber.HeaderContentType, doc.Type)
	}
	return c.Send(data)
}
