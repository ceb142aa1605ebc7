package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/collab-room-server/modules/broadcast"
	"github.com/example/collab-room-server/modules/metrics"
	"github.com/example/collab-room-server/modules/room"
	"github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"
)

const (
	maxFrameBytes     = 1 << 20
	disconnectTimeout = 5 * time.Second

	defaultMessagesPerSecond = 50
	defaultMessageBurst      = 100
)

// newLimiter builds the per-connection inbound rate limiter.
func (m *APIModule) newLimiter() *rate.Limiter {
	perSecond := m.settings.MessagesPerSecond
	if perSecond <= 0 {
		perSecond = defaultMessagesPerSecond
	}
	burst := m.settings.MessageBurst
	if burst <= 0 {
		burst = defaultMessageBurst
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// handleWebSocket handles WebSocket connections at /ws.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	c.SetReadLimit(maxFrameBytes)

	var client *broadcast.Client
	connID, err := m.gateway.Connect(context.Background(), func(id string) {
		client = broadcast.NewClient(id, c, m.settings.SendBuffer)
		m.hub.Register(client)
	})
	if err != nil {
		m.logger.Error("Failed to register connection", "error", err)
		_ = c.Close()
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		client.WriteLoop()
	}()

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		if err := m.gateway.Disconnect(ctx, connID); err != nil {
			m.logger.Warn("Disconnect cleanup failed", "connectionID", connID, "error", err)
		}
		m.hub.Unregister(connID)
		<-writerDone
		_ = c.Close()
		m.logger.Info("WebSocket disconnected", "connectionID", connID)
	}()

	m.logger.Info("WebSocket connected", "connectionID", connID, "remote", c.RemoteAddr().String())

	// A peer that stops answering pings is treated as gone.
	_ = c.SetReadDeadline(time.Now().Add(broadcast.PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(broadcast.PongWait))
	})

	limiter := m.newLimiter()
	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				m.logger.Warn("WebSocket read error", "connectionID", connID, "error", err)
			}
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(broadcast.PongWait))

		if !limiter.Allow() {
			metrics.RateLimitHits.Inc()
			m.reply(connID, room.EventError, room.ErrorPayload{
				Message: "Rate limit exceeded. Please slow down.",
				Code:    room.CodeRateLimited,
			})
			continue
		}

		var msg room.Envelope
		if err := json.Unmarshal(frame, &msg); err != nil || msg.Type == "" {
			m.reply(connID, room.EventError, room.ErrorPayload{
				Message: "Invalid message format",
				Code:    room.CodeInvalidRequest,
			})
			continue
		}

		if err := m.gateway.Dispatch(context.Background(), connID, msg.Type, msg.Payload); err != nil {
			m.logger.Error("Failed to dispatch event", "connectionID", connID, "event", msg.Type, "error", err)
			return
		}
	}
}

func (m *APIModule) reply(connID, event string, payload any) {
	if err := m.gateway.Reply(context.Background(), connID, event, payload); err != nil {
		m.logger.Warn("Failed to reply", "connectionID", connID, "event", event, "error", err)
	}
}
