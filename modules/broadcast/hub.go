package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/collab-room-server/modules/room"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second

	// PongWait is how long a reader may wait for the next frame or pong.
	// It must exceed the ping interval.
	PongWait = 2 * pingInterval

	// DefaultSendBuffer is the per-client outbound queue length.
	DefaultSendBuffer = 256
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Observer is told about every delivery attempt.
type Observer interface {
	MessageDelivered(event string)
	MessageDropped(event string)
}

// Client is a connected websocket client with its own outbound queue.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewClient wraps conn with an outbound queue of bufferSize frames.
func NewClient(id string, conn Conn, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = DefaultSendBuffer
	}
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
}

// enqueue queues a frame without blocking. It reports false when the queue is full.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close stops the write loop. Safe to call more than once.
func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// fail stops the write loop and closes the socket so a blocked reader
// returns and runs its disconnect cleanup.
func (c *Client) fail() {
	c.close()
	_ = c.conn.Close()
}

// WriteLoop drains the outbound queue until the client is closed or a write fails.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.fail()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail()
				return
			}
		}
	}
}

// Hub owns the live clients and delivers room effects to them.
type Hub struct {
	clients  map[string]*Client
	observer Observer
	logger   types.Logger
	done     chan struct{}
	mu       sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// SetObserver installs a delivery observer.
func (h *Hub) SetObserver(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observer = o
}

// Run blocks until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.logger.Info("Hub shutting down")
	h.closeAllClients()
	close(h.done)
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.close()
		_ = client.conn.Close()
	}
	h.clients = make(map[string]*Client)
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.logger.Debug("Client registered", "clientID", client.ID)
}

// Unregister removes a client and stops its write loop.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[clientID]; ok {
		client.close()
		delete(h.clients, clientID)
		h.logger.Debug("Client unregistered", "clientID", clientID)
	}
}

// Deliver encodes each effect once and queues it for every recipient. A
// recipient that is gone or has a full queue misses the frame.
func (h *Hub) Deliver(effects []room.Effect) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, effect := range effects {
		frame, err := encode(effect.Event, effect.Payload)
		if err != nil {
			h.logger.Error("Failed to encode outbound event", "event", effect.Event, "error", err)
			continue
		}

		for _, id := range effect.To {
			client, ok := h.clients[id]
			if !ok || !client.enqueue(frame) {
				h.logger.Debug("Outbound frame dropped",
					"event", effect.Event,
					"clientID", id,
					"error", room.ErrBroadcastFailure)
				if h.observer != nil {
					h.observer.MessageDropped(effect.Event)
				}
				continue
			}
			if h.observer != nil {
				h.observer.MessageDelivered(effect.Event)
			}
		}
	}
}

func encode(event string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(room.Envelope{Type: event, Payload: body})
}

// GetClient returns a client by ID.
func (h *Hub) GetClient(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
