package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"hpipulse/internal/infrastructure"
)

// Message types sent by the hub itself.
const (
	TypeConnection = "connection"
)

// Notice levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// broadcastBuffer bounds notices queued for the run loop. Notices beyond
// it are dropped rather than blocking the publisher.
const broadcastBuffer = 64

// Notice is the JSON frame delivered to clients.
type Notice struct {
	Type      string      `json:"type"`
	Level     string      `json:"level,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// HubStats counts hub activity.
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	NoticesSent      int64 `json:"notices_sent"`
	NoticesDropped   int64 `json:"notices_dropped"`
}

// Hub keeps the set of connected clients and fans notices out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	stats   HubStats
	running bool

	quit chan struct{}
	done chan struct{}

	logger  *slog.Logger
	metrics *infrastructure.ServiceMetrics
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.ServiceMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics = infrastructure.NoopServiceMetrics()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// Start runs the hub loop in its own goroutine. It is a no-op when the hub
// is already running.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and disconnects every client. It waits for the
// loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.stats.ActiveClients = 0
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.stats.TotalConnections++
			h.stats.ActiveClients = len(h.clients)
			count := h.stats.ActiveClients
			h.mu.Unlock()

			h.metrics.WebSocketConnections.Add(ctx, 1)
			h.logger.InfoContext(client.context(), "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			welcome := h.encode(client.context(), TypeConnection, LevelInfo, map[string]interface{}{
				"status":    "connected",
				"client_id": client.id,
			})
			if welcome != nil {
				select {
				case client.send <- welcome:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
				h.stats.ActiveClients = len(h.clients)
			}
			h.mu.Unlock()

			if ok {
				h.metrics.WebSocketConnections.Add(ctx, -1)
				h.logger.InfoContext(client.context(), "client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// deliver sends message to every client, dropping clients whose buffers
// are full.
func (h *Hub) deliver(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
			h.stats.NoticesSent++
		default:
			close(client.send)
			delete(h.clients, client)
			h.metrics.WebSocketConnections.Add(context.Background(), -1)
			h.logger.Warn("client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.stats.ActiveClients = len(h.clients)
}

// Notify queues a notice for every connected client. It never blocks: when
// the queue is full or the hub is stopped the notice is dropped.
func (h *Hub) Notify(ctx context.Context, noticeType, level string, data interface{}) {
	message := h.encode(ctx, noticeType, level, data)
	if message == nil {
		return
	}

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()

	if running {
		select {
		case h.broadcast <- message:
			h.metrics.WebSocketNotices.Add(ctx, 1, metric.WithAttributes(
				attribute.String("type", noticeType),
				attribute.String("level", level),
			))
			return
		default:
		}
	}

	h.mu.Lock()
	h.stats.NoticesDropped++
	h.mu.Unlock()
	h.logger.DebugContext(ctx, "notice dropped",
		slog.String("type", noticeType),
		slog.Bool("running", running))
}

func (h *Hub) encode(ctx context.Context, noticeType, level string, data interface{}) []byte {
	message, err := json.Marshal(Notice{
		Type:      noticeType,
		Level:     level,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode notice",
			slog.String("type", noticeType),
			slog.String("error", err.Error()))
		return nil
	}
	return message
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns a snapshot of the hub counters.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}
