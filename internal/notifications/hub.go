package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"clubhouse/internal/cache"
	"clubhouse/internal/middleware"
	"clubhouse/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per viewer across all topics
	maxConnsPerUser = 12
	// Max watchers of one entity
	maxConnsPerTopic = 500
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrTopicFull  = errors.New("too many watchers for this thread")
	ErrUserFull   = errors.New("user connection limit reached")
	ErrHubClosed  = errors.New("hub is shutting down")
)

// Hub maps a comment channel to the websocket clients watching it.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*Client]struct{}
	perViewer  map[string]int
	totalConns int
	closed     bool
	logger     *observability.WSLogger
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		topics:    make(map[string]map[*Client]struct{}),
		perViewer: make(map[string]int),
		logger:    observability.NewWSLogger("comment hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "comment hub" }

// Register adds a watcher for topic. viewerID is empty for anonymous
// watchers, which only count against the topic and global limits.
func (h *Hub) Register(topic, viewerID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	if len(h.topics[topic]) >= maxConnsPerTopic {
		return nil, ErrTopicFull
	}
	if viewerID != "" && h.perViewer[viewerID] >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	m, ok := h.topics[topic]
	if !ok {
		m = make(map[*Client]struct{})
		h.topics[topic] = m
	}
	client := NewClient(h, conn, viewerID, topic)
	m[client] = struct{}{}
	if viewerID != "" {
		h.perViewer[viewerID]++
	}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()

	h.logger.LogConnect(context.Background(), viewerID, topic)
	return client, nil
}

// UnregisterClient removes the client. Removing an unknown client is a no-op.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	m, ok := h.topics[client.Topic]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := m[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.topics, client.Topic)
	}
	if client.ViewerID != "" {
		if h.perViewer[client.ViewerID] <= 1 {
			delete(h.perViewer, client.ViewerID)
		} else {
			h.perViewer[client.ViewerID]--
		}
	}
	h.totalConns--
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Dec()
	h.logger.LogDisconnect(context.Background(), client.ViewerID, client.Topic, "unregistered")
}

// Watchers returns how many clients are watching topic.
func (h *Hub) Watchers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Broadcast sends message to every client watching topic.
func (h *Hub) Broadcast(topic string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		c.TrySend(message)
	}
}

// Dispatch invalidates the entity's cached thread pages and tells its
// watchers to refetch.
func (h *Hub) Dispatch(ctx context.Context, event ChangeEvent) {
	cache.InvalidateThread(ctx, event.EntityKind, event.EntityID)

	frame, err := json.Marshal(Envelope{Type: EventCommentsChanged, Payload: event})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to marshal change envelope", slog.String("error", err.Error()))
		return
	}
	h.Broadcast(event.Channel(), frame)
}

// StartWiring connects the Notifier to this hub: every comment change seen
// on Redis, including ones published by other instances, is dispatched.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartCommentSubscriber(ctx, func(event ChangeEvent) {
		h.Dispatch(ctx, event)
	})
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	topics := h.topics
	h.topics = make(map[string]map[*Client]struct{})
	h.perViewer = make(map[string]int)
	observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
	closing := h.totalConns
	h.totalConns = 0
	h.mu.Unlock()

	h.logger.LogLifecycle(ctx, "shutdown", map[string]any{
		"topics":  len(topics),
		"clients": closing,
	})

	for topic, clients := range topics {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Debug("failed to write close message",
					slog.String("topic", topic), slog.String("error", err.Error()))
			}
			_ = client.Conn.Close()
		}
	}
	return nil
}
