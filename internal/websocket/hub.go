package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gearadvisor-backend/internal/middleware"
	"gearadvisor-backend/internal/models"
	"gearadvisor-backend/internal/services"
)

const (
	// writeWait bounds a single frame write to a client.
	writeWait = 10 * time.Second
	// sendBuffer is how many events may queue for a client before it is
	// dropped as too slow.
	sendBuffer = 32
)

// client is one socket. Only writePump writes to conn.
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// Hub fans session events out to that session's websocket connections.
// With a Redis client, events arrive over pub/sub so any instance can
// publish them; without one, Publish delivers directly. Publish never
// waits on a socket.
type Hub struct {
	mu            sync.RWMutex
	connections   map[uuid.UUID][]*client
	redisClient   *redis.Client
	cancelFuncs   map[uuid.UUID]context.CancelFunc
	allowedOrigin string
	upgrader      websocket.Upgrader
	logger        *zap.Logger
}

func NewHub(redisClient *redis.Client, allowedOrigin string, logger *zap.Logger) *Hub {
	h := &Hub{
		connections:   make(map[uuid.UUID][]*client),
		redisClient:   redisClient,
		cancelFuncs:   make(map[uuid.UUID]context.CancelFunc),
		allowedOrigin: allowedOrigin,
		logger:        logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts the configured frontend and same-host pages. Clients
// that send no Origin are not browsers and are let through.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.allowedOrigin != "" && origin == h.allowedOrigin {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// HandleWebSocket must run behind the session middleware.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.registerConnection(session.ID, c)

	go h.writePump(session.ID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(session.ID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish implements services.Publisher for single-instance deployments.
func (h *Hub) Publish(_ context.Context, sessionID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.broadcast(sessionID, data)
	return nil
}

// Connections reports how many sockets are open for a session.
func (h *Hub) Connections(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

func (h *Hub) registerConnection(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], c)

	// Start pub/sub subscription if this is the first connection for this session
	if h.redisClient != nil && len(h.connections[sessionID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	h.logger.Debug("websocket connected",
		zap.String("session_id", sessionID.String()),
		zap.Int("total", len(h.connections[sessionID])),
	)
}

// unregisterConnection is safe to call more than once per client.
func (h *Hub) unregisterConnection(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.close()

	conns := h.connections[sessionID]
	found := false
	for i, existing := range conns {
		if existing == c {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}

	h.logger.Debug("websocket disconnected", zap.String("session_id", sessionID.String()))
}

func (h *Hub) writePump(sessionID uuid.UUID, c *client) {
	defer h.unregisterConnection(sessionID, c)

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("websocket write failed",
				zap.String("session_id", sessionID.String()),
				zap.Error(err),
			)
			return
		}
	}
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, services.SessionChannel(sessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

// broadcast queues data for every socket of the session without blocking.
// A client whose queue is full is dropped. Sends happen under the read lock
// so unregisterConnection cannot close a channel mid-send.
func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	var slow []*client

	h.mu.RLock()
	for _, c := range h.connections[sessionID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", zap.String("session_id", sessionID.String()))
		h.unregisterConnection(sessionID, c)
	}
}
