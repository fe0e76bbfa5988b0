package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSMessage is the frame exchanged with hub clients.
type WSMessage struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

const (
	wsTypeToast        = "TOAST"
	wsTypePresence     = "PRESENCE"
	wsTypeActivity     = "ACTIVITY"
	wsTypePostsRefresh = "POSTS_REFRESH"
)

// TokenValidator resolves a bearer token to the connecting identity.
// Satisfied by middleware.JWTValidator.
type TokenValidator interface {
	ValidateToken(token string) (*Identity, error)
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the websocket fan-out: it keeps per-user connection lists,
// pushes presence/activity/refresh frames to everyone, and delivers toasts.
// It is the concrete Notifier behind the realtime components.
type Hub struct {
	validator TokenValidator
	metrics   *metrics.Metrics
	logger    *zap.Logger

	connsMu sync.RWMutex
	conns   map[uuid.UUID][]*wsConn

	tracker     *PresenceTracker
	broadcaster *ActivityBroadcaster
	listener    *ChangeListener
}

func NewHub(validator TokenValidator, m *metrics.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		validator: validator,
		metrics:   m,
		logger:    logger,
		conns:     make(map[uuid.UUID][]*wsConn),
	}
}

// Attach wires the realtime components into the hub so their events fan out
// to connected clients. Must be called before the hub accepts connections.
func (h *Hub) Attach(tracker *PresenceTracker, broadcaster *ActivityBroadcaster, listener *ChangeListener) {
	h.tracker = tracker
	h.broadcaster = broadcaster
	h.listener = listener

	tracker.SetEventHandler(func(event domain.PresenceEvent) {
		h.broadcastFrame(WSMessage{
			Type:      wsTypePresence,
			Timestamp: time.Now(),
			Payload: map[string]interface{}{
				"event":  event,
				"online": h.tracker.OnlineUsers(),
			},
		})
	})

	broadcaster.SetEventHandler(func(event domain.ActivityEvent) {
		h.broadcastFrame(WSMessage{
			Type:      wsTypeActivity,
			Timestamp: time.Now(),
			Payload: map[string]interface{}{
				"event": event,
			},
		})
	})

	listener.SetRefreshHandler(func(posts []*domain.ScheduledPost) {
		h.broadcastFrame(WSMessage{
			Type:      wsTypePostsRefresh,
			Timestamp: time.Now(),
			Payload: map[string]interface{}{
				"posts": posts,
			},
		})
	})
}

// ShowUser implements Notifier for a single recipient.
func (h *Hub) ShowUser(_ context.Context, userID uuid.UUID, toast Toast) {
	frame, err := json.Marshal(toastFrame(toast))
	if err != nil {
		return
	}

	// Lock held across the sends: removeConn closes the send channel after
	// taking the write lock, so releasing early would race a send against
	// the close.
	h.connsMu.RLock()
	defer h.connsMu.RUnlock()

	for _, conn := range h.conns[userID] {
		conn.trySend(frame)
	}
}

// ShowAllExcept implements Notifier for everyone but the excluded user.
// uuid.Nil excludes nobody.
func (h *Hub) ShowAllExcept(_ context.Context, exceptID uuid.UUID, toast Toast) {
	frame, err := json.Marshal(toastFrame(toast))
	if err != nil {
		return
	}

	h.connsMu.RLock()
	defer h.connsMu.RUnlock()

	for userID, conns := range h.conns {
		if exceptID != uuid.Nil && userID == exceptID {
			continue
		}
		for _, conn := range conns {
			conn.trySend(frame)
		}
	}
}

func toastFrame(toast Toast) WSMessage {
	return WSMessage{
		Type:      wsTypeToast,
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"title":       toast.Title,
			"description": toast.Description,
			"variant":     string(toast.Variant),
			"duration":    toast.DurationMS,
		},
	}
}

func (h *Hub) broadcastFrame(msg WSMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("Failed to marshal websocket frame", zap.Error(err))
		return
	}

	h.connsMu.RLock()
	defer h.connsMu.RUnlock()

	for _, conns := range h.conns {
		for _, conn := range conns {
			conn.trySend(frame)
		}
	}
}

func (c *wsConn) trySend(frame []byte) {
	select {
	case c.send <- frame:
	default:
	}
}

// HandleWebSocket upgrades the request, registers the caller as online and
// streams presence, activity, refresh, and toast frames until disconnect.
// The token travels as a query param because browsers cannot set headers on
// websocket upgrades.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	identity, err := h.validator.ValidateToken(token)
	if err != nil {
		h.logger.Warn("Invalid token for websocket", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := &wsConn{
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.connsMu.Lock()
	h.conns[identity.ID] = append(h.conns[identity.ID], client)
	h.connsMu.Unlock()

	if h.metrics != nil {
		h.metrics.TrackWSConnect()
	}

	h.logger.Info("WebSocket connected",
		zap.String("user_id", identity.ID.String()),
		zap.String("user_name", identity.Name))

	ctx := WithIdentity(context.Background(), *identity)
	h.tracker.UpdatePresence(ctx, domain.PresenceOnline, "")
	h.tracker.PublishSync(ctx)
	h.sendSnapshot(client)

	go h.writePump(client)
	h.readPump(ctx, client, *identity)
}

// sendSnapshot seeds a fresh connection with the current presence map and
// activity log so the client renders without waiting for the next event.
func (h *Hub) sendSnapshot(client *wsConn) {
	presence, err := json.Marshal(WSMessage{
		Type:      wsTypePresence,
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"online": h.tracker.OnlineUsers(),
		},
	})
	if err == nil {
		client.trySend(presence)
	}

	activity, err := json.Marshal(WSMessage{
		Type:      wsTypeActivity,
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"recent": h.broadcaster.Recent(),
		},
	})
	if err == nil {
		client.trySend(activity)
	}
}

func (h *Hub) readPump(ctx context.Context, client *wsConn, identity Identity) {
	defer func() {
		client.conn.Close()
		h.removeConn(identity, client)
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket error",
					zap.String("user_id", identity.ID.String()),
					zap.Error(err))
			}
			break
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			h.logger.Warn("Failed to parse websocket message", zap.Error(err))
			continue
		}

		h.handleClientMessage(ctx, &wsMsg)
	}
}

func (h *Hub) handleClientMessage(ctx context.Context, wsMsg *WSMessage) {
	switch wsMsg.Type {
	case wsTypePresence:
		status := domain.PresenceOnline
		if s, ok := wsMsg.Payload["status"].(string); ok && s != "" {
			status = domain.PresenceStatus(s)
		}
		currentPage, _ := wsMsg.Payload["currentPage"].(string)
		h.tracker.UpdatePresence(ctx, status, currentPage)
	default:
		h.logger.Warn("Unknown websocket message type", zap.String("type", wsMsg.Type))
	}
}

func (h *Hub) writePump(client *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeConn drops the connection from the per-user list. When the user's
// last connection goes away the tracker announces them as gone.
func (h *Hub) removeConn(identity Identity, client *wsConn) {
	h.connsMu.Lock()
	conns := h.conns[identity.ID]
	for i, c := range conns {
		if c == client {
			h.conns[identity.ID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	remaining := len(h.conns[identity.ID])
	if remaining == 0 {
		delete(h.conns, identity.ID)
	}
	// Closed under the write lock: senders hold the read lock across
	// trySend, so none can still be sending on this channel.
	close(client.send)
	h.connsMu.Unlock()

	if h.metrics != nil {
		h.metrics.TrackWSDisconnect()
	}

	h.logger.Info("WebSocket disconnected",
		zap.String("user_id", identity.ID.String()),
		zap.Int("remaining", remaining))

	if remaining == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.tracker.Leave(WithIdentity(ctx, identity))
	}
}
