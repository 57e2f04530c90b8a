// Package websocket carries chat turns over a socket. Each text frame is a
// chat request and each reply frame is the normalized envelope as
// {status, body}. Frames on one connection are answered in order; frames
// arriving while the queue is full are answered at once with a 429 frame.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/models"
	"resume-relay/internal/normalize"
	"resume-relay/internal/relay"
	"resume-relay/internal/validation"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 30 * time.Second
	maxFrame    = 1 << 20
	frameQueue  = 16
	closeReason = "server shutting down"
)

var queueFullEnvelope = normalize.Envelope{
	Status:      http.StatusTooManyRequests,
	ContentType: "application/json",
	Body:        []byte(`{"error":"Too many queued messages. Wait for a reply before sending more."}`),
}

// ChatService relays one validated chat turn.
type ChatService interface {
	Chat(ctx context.Context, req models.ChatRequest) (*relay.Result, error)
}

// Frame is the reply sent for every inbound frame. Body is the envelope body
// when it is JSON and a JSON string otherwise.
type Frame struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*conn
	upstream    ChatService
	upgrader    websocket.Upgrader
	log         *logging.Logger
	metrics     *metrics.Metrics
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
}

func NewHub(upstream ChatService, allowedOrigins []string, log *logging.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*conn),
		upstream:    upstream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log:     log,
		metrics: m,
	}
}

// HandleChat upgrades the request and serves chat frames until the client
// goes away. A disconnect cancels any upstream call still in flight.
func (h *Hub) HandleChat(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	c := &conn{ws: ws, cancel: cancel}
	h.register(id, c)
	defer h.unregister(id)

	ws.SetReadLimit(maxFrame)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	frames := make(chan []byte, frameQueue)
	go func() {
		defer cancel()
		defer close(frames)
		for {
			kind, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			default:
				// The reader must keep reading so pongs still extend the
				// deadline; overflow is answered here instead of queued.
				h.metrics.RecordEnvelope("chat_ws", http.StatusTooManyRequests)
				if err := c.writeFrame(queueFullEnvelope); err != nil {
					return
				}
			}
		}
	}()

	go h.keepAlive(ctx, c)

	for data := range frames {
		env := h.process(ctx, data)
		if ctx.Err() != nil {
			return
		}
		if err := c.writeFrame(env); err != nil {
			h.log.Debug("websocket write failed", zap.String("conn_id", id.String()), zap.Error(err))
			return
		}
	}
}

func (h *Hub) process(ctx context.Context, data []byte) normalize.Envelope {
	req, err := validation.ValidateChatRequest(data)
	if err != nil {
		h.metrics.RecordEnvelope("chat_ws", http.StatusBadRequest)
		return normalize.FromError(err)
	}

	res, err := h.upstream.Chat(ctx, req)
	env := normalize.Normalize(res, err)
	h.metrics.RecordEnvelope("chat_ws", env.Status)
	if err != nil && ctx.Err() == nil {
		h.log.Warn("websocket relay call failed", zap.Int("status", env.Status), zap.Error(err))
	}
	return env
}

func (h *Hub) keepAlive(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.cancel()
				return
			}
		}
	}
}

func (c *conn) writeFrame(env normalize.Envelope) error {
	body := json.RawMessage(env.Body)
	if !strings.HasPrefix(env.ContentType, "application/json") || !json.Valid(env.Body) {
		quoted, err := json.Marshal(string(env.Body))
		if err != nil {
			return err
		}
		body = quoted
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(Frame{Status: env.Status, Body: body})
}

func (h *Hub) register(id uuid.UUID, c *conn) {
	h.mu.Lock()
	h.connections[id] = c
	total := len(h.connections)
	h.mu.Unlock()

	h.metrics.WSOpened()
	h.log.Debug("websocket connected", zap.String("conn_id", id.String()), zap.Int("total", total))
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.connections[id]
	delete(h.connections, id)
	h.mu.Unlock()
	if !ok {
		return
	}

	c.cancel()
	c.ws.Close()
	h.metrics.WSClosed()
	h.log.Debug("websocket disconnected", zap.String("conn_id", id.String()))
}

// Count reports open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown sends a close frame to every client, cancels their in-flight
// calls and drops the connections.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, closeReason)
	for _, c := range h.connections {
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.writeMu.Unlock()
		c.cancel()
		c.ws.Close()
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
