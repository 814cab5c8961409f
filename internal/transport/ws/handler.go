package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"ecocards/internal/battle"
	"ecocards/internal/model"
	"ecocards/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// ValidRoomID reports whether id can name a battle room
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

// Options tunes the WebSocket handler
type Options struct {
	// RateLimit is the sustained inbound messages per second per connection; 0 disables limiting
	RateLimit float64
	RateBurst int
	// AllowedOrigins restricts the Origin header; empty allows all.
	// Entries are matched exactly, see config.normalizeOrigins.
	AllowedOrigins []string
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	battles  *service.BattleService
	authSvc  *service.AuthService
	upgrader websocket.Upgrader
	limit    rate.Limit
	burst    int
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, battles *service.BattleService, authSvc *service.AuthService, opts Options, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:     hub,
		battles: battles,
		authSvc: authSvc,
		limit:   rate.Inf,
		burst:   opts.RateBurst,
		logger:  logger,
	}
	if opts.RateLimit > 0 {
		h.limit = rate.Limit(opts.RateLimit)
	}
	if h.burst <= 0 {
		h.burst = 1
	}

	allowed := make(map[string]bool, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[o] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}
	return h
}

// BattleWS handles GET /v1/ws/battle/{roomId}
func (h *Handler) BattleWS(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if !ValidRoomID(roomID) {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	token := tokenFromRequest(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConnection(uuid.New().String(), roomID, claims.UserID)
	h.hub.Register(conn)

	caller := service.Caller{
		UserID:   claims.UserID,
		Username: claims.Username,
		ConnID:   conn.ID,
	}
	h.logger.Info("player connected",
		zap.String("room_id", roomID),
		zap.String("user_id", claims.UserID),
		zap.String("conn_id", conn.ID),
		zap.Int("room_conns", h.hub.ConnCount(roomID)),
	)

	go h.writePump(wsConn, conn)

	// The request context ends when this handler returns
	ctx := context.Background()
	entered := true
	if err := h.battles.Enter(ctx, roomID, caller); err != nil {
		entered = false
		h.hub.CloseConn(roomID, conn.ID)
	}

	go h.readPump(ctx, wsConn, conn, caller, entered)
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func (h *Handler) readPump(ctx context.Context, wsConn *websocket.Conn, conn *Connection, caller service.Caller, entered bool) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
		h.logger.Info("player disconnected",
			zap.String("room_id", conn.RoomID),
			zap.String("user_id", conn.UserID),
			zap.String("conn_id", conn.ID),
			zap.Int("room_conns", h.hub.ConnCount(conn.RoomID)),
		)
		if entered {
			h.battles.Leave(ctx, conn.RoomID, caller)
		}
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			break
		}
		if !entered {
			continue
		}

		if !limiter.Allow() {
			h.sendError(conn, battle.ErrRateLimited)
			continue
		}

		var msg model.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			h.sendError(conn, battle.ErrInvalidMessage)
			continue
		}
		h.battles.Handle(ctx, conn.RoomID, caller, &msg)
	}
}

func (h *Handler) sendError(conn *Connection, be *battle.Error) {
	h.hub.SendToConn(conn.RoomID, conn.ID, &model.OutboundMessage{
		Event:   model.EventError,
		RoomID:  conn.RoomID,
		Code:    be.Code,
		Message: be.Message,
	})
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
