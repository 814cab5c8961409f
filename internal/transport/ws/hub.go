package ws

import (
	"encoding/json"
	"sync"

	"ecocards/internal/model"

	"go.uber.org/zap"
)

const sendBufferSize = 64

// Hub manages WebSocket connections for battle rooms. A single goroutine
// drains one FIFO queue, so messages for a room are delivered in the order
// they were queued.
type Hub struct {
	// roomID -> connID -> conn
	rooms map[string]map[string]*Connection

	mu sync.RWMutex

	// Channels for coordination
	register   chan *hubOp
	unregister chan *hubOp
	broadcast  chan *BroadcastMessage
	quit       chan struct{}
	stopOnce   sync.Once

	logger *zap.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	ID     string
	RoomID string
	UserID string
	Send   chan []byte
}

// NewConnection creates a connection with the default send buffer
func NewConnection(id, roomID, userID string) *Connection {
	return &Connection{
		ID:     id,
		RoomID: roomID,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// BroadcastMessage is a queued delivery
type BroadcastMessage struct {
	RoomID  string
	ToConn  string // empty means every connection in the room
	Except  string
	Close   bool // close ToConn after everything queued before it
	Message *model.OutboundMessage
}

type hubOp struct {
	conn *Connection
	done chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		rooms:      make(map[string]map[string]*Connection),
		register:   make(chan *hubOp),
		unregister: make(chan *hubOp),
		broadcast:  make(chan *BroadcastMessage, 256),
		quit:       make(chan struct{}),
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			return

		case op := <-h.register:
			h.mu.Lock()
			conns := h.rooms[op.conn.RoomID]
			if conns == nil {
				conns = make(map[string]*Connection)
				h.rooms[op.conn.RoomID] = conns
			}
			conns[op.conn.ID] = op.conn
			h.mu.Unlock()
			h.logger.Debug("connection registered",
				zap.String("room_id", op.conn.RoomID),
				zap.String("conn_id", op.conn.ID),
				zap.String("user_id", op.conn.UserID),
			)
			close(op.done)

		case op := <-h.unregister:
			h.mu.Lock()
			if h.remove(op.conn.RoomID, op.conn.ID) {
				h.logger.Debug("connection unregistered",
					zap.String("room_id", op.conn.RoomID),
					zap.String("conn_id", op.conn.ID),
				)
			}
			h.mu.Unlock()
			close(op.done)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.Close {
		h.remove(msg.RoomID, msg.ToConn)
		return
	}

	data, err := json.Marshal(msg.Message)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("room_id", msg.RoomID), zap.Error(err))
		return
	}

	conns := h.rooms[msg.RoomID]
	if msg.ToConn != "" {
		if conn, ok := conns[msg.ToConn]; ok {
			h.send(conn, data)
		}
		return
	}
	for id, conn := range conns {
		if id == msg.Except {
			continue
		}
		h.send(conn, data)
	}
}

// send drops a consumer whose buffer is full rather than stall the room.
// Caller holds h.mu.
func (h *Hub) send(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		h.logger.Warn("dropping slow connection",
			zap.String("room_id", conn.RoomID),
			zap.String("conn_id", conn.ID),
		)
		h.remove(conn.RoomID, conn.ID)
	}
}

// remove closes and forgets a connection. Caller holds h.mu.
func (h *Hub) remove(roomID, connID string) bool {
	conns, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	conn, ok := conns[connID]
	if !ok {
		return false
	}
	delete(conns, connID)
	close(conn.Send)
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
	return true
}

// Register adds a connection. It returns once the connection receives
// everything queued after it.
func (h *Hub) Register(conn *Connection) {
	h.do(h.register, conn)
}

// Unregister removes a connection. It returns once the connection no longer
// counts for HasUserConnection.
func (h *Hub) Unregister(conn *Connection) {
	h.do(h.unregister, conn)
}

func (h *Hub) do(ch chan *hubOp, conn *Connection) {
	op := &hubOp{conn: conn, done: make(chan struct{})}
	select {
	case ch <- op:
		<-op.done
	case <-h.quit:
	}
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.quit:
	}
}

// SendToConn sends a message to one connection (implements service.Broadcaster)
func (h *Hub) SendToConn(roomID, connID string, msg *model.OutboundMessage) {
	h.enqueue(&BroadcastMessage{RoomID: roomID, ToConn: connID, Message: msg})
}

// BroadcastToRoom sends a message to every connection in a room but one (implements service.Broadcaster)
func (h *Hub) BroadcastToRoom(roomID string, msg *model.OutboundMessage, exceptConnID string) {
	h.enqueue(&BroadcastMessage{RoomID: roomID, Except: exceptConnID, Message: msg})
}

// CloseConn closes a connection after its queued messages (implements service.Broadcaster)
func (h *Hub) CloseConn(roomID, connID string) {
	h.enqueue(&BroadcastMessage{RoomID: roomID, ToConn: connID, Close: true})
}

// HasUserConnection reports whether userID has a registered connection in the room
func (h *Hub) HasUserConnection(roomID, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.rooms[roomID] {
		if conn.UserID == userID {
			return true
		}
	}
	return false
}

// ConnCount returns the number of connections in a room
func (h *Hub) ConnCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Stop ends the hub goroutine. Pending deliveries are discarded.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}
