package service

import "ecocards/internal/model"

// Broadcaster interface for WebSocket delivery (avoids import cycle).
// Calls for one room are delivered in the order they are made.
type Broadcaster interface {
	SendToConn(roomID, connID string, msg *model.OutboundMessage)
	// BroadcastToRoom sends to every connection in the room except exceptConnID
	BroadcastToRoom(roomID string, msg *model.OutboundMessage, exceptConnID string)
	// CloseConn closes a connection once everything queued before it is delivered
	CloseConn(roomID, connID string)
	HasUserConnection(roomID, userID string) bool
}
