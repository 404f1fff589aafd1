package contracts

import (
	"context"

	"github.com/shjroemon/social-network-be/internal/core/domain"
)

// Registry owns every live connection on this node. It maps users to
// their connections (multi-device) and rooms to locally subscribed
// connections, and drives presence counting atomically with
// registration.
type Registry interface {
	// Register admits an authenticated connection.
	Register(c Client)
	// Unregister removes a connection; unknown ids return ErrNotFound.
	Unregister(connID string) error
	// ConnectionsFor returns all live connections of one user.
	ConnectionsFor(userID string) []Client
	// JoinRoom / LeaveRoom maintain the local room fan-out index.
	JoinRoom(c Client, roomID string)
	LeaveRoom(c Client, roomID string)
	// Deliver sends a persisted message to local room subscribers,
	// excluding the sender's own connections.
	Deliver(ctx context.Context, roomID string, msg domain.ChatMessage)
	// SendAck targets a single connection.
	SendAck(ctx context.Context, connID string, ack domain.AckMessage)
	// NotifyPresence is best-effort fan-out of a presence change to a
	// room's local subscribers.
	NotifyPresence(ctx context.Context, roomID string, ev domain.PresenceEvent)
}

// Client is the minimal handle the registry needs per connection.
type Client interface {
	ConnID() string
	UserID() string
	Rooms() []string
	// Send enqueues a frame on the bounded outbound queue. A full
	// queue closes the client (slow consumers reconnect and resync).
	Send(ctx context.Context, data []byte) error
	Close()
}

// PresenceSink receives connection-count transitions from the registry.
type PresenceSink interface {
	ConnectionOpened(ctx context.Context, userID string)
	ConnectionClosed(ctx context.Context, userID string, rooms []string)
}
