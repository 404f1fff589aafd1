package contracts

import "context"

// DeliveryQueue is the per-room delivery bus. Messages are published
// after they commit to storage; a single consumer per room per node
// drains them in publish (== sequence) order, which is what preserves
// per-recipient ordering. At-least-once: entries stay pending until
// acknowledged.
type DeliveryQueue interface {
	Publish(ctx context.Context, roomID string, payload []byte) error
	Subscribe(ctx context.Context, roomID string, group string, handler func(ctx context.Context, messageID string, data []byte) error) error
	Acknowledge(ctx context.Context, roomID, group, messageID string) error
	DeleteMessage(ctx context.Context, roomID, messageID string) error
	DeleteStream(ctx context.Context, roomID string) error
}
