package contracts

import "context"

// RoomWorker is the consumer side of the delivery bus: one loop per
// room, delivering committed messages to local subscribers in order.
type RoomWorker interface {
	Run(ctx context.Context, roomID string) error
	ProcessMessage(ctx context.Context, roomID, messageID string, raw []byte) error
}
