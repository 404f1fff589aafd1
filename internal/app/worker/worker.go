package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shjroemon/social-network-be/internal/core/contracts"
	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/pkg/logging"
)

// RoomDeliveryWorker drains one room's delivery stream and fans each
// committed message out to the local subscribers. One worker per room
// per node; sequential consumption is what keeps per-recipient
// delivery in sequence order.
type RoomDeliveryWorker struct {
	log      *slog.Logger
	queue    contracts.DeliveryQueue
	registry contracts.Registry
	group    string
}

func NewRoomDeliveryWorker(
	log *slog.Logger,
	queue contracts.DeliveryQueue,
	registry contracts.Registry,
	group string,
) contracts.RoomWorker {
	return &RoomDeliveryWorker{
		log:      log,
		queue:    queue,
		registry: registry,
		group:    group,
	}
}

func (w *RoomDeliveryWorker) Run(ctx context.Context, roomID string) error {
	w.log.InfoContext(ctx, "worker - run - consuming room stream", logging.Room(roomID), "group", w.group)
	return w.queue.Subscribe(ctx, roomID, w.group,
		func(ctx context.Context, messageID string, raw []byte) error {
			return w.ProcessMessage(ctx, roomID, messageID, raw)
		})
}

func (w *RoomDeliveryWorker) ProcessMessage(ctx context.Context, roomID, messageID string, raw []byte) error {
	var msg domain.ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		w.log.Error("worker - process message - malformed entry", logging.Room(roomID), "message_id", messageID, logging.Err(err))
		// Malformed entries are acked away so they cannot wedge the room.
		_ = w.queue.Acknowledge(ctx, roomID, w.group, messageID)
		return err
	}
	w.registry.Deliver(ctx, roomID, msg)
	if err := w.queue.Acknowledge(ctx, roomID, w.group, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - ack failed", logging.Room(roomID), "message_id", messageID, logging.Err(err))
		return err
	}
	if err := w.queue.DeleteMessage(ctx, roomID, messageID); err != nil {
		// Already delivered and acked; trimming is best-effort.
		w.log.WarnContext(ctx, "worker - process message - trim failed", logging.Room(roomID), "message_id", messageID, logging.Err(err))
	}
	return nil
}
