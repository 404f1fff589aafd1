package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shjroemon/social-network-be/internal/core/contracts"
	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/pkg/logging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MessageService is the ordering and delivery engine. Send assigns the
// per-room sequence and persists under the room guard, so two
// concurrent sends into one room can never observe the same number,
// and a failed persistence never burns one. Delivery happens after
// commit, through the per-room queue.
type MessageService struct {
	log            *slog.Logger
	store          domain.RoomStore
	queue          contracts.DeliveryQueue
	tx             contracts.TxRunner
	guard          *RoomGuard
	storageTimeout time.Duration
}

func NewMessageService(
	log *slog.Logger,
	store domain.RoomStore,
	queue contracts.DeliveryQueue,
	tx contracts.TxRunner,
	guard *RoomGuard,
	storageTimeout time.Duration,
) *MessageService {
	return &MessageService{
		log:            log,
		store:          store,
		queue:          queue,
		tx:             tx,
		guard:          guard,
		storageTimeout: storageTimeout,
	}
}

// Send persists one message and hands it to the delivery bus.
// originConnID names the connection the send came in on; fan-out skips
// it because the ack already confirms the message there. REST sends
// pass the empty string and every live connection receives the frame.
func (s *MessageService) Send(ctx context.Context, roomID uuid.UUID, senderID uuid.UUID, body, mediaURL, originConnID string) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.Send", trace.WithAttributes(
		attribute.String("room_id", roomID.String()),
		attribute.String("sender_id", senderID.String()),
	))
	defer span.End()
	if body == "" && mediaURL == "" {
		return nil, domain.ErrInvalidPayload
	}
	if roomID == uuid.Nil || senderID == uuid.Nil {
		return nil, domain.ErrInvalidPayload
	}

	msg := &domain.Message{
		ID:       uuid.New(),
		RoomID:   roomID,
		SenderID: senderID,
		Body:     body,
		MediaURL: mediaURL,
	}

	unlock := s.guard.Lock(roomID.String())
	defer unlock()

	storageCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	err := s.tx.WithTx(storageCtx, func(txCtx context.Context) error {
		// Membership is rechecked inside the transaction so a
		// concurrent leave cannot slip a message in. A send never
		// creates the room.
		room, err := s.store.GetRoom(txCtx, roomID)
		if errors.Is(err, domain.ErrRoomNotFound) {
			return domain.ErrNotMember
		}
		if err != nil {
			return err
		}
		if !room.IsMember(senderID.String()) {
			return domain.ErrNotMember
		}
		_, err = s.store.AppendMessage(txCtx, msg)
		return err
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrNotMember) {
			span.SetStatus(codes.Error, "not a member")
			return nil, domain.ErrNotMember
		}
		span.SetStatus(codes.Error, "persistence failed")
		s.log.ErrorContext(ctx, "messages - send - persistence failed", logging.Room(roomID.String()), logging.Sender(senderID.String()), logging.Err(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	span.SetAttributes(attribute.Int64("chat.seq", msg.Seq))
	s.log.InfoContext(ctx, "messages - send - persisted", logging.Room(roomID.String()), logging.Sender(senderID.String()), logging.Sequence(msg.Seq))

	// The send is already acknowledged by the committed sequence;
	// publish failures leave recipients to catch up via resync.
	wire := domain.WireMessage(msg)
	wire.SenderConnID = originConnID
	raw, _ := json.Marshal(wire)
	if err := s.queue.Publish(ctx, roomID.String(), raw); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - send - publish failed", logging.Room(roomID.String()), logging.Sequence(msg.Seq), logging.Err(err))
	}
	return msg, nil
}

// MessagesSince backs resync: all messages with Seq > since, ascending.
// Only members may read a room's history.
func (s *MessageService) MessagesSince(ctx context.Context, roomID uuid.UUID, requesterID string, since int64) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.MessagesSince", trace.WithAttributes(
		attribute.String("room_id", roomID.String()),
		attribute.Int64("since_seq", since),
	))
	defer span.End()
	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil, domain.ErrNotMember
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if !room.IsMember(requesterID) {
		return nil, domain.ErrNotMember
	}
	msgs, err := s.store.MessagesSince(ctx, roomID, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		s.log.ErrorContext(ctx, "messages - resync - read failed", logging.Room(roomID.String()), logging.Err(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	span.SetAttributes(attribute.Int("message_count", len(msgs)))
	return msgs, nil
}
