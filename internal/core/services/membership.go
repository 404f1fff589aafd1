package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shjroemon/social-network-be/internal/core/contracts"
	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/pkg/logging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("chat-core")

// MembershipService owns room membership: joins create the room when
// it does not exist, are idempotent, and honor the private-room invite
// list. Leaving the last member keeps the room so history persists.
type MembershipService struct {
	log   *slog.Logger
	store domain.RoomStore
	tx    contracts.TxRunner
	guard *RoomGuard
}

func NewMembershipService(
	log *slog.Logger,
	store domain.RoomStore,
	tx contracts.TxRunner,
	guard *RoomGuard,
) *MembershipService {
	return &MembershipService{
		log:   log,
		store: store,
		tx:    tx,
		guard: guard,
	}
}

func (s *MembershipService) Join(ctx context.Context, roomID uuid.UUID, userID string) (alreadyMember bool, err error) {
	ctx, span := tracer.Start(ctx, "MembershipService.Join", trace.WithAttributes(
		attribute.String("room_id", roomID.String()),
		attribute.String("user_id", userID),
	))
	defer span.End()
	if roomID == uuid.Nil || userID == "" {
		return false, domain.ErrInvalidRoomID
	}
	unlock := s.guard.Lock(roomID.String())
	defer unlock()

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		room, err := s.store.GetRoom(txCtx, roomID)
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			room = domain.NewRoom(roomID, "")
		case err != nil:
			return err
		}
		if !room.MayJoin(userID) {
			return domain.ErrNotAuthorized
		}
		if room.AddMember(userID) {
			alreadyMember = true
			return nil
		}
		return s.store.UpsertRoom(txCtx, room)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "join failed")
		s.log.ErrorContext(ctx, "membership - join - failed", logging.Room(roomID.String()), logging.User(userID), logging.Err(err))
		return false, err
	}
	s.log.InfoContext(ctx, "membership - join - success", logging.Room(roomID.String()), logging.User(userID), "already_member", alreadyMember)
	return alreadyMember, nil
}

func (s *MembershipService) Leave(ctx context.Context, roomID uuid.UUID, userID string) error {
	ctx, span := tracer.Start(ctx, "MembershipService.Leave", trace.WithAttributes(
		attribute.String("room_id", roomID.String()),
		attribute.String("user_id", userID),
	))
	defer span.End()
	unlock := s.guard.Lock(roomID.String())
	defer unlock()

	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		room, err := s.store.GetRoom(txCtx, roomID)
		if err != nil {
			return err
		}
		if !room.IsMember(userID) {
			return nil
		}
		// The room outlives its last member; only membership changes.
		room.RemoveMember(userID)
		return s.store.UpsertRoom(txCtx, room)
	})
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "membership - leave - failed", logging.Room(roomID.String()), logging.User(userID), logging.Err(err))
		return err
	}
	s.log.InfoContext(ctx, "membership - leave - success", logging.Room(roomID.String()), logging.User(userID))
	return nil
}

func (s *MembershipService) MembersOf(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room.Members, nil
}

// CreateRoom makes a room explicitly, admitting the creator and
// recording the invite list for private rooms.
func (s *MembershipService) CreateRoom(ctx context.Context, creatorID, name string, private bool, invited []string) (*domain.Room, error) {
	ctx, span := tracer.Start(ctx, "MembershipService.CreateRoom", trace.WithAttributes(
		attribute.String("user_id", creatorID),
		attribute.Bool("private", private),
	))
	defer span.End()
	room := domain.NewRoom(uuid.New(), name)
	room.Private = private
	room.Invited = invited
	room.AddMember(creatorID)
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		return s.store.UpsertRoom(txCtx, room)
	}); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "membership - create room - failed", logging.User(creatorID), logging.Err(err))
		return nil, err
	}
	s.log.InfoContext(ctx, "membership - create room - success", logging.Room(room.ID.String()), logging.User(creatorID))
	return room, nil
}
