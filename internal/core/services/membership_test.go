package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/internal/core/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMembershipFixture(t *testing.T) (*services.MembershipService, *memRoomStore) {
	t.Helper()
	store := newMemRoomStore()
	svc := services.NewMembershipService(testLogger(), store, passTx{}, services.NewRoomGuard())
	return svc, store
}

func TestJoinCreatesRoomOnFirstJoin(t *testing.T) {
	svc, store := newMembershipFixture(t)
	ctx := context.Background()
	roomID := uuid.New()
	userID := uuid.NewString()

	already, err := svc.Join(ctx, roomID, userID)
	require.NoError(t, err)
	assert.False(t, already)

	room, err := store.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{userID}, room.Members)
}

func TestJoinIsIdempotent(t *testing.T) {
	svc, store := newMembershipFixture(t)
	ctx := context.Background()
	roomID := uuid.New()
	userID := uuid.NewString()

	_, err := svc.Join(ctx, roomID, userID)
	require.NoError(t, err)

	already, err := svc.Join(ctx, roomID, userID)
	require.NoError(t, err)
	assert.True(t, already)

	room, err := store.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, room.Members, 1)
}

func TestJoinRejectsUninvitedOnPrivateRoom(t *testing.T) {
	svc, store := newMembershipFixture(t)
	ctx := context.Background()
	owner := uuid.NewString()
	invitee := uuid.NewString()
	stranger := uuid.NewString()

	room, err := svc.CreateRoom(ctx, owner, "backchannel", true, []string{invitee})
	require.NoError(t, err)

	_, err = svc.Join(ctx, room.ID, stranger)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = svc.Join(ctx, room.ID, invitee)
	require.NoError(t, err)

	stored, err := store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{owner, invitee}, stored.Members)
}

func TestJoinRejectsZeroRoomID(t *testing.T) {
	svc, _ := newMembershipFixture(t)

	_, err := svc.Join(context.Background(), uuid.Nil, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrInvalidRoomID)
}

func TestLeaveLastMemberKeepsRoomAndHistory(t *testing.T) {
	store := newMemRoomStore()
	guard := services.NewRoomGuard()
	membership := services.NewMembershipService(testLogger(), store, passTx{}, guard)
	msgs := services.NewMessageService(testLogger(), store, newMemQueue(), passTx{}, guard, time.Second)
	ctx := context.Background()
	roomID := uuid.New()
	userID := uuid.New()

	_, err := membership.Join(ctx, roomID, userID.String())
	require.NoError(t, err)
	_, err = msgs.Send(ctx, roomID, userID, "last words", "", "")
	require.NoError(t, err)

	require.NoError(t, membership.Leave(ctx, roomID, userID.String()))

	room, err := store.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Empty(t, room.Members)
	assert.Equal(t, int64(1), room.LastSeq)

	// Rejoining restores access to the retained history.
	_, err = membership.Join(ctx, roomID, userID.String())
	require.NoError(t, err)
	history, err := msgs.MessagesSince(ctx, roomID, userID.String(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "last words", history[0].Body)
}

func TestLeaveNonMemberIsNoop(t *testing.T) {
	svc, store := newMembershipFixture(t)
	ctx := context.Background()
	roomID := uuid.New()
	member := uuid.NewString()

	_, err := svc.Join(ctx, roomID, member)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, roomID, uuid.NewString()))

	room, err := store.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{member}, room.Members)
}

func TestMembersOf(t *testing.T) {
	svc, _ := newMembershipFixture(t)
	ctx := context.Background()
	roomID := uuid.New()
	a, b := uuid.NewString(), uuid.NewString()

	_, err := svc.Join(ctx, roomID, a)
	require.NoError(t, err)
	_, err = svc.Join(ctx, roomID, b)
	require.NoError(t, err)

	members, err := svc.MembersOf(ctx, roomID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, members)
}
