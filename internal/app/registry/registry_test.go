package registry_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shjroemon/social-network-be/internal/app/registry"
	"github.com/shjroemon/social-network-be/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient records everything sent to it.
type stubClient struct {
	connID string
	userID string

	mu     sync.Mutex
	frames [][]byte
	rooms  []string
	closed bool
}

func newStubClient(userID string) *stubClient {
	return &stubClient{connID: uuid.NewString(), userID: userID}
}

func (c *stubClient) ConnID() string { return c.connID }
func (c *stubClient) UserID() string { return c.userID }

func (c *stubClient) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rooms...)
}

func (c *stubClient) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *stubClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *stubClient) joined(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms = append(c.rooms, roomID)
}

func (c *stubClient) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

// countingSink records presence transitions from the registry.
type countingSink struct {
	mu     sync.Mutex
	opened []string
	closed []string
}

func (s *countingSink) ConnectionOpened(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, userID)
}

func (s *countingSink) ConnectionClosed(ctx context.Context, userID string, rooms []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, userID)
}

func TestRegisterUnregisterLifecycle(t *testing.T) {
	sink := &countingSink{}
	hub := registry.NewRegistry(sink)
	user := uuid.NewString()
	c := newStubClient(user)

	hub.Register(c)
	require.Len(t, hub.ConnectionsFor(user), 1)
	assert.Equal(t, []string{user}, sink.opened)

	require.NoError(t, hub.Unregister(c.ConnID()))
	assert.Empty(t, hub.ConnectionsFor(user))
	assert.Equal(t, []string{user}, sink.closed)

	assert.ErrorIs(t, hub.Unregister(c.ConnID()), domain.ErrNotFound)
}

func TestConnectionsForReturnsEveryDevice(t *testing.T) {
	hub := registry.NewRegistry(&countingSink{})
	user := uuid.NewString()
	a, b := newStubClient(user), newStubClient(user)

	hub.Register(a)
	hub.Register(b)
	hub.Register(newStubClient(uuid.NewString()))

	assert.Len(t, hub.ConnectionsFor(user), 2)
}

func TestDeliverSkipsOnlyOriginatingConnection(t *testing.T) {
	hub := registry.NewRegistry(&countingSink{})
	roomID := uuid.NewString()
	sender := uuid.NewString()
	senderPhone := newStubClient(sender)
	senderLaptop := newStubClient(sender)
	recipient := newStubClient(uuid.NewString())
	outsider := newStubClient(uuid.NewString())

	for _, c := range []*stubClient{senderPhone, senderLaptop, recipient, outsider} {
		hub.Register(c)
	}
	hub.JoinRoom(senderPhone, roomID)
	hub.JoinRoom(senderLaptop, roomID)
	hub.JoinRoom(recipient, roomID)

	msg := domain.ChatMessage{
		Type:         domain.TypeMessage,
		RoomID:       roomID,
		SenderID:     sender,
		SenderConnID: senderPhone.ConnID(),
		Seq:          1,
		Payload:      "hi",
	}
	hub.Deliver(context.Background(), roomID, msg)

	// The originating connection holds the ack; nothing else is skipped.
	assert.Empty(t, senderPhone.sent())
	assert.Empty(t, outsider.sent())

	// The sender's other device is a recipient like any other.
	laptopFrames := senderLaptop.sent()
	require.Len(t, laptopFrames, 1)
	var laptopGot domain.ChatMessage
	require.NoError(t, json.Unmarshal(laptopFrames[0], &laptopGot))
	assert.Equal(t, int64(1), laptopGot.Seq)

	frames := recipient.sent()
	require.Len(t, frames, 1)
	var got domain.ChatMessage
	require.NoError(t, json.Unmarshal(frames[0], &got))
	assert.Equal(t, msg.Seq, got.Seq)
	assert.Equal(t, msg.Payload, got.Payload)
}

func TestDeliverWithoutOriginReachesEveryConnection(t *testing.T) {
	hub := registry.NewRegistry(&countingSink{})
	roomID := uuid.NewString()
	sender := uuid.NewString()
	senderConn := newStubClient(sender)
	recipient := newStubClient(uuid.NewString())

	hub.Register(senderConn)
	hub.Register(recipient)
	hub.JoinRoom(senderConn, roomID)
	hub.JoinRoom(recipient, roomID)

	// A send with no websocket origin (the REST path) fans out to all.
	msg := domain.ChatMessage{Type: domain.TypeMessage, RoomID: roomID, SenderID: sender, Seq: 1, Payload: "hi"}
	hub.Deliver(context.Background(), roomID, msg)

	assert.Len(t, senderConn.sent(), 1)
	assert.Len(t, recipient.sent(), 1)
}

func TestSendAckTargetsOneConnection(t *testing.T) {
	hub := registry.NewRegistry(&countingSink{})
	user := uuid.NewString()
	phone, laptop := newStubClient(user), newStubClient(user)
	hub.Register(phone)
	hub.Register(laptop)

	ack := domain.AckMessage{Type: domain.TypeAck, RoomID: uuid.NewString(), Seq: 7}
	hub.SendAck(context.Background(), phone.ConnID(), ack)

	require.Len(t, phone.sent(), 1)
	assert.Empty(t, laptop.sent())

	// Unknown connection ids are a no-op.
	hub.SendAck(context.Background(), uuid.NewString(), ack)
}

func TestWorkerStartsWithFirstSubscriberStopsWithLast(t *testing.T) {
	hub := registry.NewRegistry(&countingSink{})
	roomID := uuid.NewString()

	var mu sync.Mutex
	started := 0
	stopped := make(chan struct{}, 4)
	hub.RunWorker(func(ctx context.Context, gotRoom string) error {
		mu.Lock()
		started++
		mu.Unlock()
		assert.Equal(t, roomID, gotRoom)
		<-ctx.Done()
		stopped <- struct{}{}
		return ctx.Err()
	})

	a, b := newStubClient(uuid.NewString()), newStubClient(uuid.NewString())
	hub.Register(a)
	hub.Register(b)

	hub.JoinRoom(a, roomID)
	hub.JoinRoom(b, roomID)
	a.joined(roomID)
	b.joined(roomID)

	mu.Lock()
	assert.Equal(t, 1, started)
	mu.Unlock()

	hub.LeaveRoom(a, roomID)
	select {
	case <-stopped:
		t.Fatal("worker stopped while the room still had a subscriber")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, hub.Unregister(b.ConnID()))
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after the last subscriber detached")
	}
}

func TestNotifyPresenceSkipsSubjectUser(t *testing.T) {
	hub := registry.NewRegistry(&countingSink{})
	roomID := uuid.NewString()
	leaver := uuid.NewString()
	leaverConn := newStubClient(leaver)
	watcher := newStubClient(uuid.NewString())

	hub.Register(leaverConn)
	hub.Register(watcher)
	hub.JoinRoom(leaverConn, roomID)
	hub.JoinRoom(watcher, roomID)

	hub.NotifyPresence(context.Background(), roomID, domain.PresenceEvent{
		Type:   domain.TypePresence,
		UserID: leaver,
		State:  domain.PresenceOffline,
	})

	assert.Empty(t, leaverConn.sent())
	require.Len(t, watcher.sent(), 1)
	var ev domain.PresenceEvent
	require.NoError(t, json.Unmarshal(watcher.sent()[0], &ev))
	assert.Equal(t, domain.PresenceOffline, ev.State)
}
