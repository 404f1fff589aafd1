package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shjroemon/social-network-be/internal/core/contracts"
	"github.com/shjroemon/social-network-be/internal/core/domain"

	"github.com/google/uuid"
)

// memRoomStore is an in-memory RoomStore with injectable append
// failures. Reads return copies so callers cannot mutate stored state
// behind the store's back.
type memRoomStore struct {
	mu          sync.Mutex
	rooms       map[uuid.UUID]*domain.Room
	msgs        map[uuid.UUID][]domain.Message
	appendCalls int
	failAppend  map[int]bool // 1-based call number → fail
}

func newMemRoomStore() *memRoomStore {
	return &memRoomStore{
		rooms:      make(map[uuid.UUID]*domain.Room),
		msgs:       make(map[uuid.UUID][]domain.Message),
		failAppend: make(map[int]bool),
	}
}

func cloneRoom(r *domain.Room) *domain.Room {
	c := *r
	c.Members = append([]string(nil), r.Members...)
	c.Invited = append([]string(nil), r.Invited...)
	return &c
}

func (s *memRoomStore) UpsertRoom(ctx context.Context, r *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rooms[r.ID]; ok {
		// last_seq is owned by AppendMessage, mirror the SQL upsert
		r.LastSeq = existing.LastSeq
		r.CreatedAt = existing.CreatedAt
	}
	s.rooms[r.ID] = cloneRoom(r)
	return nil
}

func (s *memRoomStore) GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return cloneRoom(r), nil
}

func (s *memRoomStore) AppendMessage(ctx context.Context, msg *domain.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if s.failAppend[s.appendCalls] {
		return 0, errors.New("injected storage failure")
	}
	r, ok := s.rooms[msg.RoomID]
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	r.LastSeq++
	msg.Seq = r.LastSeq
	s.msgs[msg.RoomID] = append(s.msgs[msg.RoomID], *msg)
	return msg.Seq, nil
}

func (s *memRoomStore) MessagesSince(ctx context.Context, roomID uuid.UUID, since int64) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.msgs[roomID] {
		if m.Seq > since {
			out = append(out, m)
		}
	}
	return out, nil
}

// passTx runs the function without any transaction semantics; the
// memRoomStore's operations are already atomic.
type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memQueue records published frames in publish order.
type memQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	failNext  bool
}

func newMemQueue() *memQueue {
	return &memQueue{published: make(map[string][][]byte)}
}

func (q *memQueue) Publish(ctx context.Context, roomID string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failNext {
		q.failNext = false
		return errors.New("injected publish failure")
	}
	q.published[roomID] = append(q.published[roomID], append([]byte(nil), payload...))
	return nil
}

func (q *memQueue) Subscribe(ctx context.Context, roomID, group string, handler func(ctx context.Context, messageID string, data []byte) error) error {
	return nil
}

func (q *memQueue) Acknowledge(ctx context.Context, roomID, group, messageID string) error {
	return nil
}

func (q *memQueue) DeleteMessage(ctx context.Context, roomID, messageID string) error { return nil }
func (q *memQueue) DeleteStream(ctx context.Context, roomID string) error             { return nil }

func (q *memQueue) entries(roomID string) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([][]byte(nil), q.published[roomID]...)
}

// memPresenceStore is an in-memory PresenceStore.
type memPresenceStore struct {
	mu     sync.Mutex
	online map[string]bool
}

func newMemPresenceStore() *memPresenceStore {
	return &memPresenceStore{online: make(map[string]bool)}
}

func (p *memPresenceStore) Touch(ctx context.Context, userID string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = true
	return nil
}

func (p *memPresenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID], nil
}

func (p *memPresenceStore) Clear(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	return nil
}

// recordingRegistry counts presence fan-outs so tests can assert the
// exactly-once offline transition.
type recordingRegistry struct {
	mu       sync.Mutex
	presence []domain.PresenceEvent
}

func (r *recordingRegistry) Register(c contracts.Client)                  {}
func (r *recordingRegistry) Unregister(connID string) error               { return nil }
func (r *recordingRegistry) ConnectionsFor(userID string) []contracts.Client {
	return nil
}
func (r *recordingRegistry) JoinRoom(c contracts.Client, roomID string)  {}
func (r *recordingRegistry) LeaveRoom(c contracts.Client, roomID string) {}
func (r *recordingRegistry) Deliver(ctx context.Context, roomID string, msg domain.ChatMessage) {
}
func (r *recordingRegistry) SendAck(ctx context.Context, connID string, ack domain.AckMessage) {
}

func (r *recordingRegistry) NotifyPresence(ctx context.Context, roomID string, ev domain.PresenceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence = append(r.presence, ev)
}

func (r *recordingRegistry) events() []domain.PresenceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PresenceEvent(nil), r.presence...)
}
