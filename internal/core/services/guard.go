package services

import "sync"

// RoomGuard serializes every mutation touching one room: membership
// changes and sequence assignment share the same lock, which is what
// makes the increment-and-stamp step linearizable per room. Locks for
// different rooms are independent. Entries are reference counted and
// dropped when the last holder unlocks, so idle rooms do not pin a
// mutex for the life of the process.
type RoomGuard struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewRoomGuard() *RoomGuard {
	return &RoomGuard{locks: make(map[string]*roomLock)}
}

func (g *RoomGuard) Lock(roomID string) func() {
	g.mu.Lock()
	l, ok := g.locks[roomID]
	if !ok {
		l = &roomLock{}
		g.locks[roomID] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, roomID)
		}
		g.mu.Unlock()
	}
}
