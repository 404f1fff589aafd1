package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shjroemon/social-network-be/internal/core/contracts"
	"github.com/shjroemon/social-network-be/internal/core/domain"
)

// Registry is the session registry for this node: connection handles
// keyed by connection id, the per-user index for multi-device fan-out,
// and the per-room index for delivery. A room's delivery worker starts
// with its first local subscriber and stops with its last.
type Registry struct {
	mu        sync.RWMutex
	clients   map[string]contracts.Client            // conn_id → client
	byUser    map[string]map[string]contracts.Client // user_id → conn_id → client
	roomHub   map[string]map[string]contracts.Client // room_id → conn_id → client
	workers   map[string]context.CancelFunc
	runWorker func(ctx context.Context, roomID string) error
	presence  contracts.PresenceSink
}

func NewRegistry(presence contracts.PresenceSink) *Registry {
	return &Registry{
		clients:  make(map[string]contracts.Client),
		byUser:   make(map[string]map[string]contracts.Client),
		roomHub:  make(map[string]map[string]contracts.Client),
		workers:  make(map[string]context.CancelFunc),
		presence: presence,
	}
}

// RunWorker installs the per-room delivery loop factory.
func (h *Registry) RunWorker(runWorker func(ctx context.Context, roomID string) error) {
	h.runWorker = runWorker
}

func (h *Registry) Register(c contracts.Client) {
	h.mu.Lock()
	connID := c.ConnID()
	userID := c.UserID()
	h.clients[connID] = c
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[string]contracts.Client)
	}
	h.byUser[userID][connID] = c
	h.mu.Unlock()
	h.presence.ConnectionOpened(context.Background(), userID)
}

func (h *Registry) Unregister(connID string) error {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if !ok {
		h.mu.Unlock()
		return domain.ErrNotFound
	}
	userID := c.UserID()
	rooms := c.Rooms()
	delete(h.clients, connID)
	if conns := h.byUser[userID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.byUser, userID)
		}
	}
	for _, roomID := range rooms {
		h.detachLocked(connID, roomID)
	}
	h.mu.Unlock()
	h.presence.ConnectionClosed(context.Background(), userID, rooms)
	return nil
}

func (h *Registry) ConnectionsFor(userID string) []contracts.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]contracts.Client, 0, len(h.byUser[userID]))
	for _, c := range h.byUser[userID] {
		conns = append(conns, c)
	}
	return conns
}

func (h *Registry) JoinRoom(c contracts.Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.roomHub[roomID] == nil {
		h.roomHub[roomID] = make(map[string]contracts.Client)
		if h.runWorker != nil {
			ctx, cancel := context.WithCancel(context.Background())
			h.workers[roomID] = cancel
			go h.runWorker(ctx, roomID)
		}
	}
	h.roomHub[roomID][c.ConnID()] = c
}

func (h *Registry) LeaveRoom(c contracts.Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c.ConnID(), roomID)
}

func (h *Registry) detachLocked(connID, roomID string) {
	delete(h.roomHub[roomID], connID)
	if len(h.roomHub[roomID]) == 0 {
		delete(h.roomHub, roomID)
		if cancel := h.workers[roomID]; cancel != nil {
			cancel()
			delete(h.workers, roomID)
		}
	}
}

// Deliver fans a persisted message out to local subscribers. Only the
// originating connection is skipped; it already holds the ack. The
// sender's other devices receive the message like any recipient.
func (h *Registry) Deliver(ctx context.Context, roomID string, msg domain.ChatMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, _ := json.Marshal(msg)
	for connID, c := range h.roomHub[roomID] {
		if msg.SenderConnID != "" && connID == msg.SenderConnID {
			continue
		}
		_ = c.Send(ctx, data)
	}
}

func (h *Registry) SendAck(ctx context.Context, connID string, ack domain.AckMessage) {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	data, _ := json.Marshal(ack)
	_ = c.Send(ctx, data)
}

func (h *Registry) NotifyPresence(ctx context.Context, roomID string, ev domain.PresenceEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, _ := json.Marshal(ev)
	for _, c := range h.roomHub[roomID] {
		if c.UserID() == ev.UserID {
			continue
		}
		_ = c.Send(ctx, data)
	}
}
