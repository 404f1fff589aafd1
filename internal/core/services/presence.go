package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shjroemon/social-network-be/internal/core/contracts"
	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/pkg/logging"
)

// PresenceTracker derives online/offline state from the active
// connection count per user. The registry reports every open and close
// under its own lock, so counts stay consistent with registration; the
// offline transition fires exactly once no matter how many devices the
// user had.
type PresenceTracker struct {
	log      *slog.Logger
	store    contracts.PresenceStore
	ttl      time.Duration
	interval time.Duration

	mu       sync.Mutex
	counts   map[string]int
	registry contracts.Registry
}

func NewPresenceTracker(
	log *slog.Logger,
	store contracts.PresenceStore,
	ttl time.Duration,
	interval time.Duration,
) *PresenceTracker {
	return &PresenceTracker{
		log:      log,
		store:    store,
		ttl:      ttl,
		interval: interval,
		counts:   make(map[string]int),
	}
}

// Bind wires the registry in after construction; registry and tracker
// reference each other.
func (t *PresenceTracker) Bind(registry contracts.Registry) {
	t.registry = registry
}

func (t *PresenceTracker) ConnectionOpened(ctx context.Context, userID string) {
	t.mu.Lock()
	t.counts[userID]++
	first := t.counts[userID] == 1
	t.mu.Unlock()
	if !first {
		return
	}
	if err := t.store.Touch(ctx, userID, t.ttl); err != nil {
		t.log.WarnContext(ctx, "presence - online - store touch failed", logging.User(userID), logging.Err(err))
	}
	t.log.InfoContext(ctx, "presence - transition online", logging.User(userID))
}

func (t *PresenceTracker) ConnectionClosed(ctx context.Context, userID string, rooms []string) {
	t.mu.Lock()
	t.counts[userID]--
	last := t.counts[userID] <= 0
	if last {
		delete(t.counts, userID)
	}
	t.mu.Unlock()
	if !last {
		return
	}
	if err := t.store.Clear(ctx, userID); err != nil {
		t.log.WarnContext(ctx, "presence - offline - store clear failed", logging.User(userID), logging.Err(err))
	}
	t.log.InfoContext(ctx, "presence - transition offline", logging.User(userID))
	// Best-effort notification; not subject to message ordering.
	if t.registry == nil {
		return
	}
	ev := domain.PresenceEvent{
		Type:   domain.TypePresence,
		UserID: userID,
		State:  domain.PresenceOffline,
	}
	for _, roomID := range rooms {
		t.registry.NotifyPresence(ctx, roomID, ev)
	}
}

// IsOnline consults the shared store, so it reflects connections on
// other nodes too.
func (t *PresenceTracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	return t.store.IsOnline(ctx, userID)
}

// Heartbeat refreshes the user's liveness key until ctx is cancelled.
// The TTL bounds how long an abrupt transport failure can masquerade
// as online.
func (t *PresenceTracker) Heartbeat(ctx context.Context, userID string) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.store.Touch(ctx, userID, t.ttl); err != nil {
				t.log.WarnContext(ctx, "presence - heartbeat - store touch failed", logging.User(userID), logging.Err(err))
			}
		}
	}
}
