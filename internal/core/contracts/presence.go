package contracts

import (
	"context"
	"time"
)

// PresenceStore mirrors liveness into a shared store so presence
// survives and is visible across nodes. Backed by per-user TTL keys.
type PresenceStore interface {
	// Touch refreshes the user's liveness key; expiry means offline.
	Touch(ctx context.Context, userID string, ttl time.Duration) error
	// IsOnline reports whether the liveness key still exists.
	IsOnline(ctx context.Context, userID string) (bool, error)
	// Clear drops the key immediately on explicit disconnect.
	Clear(ctx context.Context, userID string) error
}
