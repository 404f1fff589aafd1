package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// User is the stable identity behind every connection and post.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	AvatarURL    string
	Bio          string
	CreatedAt    time.Time
}

// Post is a feed entry, optionally carrying an image hosted externally.
type Post struct {
	ID        uuid.UUID
	AuthorID  uuid.UUID
	Caption   string
	ImageURL  string
	CreatedAt time.Time
}

// Room is a named conversation with persistent membership and history.
// LastSeq is the per-room monotonic counter; it only advances when a
// message commit succeeds.
type Room struct {
	ID        uuid.UUID
	Name      string
	Private   bool
	Invited   []string
	Members   []string
	LastSeq   int64
	CreatedAt time.Time
}

func NewRoom(id uuid.UUID, name string) *Room {
	return &Room{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
	}
}

func (r *Room) IsMember(userID string) bool {
	return slices.Contains(r.Members, userID)
}

// AddMember is idempotent and reports whether the user was already in.
func (r *Room) AddMember(userID string) (alreadyMember bool) {
	if r.IsMember(userID) {
		return true
	}
	r.Members = append(r.Members, userID)
	return false
}

func (r *Room) RemoveMember(userID string) {
	r.Members = slices.DeleteFunc(r.Members, func(m string) bool {
		return m == userID
	})
}

// MayJoin is the authorization hook: public rooms admit anyone, private
// rooms admit existing members and invitees only.
func (r *Room) MayJoin(userID string) bool {
	if !r.Private {
		return true
	}
	return r.IsMember(userID) || slices.Contains(r.Invited, userID)
}

// Message is immutable once persisted. Seq is assigned exactly once,
// inside the same transaction that stores the row.
type Message struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	SenderID  uuid.UUID
	Seq       int64
	Body      string
	MediaURL  string
	CreatedAt time.Time
}

type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
)
