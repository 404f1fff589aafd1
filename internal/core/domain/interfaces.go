package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository handles persistent identities.
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// PostRepository backs the feed CRUD surface.
type PostRepository interface {
	CreatePost(ctx context.Context, p *Post) error
	GetPostByID(ctx context.Context, id uuid.UUID) (*Post, error)
	ListPosts(ctx context.Context, limit int) ([]Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
}

// RoomStore is the document-storage collaborator for the chat core:
// room documents (membership, sequence counter) and the append-only
// message log.
type RoomStore interface {
	UpsertRoom(ctx context.Context, r *Room) error
	GetRoom(ctx context.Context, roomID uuid.UUID) (*Room, error)
	// AppendMessage assigns the next per-room sequence number and
	// inserts the message in one transaction. On error nothing is
	// persisted and the counter does not advance.
	AppendMessage(ctx context.Context, msg *Message) (int64, error)
	// MessagesSince returns messages with Seq > since, ascending.
	MessagesSince(ctx context.Context, roomID uuid.UUID, since int64) ([]Message, error)
}
