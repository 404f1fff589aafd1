package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/shjroemon/social-network-be/internal/core/domain"

	"github.com/google/uuid"
)

// RoomStore implements the document-storage contract for rooms and
// their message log on Postgres. Membership and invite lists are kept
// as JSONB document columns on the room row.
type RoomStore struct {
	db *sql.DB
}

func NewRoomStore(db *sql.DB) *RoomStore {
	return &RoomStore{db: db}
}

/*
	-- Rooms
	CREATE TABLE rooms (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		private    BOOLEAN NOT NULL DEFAULT false,
		invited    JSONB NOT NULL DEFAULT '[]',
		members    JSONB NOT NULL DEFAULT '[]',
		last_seq   BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (s *RoomStore) UpsertRoom(ctx context.Context, r *domain.Room) error {
	if r.ID == uuid.Nil {
		return domain.ErrInvalidRoomID
	}
	invited, err := json.Marshal(emptyAsList(r.Invited))
	if err != nil {
		return err
	}
	members, err := json.Marshal(emptyAsList(r.Members))
	if err != nil {
		return err
	}
	exec := GetExecutor(ctx, s.db)
	// last_seq is deliberately not written here: only AppendMessage
	// advances the counter.
	return exec.QueryRowContext(ctx, `
		INSERT INTO rooms (id, name, private, invited, members)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    private = EXCLUDED.private,
		    invited = EXCLUDED.invited,
		    members = EXCLUDED.members
		RETURNING created_at
	`, r.ID, r.Name, r.Private, invited, members).Scan(&r.CreatedAt)
}

func (s *RoomStore) GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	if roomID == uuid.Nil {
		return nil, domain.ErrInvalidRoomID
	}
	room := &domain.Room{ID: roomID}
	var invited, members []byte
	exec := GetExecutor(ctx, s.db)
	err := exec.QueryRowContext(ctx, `
		SELECT name, private, invited, members, last_seq, created_at
		FROM rooms WHERE id = $1
	`, roomID).Scan(&room.Name, &room.Private, &invited, &members, &room.LastSeq, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(invited, &room.Invited); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(members, &room.Members); err != nil {
		return nil, err
	}
	return room, nil
}

func emptyAsList(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
