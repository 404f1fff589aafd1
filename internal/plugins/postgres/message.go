package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shjroemon/social-network-be/internal/core/domain"

	"github.com/google/uuid"
)

/*
	-- Messages
	CREATE TABLE messages (
		id         UUID PRIMARY KEY,
		room_id    UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		sender_id  UUID NOT NULL,
		seq        BIGINT NOT NULL,
		body       TEXT NOT NULL,
		media_url  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (room_id, seq)
	);
*/

// AppendMessage increments the room counter and inserts the message.
// Both statements run against the same executor; callers wrap the call
// in TxManager.WithTx so a failed insert rolls the counter back and no
// sequence number is burned.
func (s *RoomStore) AppendMessage(ctx context.Context, msg *domain.Message) (int64, error) {
	if msg.RoomID == uuid.Nil {
		return 0, domain.ErrInvalidRoomID
	}
	exec := GetExecutor(ctx, s.db)
	var seq int64
	err := exec.QueryRowContext(ctx, `
		UPDATE rooms
		SET last_seq = last_seq + 1
		WHERE id = $1
		RETURNING last_seq
	`, msg.RoomID).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrRoomNotFound
		}
		return 0, err
	}
	err = exec.QueryRowContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, seq, body, media_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, msg.ID, msg.RoomID, msg.SenderID, seq, msg.Body, msg.MediaURL).Scan(&msg.CreatedAt)
	if err != nil {
		return 0, err
	}
	msg.Seq = seq
	return seq, nil
}

func (s *RoomStore) MessagesSince(ctx context.Context, roomID uuid.UUID, since int64) ([]domain.Message, error) {
	if roomID == uuid.Nil {
		return nil, domain.ErrInvalidRoomID
	}
	exec := GetExecutor(ctx, s.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, room_id, sender_id, seq, body, media_url, created_at
		FROM messages
		WHERE room_id = $1 AND seq > $2
		ORDER BY seq ASC
	`, roomID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Seq, &m.Body, &m.MediaURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
