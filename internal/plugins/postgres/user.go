package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shjroemon/social-network-be/internal/core/domain"

	"github.com/google/uuid"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

/*
	-- Users
	CREATE TABLE users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		avatar_url    TEXT NOT NULL DEFAULT '',
		bio           TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (r *UserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		return domain.ErrInvalidPayload
	}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, avatar_url, bio)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
		RETURNING created_at
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.AvatarURL, u.Bio).Scan(&u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserExists
	}
	return err
}

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u := &domain.User{ID: id}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		SELECT username, email, password_hash, avatar_url, bio, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.Username, &u.Email, &u.PasswordHash, &u.AvatarURL, &u.Bio, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := &domain.User{Email: email}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		SELECT id, username, password_hash, avatar_url, bio, created_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AvatarURL, &u.Bio, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) UpdateUser(ctx context.Context, u *domain.User) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE users SET username = $2, avatar_url = $3, bio = $4
		WHERE id = $1
	`, u.ID, u.Username, u.AvatarURL, u.Bio)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
