package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shjroemon/social-network-be/internal/core/domain"

	"github.com/google/uuid"
)

type PostRepo struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepo {
	return &PostRepo{db: db}
}

/*
	-- Posts
	CREATE TABLE posts (
		id         UUID PRIMARY KEY,
		author_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		caption    TEXT NOT NULL,
		image_url  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (r *PostRepo) CreatePost(ctx context.Context, p *domain.Post) error {
	exec := GetExecutor(ctx, r.db)
	return exec.QueryRowContext(ctx, `
		INSERT INTO posts (id, author_id, caption, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, p.AuthorID, p.Caption, p.ImageURL).Scan(&p.CreatedAt)
}

func (r *PostRepo) GetPostByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	p := &domain.Post{ID: id}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		SELECT author_id, caption, image_url, created_at
		FROM posts WHERE id = $1
	`, id).Scan(&p.AuthorID, &p.Caption, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostRepo) ListPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, author_id, caption, image_url, created_at
		FROM posts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Caption, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostRepo) DeletePost(ctx context.Context, id uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}
