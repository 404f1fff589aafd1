package services

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/shjroemon/social-network-be/internal/core/contracts"
	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/pkg/logging"

	"github.com/google/uuid"
)

type PostService struct {
	log   *slog.Logger
	repo  domain.PostRepository
	media contracts.MediaHost
}

func NewPostService(log *slog.Logger, repo domain.PostRepository, media contracts.MediaHost) *PostService {
	return &PostService{
		log:   log,
		repo:  repo,
		media: media,
	}
}

// CreatePost stores a feed entry. When tempImagePath is non-empty the
// file is uploaded to the media host first and removed afterwards on
// every exit path, success or failure.
func (s *PostService) CreatePost(ctx context.Context, authorID uuid.UUID, caption, tempImagePath string) (*domain.Post, error) {
	if caption == "" && tempImagePath == "" {
		return nil, domain.ErrInvalidPayload
	}
	post := &domain.Post{
		ID:       uuid.New(),
		AuthorID: authorID,
		Caption:  caption,
	}
	if tempImagePath != "" {
		defer func() {
			if err := os.Remove(tempImagePath); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.log.WarnContext(ctx, "post - create - temp file cleanup failed", "path", tempImagePath, logging.Err(err))
			}
		}()
		result, err := s.media.UploadImage(ctx, tempImagePath)
		if err != nil {
			s.log.ErrorContext(ctx, "post - create - image upload failed", logging.User(authorID.String()), logging.Err(err))
			return nil, err
		}
		post.ImageURL = result.URL
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		s.log.ErrorContext(ctx, "post - create - persist failed", logging.User(authorID.String()), logging.Err(err))
		return nil, err
	}
	s.log.InfoContext(ctx, "post - create - success", "post_id", post.ID.String(), logging.User(authorID.String()))
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	return s.repo.GetPostByID(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	return s.repo.ListPosts(ctx, limit)
}

// DeletePost removes a post; only its author may do so.
func (s *PostService) DeletePost(ctx context.Context, callerID, postID uuid.UUID) error {
	post, err := s.repo.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != callerID {
		return domain.ErrNotAuthorized
	}
	return s.repo.DeletePost(ctx, postID)
}
