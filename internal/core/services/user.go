package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shjroemon/social-network-be/internal/core/domain"
	"github.com/shjroemon/social-network-be/pkg/logging"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	log  *slog.Logger
	repo domain.UserRepository
}

func NewUserService(log *slog.Logger, repo domain.UserRepository) *UserService {
	return &UserService{
		log:  log,
		repo: repo,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, errors.New("username, email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "user - register - create user failed", "email", email, logging.Err(err))
		return nil, err
	}
	s.log.InfoContext(ctx, "user - register - create user success", logging.User(user.ID.String()))
	return user, nil
}

// Login verifies credentials and returns the account on success.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		s.log.ErrorContext(ctx, "user - login - lookup failed", "email", email, logging.Err(err))
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	s.log.InfoContext(ctx, "user - login - success", logging.User(user.ID.String()))
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdateProfile applies username/avatar/bio changes for the owner only.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, username, avatarURL, bio string) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if username != "" {
		user.Username = username
	}
	if avatarURL != "" {
		user.AvatarURL = avatarURL
	}
	if bio != "" {
		user.Bio = bio
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "user - update profile - failed", logging.User(id.String()), logging.Err(err))
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteUser(ctx, id)
}
