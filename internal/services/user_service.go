package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dum-man/messenger/internal/domain"
	"github.com/dum-man/messenger/internal/repository"
	"github.com/dum-man/messenger/internal/session"
	messenger_errors "github.com/dum-man/messenger/pkg/errors"
	"github.com/dum-man/messenger/pkg/logger"
)

type UserService struct {
	repo repository.UserRepository
	log  *logger.Logger
}

func NewUserService(repo repository.UserRepository, log *logger.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

// Search matches usernames by case-insensitive substring. The searching
// user never appears in their own results.
func (s *UserService) Search(ctx context.Context, sess *session.Session, query string) ([]domain.User, error) {
	if !sess.Authenticated() {
		return nil, messenger_errors.ErrUnauthorized
	}
	return s.repo.SearchUsers(ctx, query, sess.User.ID)
}

// CreateUsername claims a username for the session user. Fails with
// ErrConflict when the name is already taken, leaving no state change.
func (s *UserService) CreateUsername(ctx context.Context, sess *session.Session, username string) error {
	if !sess.Authenticated() {
		return messenger_errors.ErrUnauthorized
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: empty username", messenger_errors.ErrInvalidInput)
	}

	_, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return fmt.Errorf("username %q: %w", username, messenger_errors.ErrConflict)
	case !errors.Is(err, messenger_errors.ErrNotFound):
		s.log.Errorf("lookup username %q: %v", username, err)
		return fmt.Errorf("error creating username: %w", messenger_errors.ErrOperationFailed)
	}

	if err := s.repo.UpdateUsername(ctx, sess.User.ID, username); err != nil {
		// A concurrent claim can slip past the lookup; the unique index
		// still reports it.
		if errors.Is(err, messenger_errors.ErrAlreadyExists) {
			return fmt.Errorf("username %q: %w", username, messenger_errors.ErrConflict)
		}
		s.log.Errorf("update username %q: %v", username, err)
		return fmt.Errorf("error creating username: %w", messenger_errors.ErrOperationFailed)
	}
	return nil
}
