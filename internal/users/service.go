package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inkroom/inkroom/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetUserName(ctx context.Context, userID string) (string, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// Service handles user directory lookups.
type Service struct {
	repo     RepositoryPort
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, validate: validator.New()}
}

// GetUserName resolves a display name. A missing user yields ErrNotFound.
func (s *Service) GetUserName(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if err := s.validate.Var(userID, "required,max=128"); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return "", fmt.Errorf("%w: user_id failed %s", shared.ErrInvalidInput, fieldErrs[0].Tag())
		}
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	name, err := s.repo.GetUserName(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("user not found", slog.String("user_id", userID))
		} else {
			s.logger.Error("get user name failed", slog.String("user_id", userID), slog.Any("error", err))
		}
		return "", err
	}
	return name, nil
}

// ListUsers returns all users sorted by display name.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.logger.Error("list users failed", slog.Any("error", err))
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}
