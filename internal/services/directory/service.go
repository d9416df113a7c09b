// Package directory is the identity store: users exist independently of games.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/assassins-go/internal/dependencies/clock"
	"github.com/mcoot/assassins-go/internal/dependencies/idgen"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

const maxDisplayNameLength = 64

// Service creates and resolves users
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     idgen.Generator
	logger  *slog.Logger
}

// New creates a new directory service
func New(storage storage.Storage, clock clock.Clock, ids idgen.Generator, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		ids:     ids,
		logger:  logger,
	}
}

// CreateUser registers a new user. Emails are unique after normalization.
func (s *Service) CreateUser(ctx context.Context, email, displayName string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q is not valid", model.ErrUnprocessable, email)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name is longer than %d characters", model.ErrUnprocessable, maxDisplayNameLength)
	}

	if _, err := s.storage.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email=%s", model.ErrEmailTaken, email)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	user := &model.User{
		ID:          model.UserID(s.ids.NewID()),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		if !errors.Is(err, model.ErrEmailTaken) {
			s.logger.Error("failed to save user",
				slog.String("user_id", string(user.ID)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("user created", slog.String("user_id", string(user.ID)))
	return user, nil
}

// GetUser retrieves a user by id
func (s *Service) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.storage.GetUser(ctx, id)
}

// GetUserByEmail retrieves a user by email, matched case-insensitively
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.storage.GetUserByEmail(ctx, email)
}
