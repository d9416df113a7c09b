// Package registry owns game lifecycle and role resolution.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mcoot/assassins-go/internal/dependencies/clock"
	"github.com/mcoot/assassins-go/internal/dependencies/idgen"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

const maxGameNameLength = 100

// Service manages games
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     idgen.Generator
	logger  *slog.Logger
}

// New creates a new registry service
func New(storage storage.Storage, clock clock.Clock, ids idgen.Generator, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		ids:     ids,
		logger:  logger,
	}
}

// CreateGame creates a game in registration. The creator and any extra
// admin emails make up the admin list.
func (s *Service) CreateGame(
	ctx context.Context,
	creatorID model.UserID,
	name string,
	config model.GameConfig,
	extraAdmins []string,
) (*model.Game, error) {
	creator, err := s.storage.GetUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxGameNameLength {
		return nil, fmt.Errorf("%w: game name must be 1-%d characters", model.ErrUnprocessable, maxGameNameLength)
	}
	if config.PairingPolicy == "" {
		config.PairingPolicy = model.DefaultGameConfig().PairingPolicy
	}
	if _, err := model.ParsePairingPolicy(string(config.PairingPolicy)); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrUnprocessable, err)
	}

	admins := []string{creator.Email}
	for _, email := range extraAdmins {
		email = model.NormalizeEmail(email)
		if email != "" && !slices.Contains(admins, email) {
			admins = append(admins, email)
		}
	}

	now := s.clock.Now()
	game := &model.Game{
		ID:          model.GameID(s.ids.NewID()),
		Name:        name,
		Status:      model.GameStatusRegistration,
		AdminEmails: admins,
		Config:      config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.SaveGame(ctx, game); err != nil {
		s.logger.Error("failed to save game",
			slog.String("game_id", string(game.ID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("game created",
		slog.String("game_id", string(game.ID)),
		slog.String("pairing_policy", string(config.PairingPolicy)),
		slog.Bool("safe_is_targetable", config.SafeIsTargetable),
	)
	return game, nil
}

// GetGame retrieves a game by id
func (s *Service) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	game, err := s.storage.GetGame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: game_id=%s", err, id)
	}
	return game, nil
}

// GetStatus returns the game's lifecycle status
func (s *Service) GetStatus(ctx context.Context, id model.GameID) (model.GameStatus, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return "", err
	}
	return game.Status, nil
}

// StartGame moves a game from registration to active
func (s *Service) StartGame(ctx context.Context, id model.GameID, userID model.UserID) (*model.Game, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, game, userID); err != nil {
		return nil, err
	}
	if game.Status != model.GameStatusRegistration {
		return nil, fmt.Errorf("%w: game_id=%s status=%s", model.ErrGameNotRegistering, id, game.Status)
	}

	game.Status = model.GameStatusActive
	game.UpdatedAt = s.clock.Now()
	if err := s.storage.SaveGame(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("game started", slog.String("game_id", string(id)))
	return game, nil
}

// CompleteGame moves an active game to complete. Completing a complete game is a no-op.
func (s *Service) CompleteGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	switch game.Status {
	case model.GameStatusComplete:
		return game, nil
	case model.GameStatusActive:
	default:
		return nil, fmt.Errorf("%w: game_id=%s status=%s", model.ErrGameNotActive, id, game.Status)
	}

	now := s.clock.Now()
	game.Status = model.GameStatusComplete
	game.UpdatedAt = now
	game.CompletedAt = &now
	if err := s.storage.SaveGame(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("game completed", slog.String("game_id", string(id)))
	return game, nil
}

// RoleFor resolves the user's capability in the game. Unknown users have no role.
func (s *Service) RoleFor(ctx context.Context, gameID model.GameID, userID model.UserID) (model.Role, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return model.RoleNone, err
	}
	return s.roleFor(ctx, game, userID)
}

func (s *Service) roleFor(ctx context.Context, game *model.Game, userID model.UserID) (model.Role, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.RoleNone, nil
	}
	if err != nil {
		return model.RoleNone, err
	}
	if game.IsAdminEmail(user.Email) {
		return model.RoleAdmin, nil
	}

	player, err := s.storage.GetPlayerByUser(ctx, game.ID, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.RoleNone, nil
	}
	if err != nil {
		return model.RoleNone, err
	}
	if player.Status.IsLive() {
		return model.RolePlayer, nil
	}
	return model.RoleNone, nil
}

// IsAdmin reports whether the user administers the game
func (s *Service) IsAdmin(ctx context.Context, gameID model.GameID, userID model.UserID) (bool, error) {
	role, err := s.RoleFor(ctx, gameID, userID)
	if err != nil {
		return false, err
	}
	return role == model.RoleAdmin, nil
}

// RequireAdmin loads the game and fails with ErrNotAdmin unless the user administers it
func (s *Service) RequireAdmin(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Game, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, game, userID); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *Service) requireAdmin(ctx context.Context, game *model.Game, userID model.UserID) error {
	role, err := s.roleFor(ctx, game, userID)
	if err != nil {
		return err
	}
	if role != model.RoleAdmin {
		return fmt.Errorf("%w: game_id=%s user_id=%s", model.ErrNotAdmin, game.ID, userID)
	}
	return nil
}
