// Package roster manages players within games: registration and partner
// invitations.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mcoot/assassins-go/internal/dependencies/clock"
	"github.com/mcoot/assassins-go/internal/dependencies/idgen"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/registry"
	"github.com/mcoot/assassins-go/internal/services/retry"
	"github.com/mcoot/assassins-go/internal/storage"
)

// Service manages the players of games
type Service struct {
	storage  storage.Storage
	registry *registry.Service
	retrier  *retry.Retrier
	clock    clock.Clock
	ids      idgen.Generator
	logger   *slog.Logger
}

// New creates a new roster service
func New(
	storage storage.Storage,
	registry *registry.Service,
	retrier *retry.Retrier,
	clock clock.Clock,
	ids idgen.Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:  storage,
		registry: registry,
		retrier:  retrier,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// Register adds the user to the game. Registering again returns the
// existing player unchanged.
func (s *Service) Register(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	game, err := s.registry.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status == model.GameStatusComplete {
		return nil, fmt.Errorf("%w: game_id=%s", model.ErrGameComplete, gameID)
	}
	if _, err := s.storage.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: user_id=%s", err, userID)
	}

	created := false
	player, err := retry.Value(ctx, s.retrier, "register", func() (*model.Player, error) {
		var player *model.Player
		created = false
		err := s.storage.WithGameTx(ctx, gameID, func(tx storage.GameStore) error {
			existing, err := tx.GetPlayerByUser(ctx, gameID, userID)
			if err == nil {
				player = existing
				return nil
			}
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}

			now := s.clock.Now()
			player = &model.Player{
				ID:        model.PlayerID(s.ids.NewID()),
				GameID:    gameID,
				UserID:    userID,
				Status:    model.PlayerStatusAlive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			created = true
			return tx.SavePlayer(ctx, player)
		})
		return player, err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("player registered",
			slog.String("game_id", string(gameID)),
			slog.String("player_id", string(player.ID)),
			slog.String("user_id", string(userID)),
		)
	}
	return player, nil
}

// GetPlayer retrieves a player by id
func (s *Service) GetPlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, gameID, playerID)
}

// ListPlayers returns every player of the game in registration order
func (s *Service) ListPlayers(ctx context.Context, gameID model.GameID) ([]*model.Player, error) {
	if _, err := s.registry.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.storage.ListPlayers(ctx, gameID)
}

// FindByGameAndStatus returns the game's players whose status is in statuses
func (s *Service) FindByGameAndStatus(ctx context.Context, gameID model.GameID, statuses ...model.PlayerStatus) ([]*model.Player, error) {
	return s.storage.ListPlayers(ctx, gameID, statuses...)
}

// Invite records a partner invitation from one player to another. The
// acting user must own the inviting player or administer the game.
func (s *Service) Invite(ctx context.Context, gameID model.GameID, actorID model.UserID, fromID, toID model.PlayerID) error {
	if fromID == toID {
		return fmt.Errorf("%w: player_id=%s", model.ErrSelfInvite, fromID)
	}
	return s.partnerOp(ctx, "invite", gameID, actorID, fromID, func(tx storage.GameStore, from *model.Player) error {
		to, err := tx.GetPlayer(ctx, gameID, toID)
		if err != nil {
			return err
		}
		if err := requireFree(from, to); err != nil {
			return err
		}
		if slices.Contains(from.Invited, to.ID) {
			return nil
		}

		now := s.clock.Now()
		from.Invited = append(from.Invited, to.ID)
		from.UpdatedAt = now
		to.InvitedBy = append(to.InvitedBy, from.ID)
		to.UpdatedAt = now
		if err := tx.SavePlayer(ctx, from); err != nil {
			return err
		}
		return tx.SavePlayer(ctx, to)
	})
}

// Accept pairs the player with an inviter. Both players' outstanding
// invitations are withdrawn, including from third parties.
func (s *Service) Accept(ctx context.Context, gameID model.GameID, actorID model.UserID, playerID, inviterID model.PlayerID) error {
	err := s.partnerOp(ctx, "accept", gameID, actorID, playerID, func(tx storage.GameStore, player *model.Player) error {
		if !player.HasInviteFrom(inviterID) {
			return fmt.Errorf("%w: player_id=%s inviter_id=%s", model.ErrNoInvite, playerID, inviterID)
		}
		inviter, err := tx.GetPlayer(ctx, gameID, inviterID)
		if err != nil {
			return err
		}
		if err := requireFree(player, inviter); err != nil {
			return err
		}

		all, err := tx.ListPlayers(ctx, gameID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		pair := []model.PlayerID{player.ID, inviter.ID}
		for _, p := range all {
			if slices.Contains(pair, p.ID) {
				continue
			}
			if !slices.ContainsFunc(p.Invited, func(id model.PlayerID) bool { return slices.Contains(pair, id) }) &&
				!slices.ContainsFunc(p.InvitedBy, func(id model.PlayerID) bool { return slices.Contains(pair, id) }) {
				continue
			}
			p.Invited = removeAll(p.Invited, pair)
			p.InvitedBy = removeAll(p.InvitedBy, pair)
			p.UpdatedAt = now
			if err := tx.SavePlayer(ctx, p); err != nil {
				return err
			}
		}

		for _, p := range []*model.Player{player, inviter} {
			p.Invited = nil
			p.InvitedBy = nil
			p.UpdatedAt = now
		}
		player.TeamPartnerID = inviter.ID
		inviter.TeamPartnerID = player.ID
		if err := tx.SavePlayer(ctx, player); err != nil {
			return err
		}
		return tx.SavePlayer(ctx, inviter)
	})
	if err != nil {
		return err
	}

	s.logger.Info("partners paired",
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(playerID)),
		slog.String("partner_id", string(inviterID)),
	)
	return nil
}

// Reject withdraws a pending invitation from inviter to the player
func (s *Service) Reject(ctx context.Context, gameID model.GameID, actorID model.UserID, playerID, inviterID model.PlayerID) error {
	return s.partnerOp(ctx, "reject", gameID, actorID, playerID, func(tx storage.GameStore, player *model.Player) error {
		if !player.HasInviteFrom(inviterID) {
			return fmt.Errorf("%w: player_id=%s inviter_id=%s", model.ErrNoInvite, playerID, inviterID)
		}
		now := s.clock.Now()
		player.InvitedBy = removeAll(player.InvitedBy, []model.PlayerID{inviterID})
		player.UpdatedAt = now
		if err := tx.SavePlayer(ctx, player); err != nil {
			return err
		}

		inviter, err := tx.GetPlayer(ctx, gameID, inviterID)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		inviter.Invited = removeAll(inviter.Invited, []model.PlayerID{player.ID})
		inviter.UpdatedAt = now
		return tx.SavePlayer(ctx, inviter)
	})
}

// partnerOp runs a partner-formation change for a player owned by the actor
// while the game is still in registration
func (s *Service) partnerOp(
	ctx context.Context,
	op string,
	gameID model.GameID,
	actorID model.UserID,
	playerID model.PlayerID,
	fn func(tx storage.GameStore, player *model.Player) error,
) error {
	return s.retrier.Do(ctx, op, func() error {
		game, err := s.registry.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if game.Status != model.GameStatusRegistration {
			return fmt.Errorf("%w: game_id=%s status=%s", model.ErrGameNotRegistering, gameID, game.Status)
		}

		return s.storage.WithGameTx(ctx, gameID, func(tx storage.GameStore) error {
			player, err := tx.GetPlayer(ctx, gameID, playerID)
			if err != nil {
				return err
			}
			if player.UserID != actorID {
				isAdmin, err := s.registry.IsAdmin(ctx, gameID, actorID)
				if err != nil {
					return err
				}
				if !isAdmin {
					return fmt.Errorf("%w: player_id=%s user_id=%s", model.ErrNotPlayerOwner, playerID, actorID)
				}
			}
			return fn(tx, player)
		})
	})
}

// requireFree checks both players are live and unpartnered
func requireFree(players ...*model.Player) error {
	for _, p := range players {
		if p.HasPartner() {
			return fmt.Errorf("%w: player_id=%s", model.ErrAlreadyPartnered, p.ID)
		}
		if !p.Status.IsLive() {
			return fmt.Errorf("%w: player_id=%s status=%s", model.ErrInvalidPlayerState, p.ID, p.Status)
		}
	}
	return nil
}

func removeAll(ids, drop []model.PlayerID) []model.PlayerID {
	return slices.DeleteFunc(slices.Clone(ids), func(id model.PlayerID) bool {
		return slices.Contains(drop, id)
	})
}
