// Package assignment seeds and reads the target graph of a game.
package assignment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/assassins-go/internal/dependencies/clock"
	"github.com/mcoot/assassins-go/internal/dependencies/idgen"
	"github.com/mcoot/assassins-go/internal/dependencies/random"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/registry"
	"github.com/mcoot/assassins-go/internal/services/retry"
	"github.com/mcoot/assassins-go/internal/services/teams"
	"github.com/mcoot/assassins-go/internal/storage"
)

// Service generates target assignments and answers target queries
type Service struct {
	storage  storage.Storage
	registry *registry.Service
	retrier  *retry.Retrier
	clock    clock.Clock
	random   random.Random
	ids      idgen.Generator
	logger   *slog.Logger
}

// New creates a new assignment service
func New(
	storage storage.Storage,
	registry *registry.Service,
	retrier *retry.Retrier,
	clock clock.Clock,
	random random.Random,
	ids idgen.Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:  storage,
		registry: registry,
		retrier:  retrier,
		clock:    clock,
		random:   random,
		ids:      ids,
		logger:   logger,
	}
}

// ReseedResult describes a completed reseed
type ReseedResult struct {
	Teams       []model.Team
	Unpaired    []model.PlayerID
	Assignments []*model.TargetAssignment
}

// GenerateAssignments replaces the game's pending edges with a circular
// assignment over teams in the given order: each member of team i targets
// each member of team i+1 mod n. Old edges expire in the same write region.
func (s *Service) GenerateAssignments(ctx context.Context, gameID model.GameID, teamList []model.Team) ([]*model.TargetAssignment, error) {
	if err := s.requireSeedable(ctx, gameID); err != nil {
		return nil, err
	}
	return retry.Value(ctx, s.retrier, "generate_assignments", func() ([]*model.TargetAssignment, error) {
		var created []*model.TargetAssignment
		err := s.storage.WithGameTx(ctx, gameID, func(tx storage.GameStore) error {
			var err error
			created, err = s.generateIn(ctx, tx, gameID, teamList)
			return err
		})
		return created, err
	})
}

// Reseed resolves the game's live teams, shuffles them and generates a
// fresh assignment, all in one write region. Only admins may reseed.
func (s *Service) Reseed(ctx context.Context, gameID model.GameID, adminID model.UserID, policy model.PairingPolicy) (*ReseedResult, error) {
	game, err := s.registry.RequireAdmin(ctx, gameID, adminID)
	if err != nil {
		return nil, err
	}
	if game.Status == model.GameStatusComplete {
		return nil, fmt.Errorf("%w: game_id=%s", model.ErrGameComplete, gameID)
	}

	return retry.Value(ctx, s.retrier, "reseed", func() (*ReseedResult, error) {
		var result *ReseedResult
		err := s.storage.WithGameTx(ctx, gameID, func(tx storage.GameStore) error {
			res, err := teams.ResolveIn(ctx, tx, game, model.LiveStatuses(), policy)
			if err != nil {
				return err
			}
			shuffled := random.Shuffled(s.random, res.Teams)

			created, err := s.generateIn(ctx, tx, gameID, shuffled)
			if err != nil {
				return err
			}
			result = &ReseedResult{Teams: shuffled, Unpaired: res.Unpaired, Assignments: created}
			return nil
		})
		return result, err
	})
}

func (s *Service) requireSeedable(ctx context.Context, gameID model.GameID) error {
	status, err := s.registry.GetStatus(ctx, gameID)
	if err != nil {
		return err
	}
	if status == model.GameStatusComplete {
		return fmt.Errorf("%w: game_id=%s", model.ErrGameComplete, gameID)
	}
	return nil
}

// generateIn validates teams against the stored players, expires every
// pending edge and writes the new cycle through tx
func (s *Service) generateIn(ctx context.Context, tx storage.GameStore, gameID model.GameID, teamList []model.Team) ([]*model.TargetAssignment, error) {
	switch len(teamList) {
	case 0:
		return nil, fmt.Errorf("%w: game_id=%s", model.ErrNoTeams, gameID)
	case 1:
		return nil, fmt.Errorf("%w: game_id=%s", model.ErrGameOver, gameID)
	}

	players, err := tx.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := validateTeams(gameID, teamList, players); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	pending, err := tx.ListAssignments(ctx, gameID, model.AssignmentPending)
	if err != nil {
		return nil, err
	}
	for _, a := range pending {
		a.Status = model.AssignmentExpired
		a.UpdatedAt = now
		if err := tx.SaveAssignment(ctx, a); err != nil {
			return nil, err
		}
	}

	edges := Cycle(teamList)
	created := make([]*model.TargetAssignment, 0, len(edges))
	for _, e := range edges {
		a := &model.TargetAssignment{
			ID:         model.AssignmentID(s.ids.NewID()),
			GameID:     gameID,
			FromPlayer: e[0],
			ToPlayer:   e[1],
			Status:     model.AssignmentPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.SaveAssignment(ctx, a); err != nil {
			return nil, err
		}
		created = append(created, a)
	}

	s.logger.Info("assignments generated",
		slog.String("game_id", string(gameID)),
		slog.Int("teams", len(teamList)),
		slog.Int("expired", len(pending)),
		slog.Int("created", len(created)),
	)
	return created, nil
}

// Cycle returns the (from, to) pairs of the circular assignment over teams
func Cycle(teamList []model.Team) [][2]model.PlayerID {
	n := len(teamList)
	if n < 2 {
		return nil
	}
	var edges [][2]model.PlayerID
	for i, team := range teamList {
		next := teamList[(i+1)%n]
		for _, from := range team {
			for _, to := range next {
				edges = append(edges, [2]model.PlayerID{from, to})
			}
		}
	}
	return edges
}

// validateTeams requires teams of one or two distinct live players of the
// game, with no player in more than one team
func validateTeams(gameID model.GameID, teamList []model.Team, players []*model.Player) error {
	byID := make(map[model.PlayerID]*model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	seen := make(map[model.PlayerID]bool)
	for i, team := range teamList {
		if len(team) == 0 || len(team) > 2 {
			return fmt.Errorf("%w: game_id=%s team %d has %d members", model.ErrInvalidTeams, gameID, i, len(team))
		}
		for _, id := range team {
			if seen[id] {
				return fmt.Errorf("%w: game_id=%s player_id=%s appears in more than one team", model.ErrInvalidTeams, gameID, id)
			}
			seen[id] = true
			p, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: game_id=%s player_id=%s is not in the game", model.ErrInvalidTeams, gameID, id)
			}
			if !p.Status.IsLive() {
				return fmt.Errorf("%w: game_id=%s player_id=%s is %s", model.ErrInvalidTeams, gameID, id, p.Status)
			}
		}
	}
	return nil
}

// ListAssignments returns every edge of the game, oldest first. Admin only.
func (s *Service) ListAssignments(ctx context.Context, gameID model.GameID, adminID model.UserID, statuses ...model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	if _, err := s.registry.RequireAdmin(ctx, gameID, adminID); err != nil {
		return nil, err
	}
	return s.storage.ListAssignments(ctx, gameID, statuses...)
}

// Targets returns the player's pending outgoing edges, oldest first
func (s *Service) Targets(ctx context.Context, gameID model.GameID, playerID model.PlayerID) ([]*model.TargetAssignment, error) {
	if _, err := s.storage.GetPlayer(ctx, gameID, playerID); err != nil {
		return nil, err
	}
	pending, err := s.storage.ListAssignments(ctx, gameID, model.AssignmentPending)
	if err != nil {
		return nil, err
	}
	var targets []*model.TargetAssignment
	for _, a := range pending {
		if a.FromPlayer == playerID {
			targets = append(targets, a)
		}
	}
	return targets, nil
}

// CurrentAssignment returns the player's oldest pending edge. ok is false
// when the player has no target.
func (s *Service) CurrentAssignment(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (assignment *model.TargetAssignment, ok bool, err error) {
	targets, err := s.Targets(ctx, gameID, playerID)
	if err != nil {
		return nil, false, err
	}
	if len(targets) == 0 {
		return nil, false, nil
	}
	return targets[0], true, nil
}
