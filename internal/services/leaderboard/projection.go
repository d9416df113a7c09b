// Package leaderboard builds read-only standings from a snapshot of a game.
package leaderboard

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

// Snapshot is the data a leaderboard is computed from
type Snapshot struct {
	Players     []*model.Player
	Assignments []*model.TargetAssignment
	Users       map[model.UserID]*model.User
}

// Entry is one player's standing
type Entry struct {
	Rank        int
	PlayerID    model.PlayerID
	UserID      model.UserID
	DisplayName string
	Status      model.PlayerStatus
	PartnerID   model.PlayerID
	Kills       int

	// KilledBy is empty while the player has not been killed
	KilledBy model.PlayerID
}

// Build ranks players by kills, live players before eliminated ones, then
// registration order. Players with equal kills and liveness share a rank.
func Build(snap Snapshot) []Entry {
	kills := make(map[model.PlayerID]int)
	killedBy := make(map[model.PlayerID]model.PlayerID)
	for _, a := range snap.Assignments {
		if a.Status != model.AssignmentComplete {
			continue
		}
		kills[a.FromPlayer]++
		killedBy[a.ToPlayer] = a.FromPlayer
	}

	players := slices.Clone(snap.Players)
	storage.SortPlayers(players)
	slices.SortStableFunc(players, func(a, b *model.Player) int {
		if c := cmp.Compare(kills[b.ID], kills[a.ID]); c != 0 {
			return c
		}
		return cmp.Compare(liveRank(a), liveRank(b))
	})

	entries := make([]Entry, 0, len(players))
	for i, p := range players {
		e := Entry{
			Rank:      i + 1,
			PlayerID:  p.ID,
			UserID:    p.UserID,
			Status:    p.Status,
			PartnerID: p.TeamPartnerID,
			Kills:     kills[p.ID],
			KilledBy:  killedBy[p.ID],
		}
		if p.Status != model.PlayerStatusKilled {
			e.KilledBy = ""
		}
		if u, ok := snap.Users[p.UserID]; ok {
			e.DisplayName = u.DisplayName
		}
		if i > 0 {
			prev := players[i-1]
			if kills[prev.ID] == kills[p.ID] && liveRank(prev) == liveRank(p) {
				e.Rank = entries[i-1].Rank
			}
		}
		entries = append(entries, e)
	}
	return entries
}

func liveRank(p *model.Player) int {
	if p.Status.IsLive() {
		return 0
	}
	return 1
}

// Service loads snapshots and builds leaderboards
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a new leaderboard service
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Leaderboard returns the standings of a game
func (s *Service) Leaderboard(ctx context.Context, gameID model.GameID) ([]Entry, error) {
	if _, err := s.storage.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	players, err := s.storage.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.storage.ListAssignments(ctx, gameID, model.AssignmentComplete)
	if err != nil {
		return nil, err
	}

	users := make(map[model.UserID]*model.User, len(players))
	for _, p := range players {
		u, err := s.storage.GetUser(ctx, p.UserID)
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("player without user",
				slog.String("game_id", string(gameID)),
				slog.String("player_id", string(p.ID)),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		users[u.ID] = u
	}

	return Build(Snapshot{Players: players, Assignments: assignments, Users: users}), nil
}
