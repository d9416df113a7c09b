package memory

import (
	"context"
	"fmt"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

// gameTx stages writes for one game until the region commits.
// Reads see staged writes first, then committed state.
type gameTx struct {
	s      *Storage
	gameID model.GameID

	players     map[model.PlayerID]*model.Player
	assignments map[model.AssignmentID]*model.TargetAssignment
}

var _ storage.GameStore = (*gameTx)(nil)

func (t *gameTx) GetPlayer(ctx context.Context, gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	if gameID == t.gameID {
		if p, ok := t.players[id]; ok {
			return p.Clone(), nil
		}
	}
	return t.s.GetPlayer(ctx, gameID, id)
}

func (t *gameTx) GetPlayerByUser(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	players, err := t.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, model.ErrPlayerNotFound
}

func (t *gameTx) ListPlayers(ctx context.Context, gameID model.GameID, statuses ...model.PlayerStatus) ([]*model.Player, error) {
	if gameID != t.gameID {
		return t.s.ListPlayers(ctx, gameID, statuses...)
	}
	committed, err := t.s.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	merged := make(map[model.PlayerID]*model.Player, len(committed)+len(t.players))
	for _, p := range committed {
		merged[p.ID] = p
	}
	for id, p := range t.players {
		merged[id] = p.Clone()
	}
	players := make([]*model.Player, 0, len(merged))
	for _, p := range merged {
		if storage.PlayerStatusMatches(p.Status, statuses) {
			players = append(players, p)
		}
	}
	storage.SortPlayers(players)
	return players, nil
}

func (t *gameTx) SavePlayer(ctx context.Context, player *model.Player) error {
	if player.GameID != t.gameID {
		return fmt.Errorf("player %s belongs to game %s, write region is scoped to %s", player.ID, player.GameID, t.gameID)
	}
	t.players[player.ID] = player.Clone()
	return nil
}

func (t *gameTx) GetAssignment(ctx context.Context, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	if gameID == t.gameID {
		if a, ok := t.assignments[id]; ok {
			return a.Clone(), nil
		}
	}
	return t.s.GetAssignment(ctx, gameID, id)
}

func (t *gameTx) ListAssignments(ctx context.Context, gameID model.GameID, statuses ...model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	if gameID != t.gameID {
		return t.s.ListAssignments(ctx, gameID, statuses...)
	}
	committed, err := t.s.ListAssignments(ctx, gameID)
	if err != nil {
		return nil, err
	}
	merged := make(map[model.AssignmentID]*model.TargetAssignment, len(committed)+len(t.assignments))
	for _, a := range committed {
		merged[a.ID] = a
	}
	for id, a := range t.assignments {
		merged[id] = a.Clone()
	}
	assignments := make([]*model.TargetAssignment, 0, len(merged))
	for _, a := range merged {
		if storage.AssignmentStatusMatches(a.Status, statuses) {
			assignments = append(assignments, a)
		}
	}
	storage.SortAssignments(assignments)
	return assignments, nil
}

func (t *gameTx) SaveAssignment(ctx context.Context, assignment *model.TargetAssignment) error {
	if assignment.GameID != t.gameID {
		return fmt.Errorf("assignment %s belongs to game %s, write region is scoped to %s", assignment.ID, assignment.GameID, t.gameID)
	}
	if err := storage.ValidateAssignment(assignment); err != nil {
		return err
	}
	t.assignments[assignment.ID] = assignment.Clone()
	return nil
}
