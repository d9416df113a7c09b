package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

// WithGameTx runs fn under WATCH on the game's player and assignment hashes.
// Staged writes are flushed in a single MULTI/EXEC; if another client touched
// either hash in between, EXEC aborts and the region fails with contention.
// An error from fn is also reported as contention when the watched hashes
// changed underneath it.
func (s *Storage) WithGameTx(ctx context.Context, gameID model.GameID, fn func(tx storage.GameStore) error) error {
	pKey := playersKey(gameID)
	aKey := assignmentsKey(gameID)

	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		t := &gameTx{
			rtx:         rtx,
			gameID:      gameID,
			players:     make(map[model.PlayerID][]byte),
			assignments: make(map[model.AssignmentID][]byte),
			staged:      newStaged(),
		}
		if err := fn(t); err != nil {
			// fn may have failed on reads torn by a concurrent commit.
			// An empty EXEC tells us whether the watched keys moved.
			_, werr := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Ping(ctx)
				return nil
			})
			if errors.Is(werr, redis.TxFailedErr) {
				return werr
			}
			return err
		}
		if len(t.players) == 0 && len(t.assignments) == 0 {
			return nil
		}

		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for id, data := range t.players {
				pipe.HSet(ctx, pKey, string(id), data)
			}
			for id, data := range t.assignments {
				pipe.HSet(ctx, aKey, string(id), data)
			}
			if s.cfg.GameTTL > 0 {
				pipe.Expire(ctx, pKey, s.cfg.GameTTL)
				pipe.Expire(ctx, aKey, s.cfg.GameTTL)
			}
			return nil
		})
		return err
	}, pKey, aKey)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: game_id=%s", model.ErrTxConflict, gameID)
	}
	return err
}

// gameTx reads through the watched connection and buffers writes
type gameTx struct {
	rtx    *redis.Tx
	gameID model.GameID

	// Encoded values to flush on commit
	players     map[model.PlayerID][]byte
	assignments map[model.AssignmentID][]byte

	staged *staged
}

// staged keeps decoded copies so reads inside the region see its own writes
type staged struct {
	players     map[model.PlayerID]*model.Player
	assignments map[model.AssignmentID]*model.TargetAssignment
}

func newStaged() *staged {
	return &staged{
		players:     make(map[model.PlayerID]*model.Player),
		assignments: make(map[model.AssignmentID]*model.TargetAssignment),
	}
}

var _ storage.GameStore = (*gameTx)(nil)

func (t *gameTx) GetPlayer(ctx context.Context, gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	if gameID == t.gameID {
		if p, ok := t.staged.players[id]; ok {
			return p.Clone(), nil
		}
	}
	return getPlayer(ctx, t.rtx, gameID, id)
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
	committed, err := listPlayers(ctx, t.rtx, gameID, nil)
	if err != nil || gameID != t.gameID {
		return filterPlayers(committed, statuses), err
	}
	byID := make(map[model.PlayerID]*model.Player, len(committed))
	for _, p := range committed {
		byID[p.ID] = p
	}
	for id, p := range t.staged.players {
		byID[id] = p.Clone()
	}
	merged := make([]*model.Player, 0, len(byID))
	for _, p := range byID {
		merged = append(merged, p)
	}
	storage.SortPlayers(merged)
	return filterPlayers(merged, statuses), nil
}

func (t *gameTx) SavePlayer(ctx context.Context, player *model.Player) error {
	if player.GameID != t.gameID {
		return fmt.Errorf("player %s belongs to game %s, write region is scoped to %s", player.ID, player.GameID, t.gameID)
	}
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	t.players[player.ID] = data
	t.staged.players[player.ID] = player.Clone()
	return nil
}

func (t *gameTx) GetAssignment(ctx context.Context, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	if gameID == t.gameID {
		if a, ok := t.staged.assignments[id]; ok {
			return a.Clone(), nil
		}
	}
	return getAssignment(ctx, t.rtx, gameID, id)
}

func (t *gameTx) ListAssignments(ctx context.Context, gameID model.GameID, statuses ...model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	committed, err := listAssignments(ctx, t.rtx, gameID, nil)
	if err != nil || gameID != t.gameID {
		return filterAssignments(committed, statuses), err
	}
	byID := make(map[model.AssignmentID]*model.TargetAssignment, len(committed))
	for _, a := range committed {
		byID[a.ID] = a
	}
	for id, a := range t.staged.assignments {
		byID[id] = a.Clone()
	}
	merged := make([]*model.TargetAssignment, 0, len(byID))
	for _, a := range byID {
		merged = append(merged, a)
	}
	storage.SortAssignments(merged)
	return filterAssignments(merged, statuses), nil
}

func (t *gameTx) SaveAssignment(ctx context.Context, assignment *model.TargetAssignment) error {
	if assignment.GameID != t.gameID {
		return fmt.Errorf("assignment %s belongs to game %s, write region is scoped to %s", assignment.ID, assignment.GameID, t.gameID)
	}
	if err := storage.ValidateAssignment(assignment); err != nil {
		return err
	}
	data, err := json.Marshal(assignment)
	if err != nil {
		return err
	}
	t.assignments[assignment.ID] = data
	t.staged.assignments[assignment.ID] = assignment.Clone()
	return nil
}

func filterPlayers(players []*model.Player, statuses []model.PlayerStatus) []*model.Player {
	if len(statuses) == 0 {
		return players
	}
	out := players[:0]
	for _, p := range players {
		if storage.PlayerStatusMatches(p.Status, statuses) {
			out = append(out, p)
		}
	}
	return out
}

func filterAssignments(assignments []*model.TargetAssignment, statuses []model.AssignmentStatus) []*model.TargetAssignment {
	if len(statuses) == 0 {
		return assignments
	}
	out := assignments[:0]
	for _, a := range assignments {
		if storage.AssignmentStatusMatches(a.Status, statuses) {
			out = append(out, a)
		}
	}
	return out
}
