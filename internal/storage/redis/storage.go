package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Players and assignments live in one HASH per game so a write region can
// WATCH exactly the keys it depends on.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// hashReader is satisfied by both *redis.Client and *redis.Tx
type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	u := *user
	u.Email = model.NormalizeEmail(u.Email)
	data, err := json.Marshal(&u)
	if err != nil {
		return err
	}

	indexKey := emailIndexKey(u.Email)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		owner, err := tx.Get(ctx, indexKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if owner != "" && owner != string(u.ID) {
			return fmt.Errorf("%w: email=%s", model.ErrEmailTaken, u.Email)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(u.ID), data, 0) // No TTL
			pipe.Set(ctx, indexKey, string(u.ID), 0)
			return nil
		})
		return err
	}, indexKey)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: email=%s", model.ErrTxConflict, u.Email)
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	// Look up user ID from email index
	userIDStr, err := s.client.Get(ctx, emailIndexKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	return s.GetUser(ctx, model.UserID(userIDStr))
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, gameKey(game.ID), data, s.cfg.GameTTL).Err()
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}

	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	return getPlayer(ctx, s.client, gameID, id)
}

func (s *Storage) GetPlayerByUser(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	return getPlayerByUser(ctx, s.client, gameID, userID)
}

func (s *Storage) ListPlayers(ctx context.Context, gameID model.GameID, statuses ...model.PlayerStatus) ([]*model.Player, error) {
	return listPlayers(ctx, s.client, gameID, statuses)
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	return s.WithGameTx(ctx, player.GameID, func(tx storage.GameStore) error {
		return tx.SavePlayer(ctx, player)
	})
}

// Assignment operations

func (s *Storage) GetAssignment(ctx context.Context, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	return getAssignment(ctx, s.client, gameID, id)
}

func (s *Storage) ListAssignments(ctx context.Context, gameID model.GameID, statuses ...model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	return listAssignments(ctx, s.client, gameID, statuses)
}

func (s *Storage) SaveAssignment(ctx context.Context, assignment *model.TargetAssignment) error {
	return s.WithGameTx(ctx, assignment.GameID, func(tx storage.GameStore) error {
		return tx.SaveAssignment(ctx, assignment)
	})
}

// Shared readers used both outside and inside a write region

func getPlayer(ctx context.Context, r hashReader, gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	data, err := r.HGet(ctx, playersKey(gameID), string(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: game_id=%s player_id=%s", model.ErrPlayerNotFound, gameID, id)
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func getPlayerByUser(ctx context.Context, r hashReader, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	players, err := listPlayers(ctx, r, gameID, nil)
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

func listPlayers(ctx context.Context, r hashReader, gameID model.GameID, statuses []model.PlayerStatus) ([]*model.Player, error) {
	values, err := r.HGetAll(ctx, playersKey(gameID)).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for _, val := range values {
		var player model.Player
		if err := json.Unmarshal([]byte(val), &player); err != nil {
			return nil, err
		}
		if storage.PlayerStatusMatches(player.Status, statuses) {
			players = append(players, &player)
		}
	}
	storage.SortPlayers(players)
	return players, nil
}

func getAssignment(ctx context.Context, r hashReader, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	data, err := r.HGet(ctx, assignmentsKey(gameID), string(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: game_id=%s assignment_id=%s", model.ErrAssignmentNotFound, gameID, id)
		}
		return nil, err
	}

	var assignment model.TargetAssignment
	if err := json.Unmarshal(data, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func listAssignments(ctx context.Context, r hashReader, gameID model.GameID, statuses []model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	values, err := r.HGetAll(ctx, assignmentsKey(gameID)).Result()
	if err != nil {
		return nil, err
	}

	assignments := make([]*model.TargetAssignment, 0, len(values))
	for _, val := range values {
		var assignment model.TargetAssignment
		if err := json.Unmarshal([]byte(val), &assignment); err != nil {
			return nil, err
		}
		if storage.AssignmentStatusMatches(assignment.Status, statuses) {
			assignments = append(assignments, &assignment)
		}
	}
	storage.SortAssignments(assignments)
	return assignments, nil
}
