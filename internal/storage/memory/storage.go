package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

// Config holds settings for the in-memory storage
type Config struct {
	// LockTimeout bounds how long a write region waits for its game lock
	LockTimeout time.Duration
}

// DefaultConfig returns sensible defaults for in-memory storage
func DefaultConfig() Config {
	return Config{
		LockTimeout: 2 * time.Second,
	}
}

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users       map[model.UserID]*model.User
	emailIndex  map[string]model.UserID
	games       map[model.GameID]*model.Game
	players     map[model.GameID]map[model.PlayerID]*model.Player
	assignments map[model.GameID]map[model.AssignmentID]*model.TargetAssignment

	// One-slot semaphores, one per game
	locksMu sync.Mutex
	locks   map[model.GameID]chan struct{}

	cfg Config
}

// New creates a new in-memory storage instance with default settings
func New() *Storage {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new in-memory storage instance
func NewWithConfig(cfg Config) *Storage {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultConfig().LockTimeout
	}
	return &Storage{
		users:       make(map[model.UserID]*model.User),
		emailIndex:  make(map[string]model.UserID),
		games:       make(map[model.GameID]*model.Game),
		players:     make(map[model.GameID]map[model.PlayerID]*model.Player),
		assignments: make(map[model.GameID]map[model.AssignmentID]*model.TargetAssignment),
		locks:       make(map[model.GameID]chan struct{}),
		cfg:         cfg,
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	u.Email = model.NormalizeEmail(u.Email)
	if existing, ok := s.emailIndex[u.Email]; ok && existing != u.ID {
		return fmt.Errorf("%w: email=%s", model.ErrEmailTaken, u.Email)
	}
	if old, ok := s.users[u.ID]; ok && old.Email != u.Email {
		delete(s.emailIndex, old.Email)
	}
	s.users[u.ID] = &u
	s.emailIndex[u.Email] = u.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[model.NormalizeEmail(email)]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayerLocked(gameID, id)
}

func (s *Storage) GetPlayerByUser(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players[gameID] {
		if p.UserID == userID {
			return p.Clone(), nil
		}
	}
	return nil, model.ErrPlayerNotFound
}

func (s *Storage) ListPlayers(ctx context.Context, gameID model.GameID, statuses ...model.PlayerStatus) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]*model.Player, 0, len(s.players[gameID]))
	for _, p := range s.players[gameID] {
		if storage.PlayerStatusMatches(p.Status, statuses) {
			players = append(players, p.Clone())
		}
	}
	storage.SortPlayers(players)
	return players, nil
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	return s.WithGameTx(ctx, player.GameID, func(tx storage.GameStore) error {
		return tx.SavePlayer(ctx, player)
	})
}

// Assignment operations

func (s *Storage) GetAssignment(ctx context.Context, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAssignmentLocked(gameID, id)
}

func (s *Storage) ListAssignments(ctx context.Context, gameID model.GameID, statuses ...model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assignments := make([]*model.TargetAssignment, 0, len(s.assignments[gameID]))
	for _, a := range s.assignments[gameID] {
		if storage.AssignmentStatusMatches(a.Status, statuses) {
			assignments = append(assignments, a.Clone())
		}
	}
	storage.SortAssignments(assignments)
	return assignments, nil
}

func (s *Storage) SaveAssignment(ctx context.Context, assignment *model.TargetAssignment) error {
	return s.WithGameTx(ctx, assignment.GameID, func(tx storage.GameStore) error {
		return tx.SaveAssignment(ctx, assignment)
	})
}

// Transactions

func (s *Storage) WithGameTx(ctx context.Context, gameID model.GameID, fn func(tx storage.GameStore) error) error {
	unlock, err := s.lockGame(ctx, gameID)
	if err != nil {
		return err
	}
	defer unlock()

	t := &gameTx{
		s:           s,
		gameID:      gameID,
		players:     make(map[model.PlayerID]*model.Player),
		assignments: make(map[model.AssignmentID]*model.TargetAssignment),
	}
	if err := fn(t); err != nil {
		return err
	}
	s.commit(t)
	return nil
}

// lockGame acquires the game's semaphore or gives up after the lock timeout
func (s *Storage) lockGame(ctx context.Context, gameID model.GameID) (func(), error) {
	s.locksMu.Lock()
	sem, ok := s.locks[gameID]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[gameID] = sem
	}
	s.locksMu.Unlock()

	timer := time.NewTimer(s.cfg.LockTimeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: game_id=%s", model.ErrLockTimeout, gameID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Storage) commit(t *gameTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(t.players) > 0 && s.players[t.gameID] == nil {
		s.players[t.gameID] = make(map[model.PlayerID]*model.Player)
	}
	for id, p := range t.players {
		s.players[t.gameID][id] = p
	}
	if len(t.assignments) > 0 && s.assignments[t.gameID] == nil {
		s.assignments[t.gameID] = make(map[model.AssignmentID]*model.TargetAssignment)
	}
	for id, a := range t.assignments {
		s.assignments[t.gameID][id] = a
	}
}

func (s *Storage) getPlayerLocked(gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	p, ok := s.players[gameID][id]
	if !ok {
		return nil, fmt.Errorf("%w: game_id=%s player_id=%s", model.ErrPlayerNotFound, gameID, id)
	}
	return p.Clone(), nil
}

func (s *Storage) getAssignmentLocked(gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	a, ok := s.assignments[gameID][id]
	if !ok {
		return nil, fmt.Errorf("%w: game_id=%s assignment_id=%s", model.ErrAssignmentNotFound, gameID, id)
	}
	return a.Clone(), nil
}
