package storage

import (
	"context"

	"github.com/mcoot/assassins-go/internal/model"
)

// GameStore holds the game-scoped entities. It is implemented both by the
// Storage itself (each call commits on its own) and by the transaction handed
// to WithGameTx (calls commit together).
type GameStore interface {
	// Player operations
	GetPlayer(ctx context.Context, gameID model.GameID, id model.PlayerID) (*model.Player, error)
	GetPlayerByUser(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Player, error)
	// ListPlayers returns players ordered by creation time; all players when no statuses are given
	ListPlayers(ctx context.Context, gameID model.GameID, statuses ...model.PlayerStatus) ([]*model.Player, error)
	SavePlayer(ctx context.Context, player *model.Player) error

	// Target assignment operations
	GetAssignment(ctx context.Context, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error)
	// ListAssignments returns edges ordered by creation time then id; all edges when no statuses are given
	ListAssignments(ctx context.Context, gameID model.GameID, statuses ...model.AssignmentStatus) ([]*model.TargetAssignment, error)
	SaveAssignment(ctx context.Context, assignment *model.TargetAssignment) error
}

// Storage defines the interface for data persistence
type Storage interface {
	GameStore

	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// Game operations
	SaveGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)

	// WithGameTx runs fn in a write region scoped to one game. Writes made
	// through tx become visible together when fn returns nil and are discarded
	// otherwise. Regions for the same game never interleave; failing to get
	// exclusive access returns an error wrapping model.ErrContention.
	WithGameTx(ctx context.Context, gameID model.GameID, fn func(tx GameStore) error) error
}
