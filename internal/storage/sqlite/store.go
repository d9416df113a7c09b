// Package sqlite provides a SQLite-backed game storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
	"github.com/mcoot/assassins-go/internal/storage/sqlite/migrations"
)

// Config holds SQLite settings
type Config struct {
	// Path is the database file path
	Path string

	// BusyTimeout bounds how long a write region waits for the database lock
	BusyTimeout time.Duration
}

// DefaultConfig returns sensible defaults for SQLite storage
func DefaultConfig() Config {
	return Config{
		Path:        "data/assassins.db",
		BusyTimeout: 2 * time.Second,
	}
}

// Store persists game state in SQLite
type Store struct {
	sqlDB *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
// Transactions start IMMEDIATE so write regions serialize on the database lock.
func Open(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultConfig().BusyTimeout
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(cfg.Path)), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		filepath.Clean(cfg.Path),
		cfg.BusyTimeout.Milliseconds(),
	)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

var _ storage.Storage = (*Store)(nil)

// User operations

func (s *Store) SaveUser(ctx context.Context, user *model.User) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   email = excluded.email,
		   display_name = excluded.display_name`,
		string(user.ID),
		model.NormalizeEmail(user.Email),
		user.DisplayName,
		toMillis(user.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: email=%s", model.ErrEmailTaken, model.NormalizeEmail(user.Email))
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, display_name, created_at FROM users WHERE id = ?`,
		string(id),
	)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, display_name, created_at FROM users WHERE email = ?`,
		model.NormalizeEmail(email),
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	var id string
	var createdAt int64
	if err := row.Scan(&id, &user.Email, &user.DisplayName, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.ID = model.UserID(id)
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

// Game operations

func (s *Store) SaveGame(ctx context.Context, game *model.Game) error {
	adminEmails, err := json.Marshal(game.AdminEmails)
	if err != nil {
		return err
	}
	var completedAt sql.NullInt64
	if game.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: toMillis(*game.CompletedAt), Valid: true}
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO games (
		   id, name, status, admin_emails, pairing_policy, safe_is_targetable,
		   created_at, updated_at, completed_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   status = excluded.status,
		   admin_emails = excluded.admin_emails,
		   pairing_policy = excluded.pairing_policy,
		   safe_is_targetable = excluded.safe_is_targetable,
		   updated_at = excluded.updated_at,
		   completed_at = excluded.completed_at`,
		string(game.ID),
		game.Name,
		string(game.Status),
		string(adminEmails),
		string(game.Config.PairingPolicy),
		game.Config.SafeIsTargetable,
		toMillis(game.CreatedAt),
		toMillis(game.UpdatedAt),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, status, admin_emails, pairing_policy, safe_is_targetable,
		        created_at, updated_at, completed_at
		   FROM games
		  WHERE id = ?`,
		string(id),
	)

	var game model.Game
	var gameID, status, adminEmails, pairingPolicy string
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64
	err := row.Scan(
		&gameID,
		&game.Name,
		&status,
		&adminEmails,
		&pairingPolicy,
		&game.Config.SafeIsTargetable,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrGameNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	if err := json.Unmarshal([]byte(adminEmails), &game.AdminEmails); err != nil {
		return nil, fmt.Errorf("decode admin emails: %w", err)
	}
	game.ID = model.GameID(gameID)
	game.Status = model.GameStatus(status)
	game.Config.PairingPolicy = model.PairingPolicy(pairingPolicy)
	game.CreatedAt = fromMillis(createdAt)
	game.UpdatedAt = fromMillis(updatedAt)
	if completedAt.Valid {
		t := fromMillis(completedAt.Int64)
		game.CompletedAt = &t
	}
	return &game, nil
}

// Game-scoped operations outside a transaction

func (s *Store) GetPlayer(ctx context.Context, gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	return getPlayer(ctx, s.sqlDB, gameID, id)
}

func (s *Store) GetPlayerByUser(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	return getPlayerByUser(ctx, s.sqlDB, gameID, userID)
}

func (s *Store) ListPlayers(ctx context.Context, gameID model.GameID, statuses ...model.PlayerStatus) ([]*model.Player, error) {
	return listPlayers(ctx, s.sqlDB, gameID, statuses)
}

func (s *Store) SavePlayer(ctx context.Context, player *model.Player) error {
	return savePlayer(ctx, s.sqlDB, player)
}

func (s *Store) GetAssignment(ctx context.Context, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	return getAssignment(ctx, s.sqlDB, gameID, id)
}

func (s *Store) ListAssignments(ctx context.Context, gameID model.GameID, statuses ...model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	return listAssignments(ctx, s.sqlDB, gameID, statuses)
}

func (s *Store) SaveAssignment(ctx context.Context, assignment *model.TargetAssignment) error {
	return saveAssignment(ctx, s.sqlDB, assignment)
}

// WithGameTx runs fn inside one IMMEDIATE transaction. SQLite has a single
// writer, so regions for every game serialize; a lock wait beyond the busy
// timeout surfaces as contention.
func (s *Store) WithGameTx(ctx context.Context, gameID model.GameID, fn func(tx storage.GameStore) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		if isSQLiteBusyError(err) {
			return fmt.Errorf("%w: game_id=%s", model.ErrLockTimeout, gameID)
		}
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&gameTx{tx: tx, gameID: gameID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isSQLiteBusyError(err) {
			return fmt.Errorf("%w: game_id=%s", model.ErrTxConflict, gameID)
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// gameTx routes game-scoped operations through an open transaction
type gameTx struct {
	tx     *sql.Tx
	gameID model.GameID
}

var _ storage.GameStore = (*gameTx)(nil)

func (t *gameTx) GetPlayer(ctx context.Context, gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	return getPlayer(ctx, t.tx, gameID, id)
}

func (t *gameTx) GetPlayerByUser(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	return getPlayerByUser(ctx, t.tx, gameID, userID)
}

func (t *gameTx) ListPlayers(ctx context.Context, gameID model.GameID, statuses ...model.PlayerStatus) ([]*model.Player, error) {
	return listPlayers(ctx, t.tx, gameID, statuses)
}

func (t *gameTx) SavePlayer(ctx context.Context, player *model.Player) error {
	if player.GameID != t.gameID {
		return fmt.Errorf("player %s belongs to game %s, write region is scoped to %s", player.ID, player.GameID, t.gameID)
	}
	return savePlayer(ctx, t.tx, player)
}

func (t *gameTx) GetAssignment(ctx context.Context, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	return getAssignment(ctx, t.tx, gameID, id)
}

func (t *gameTx) ListAssignments(ctx context.Context, gameID model.GameID, statuses ...model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	return listAssignments(ctx, t.tx, gameID, statuses)
}

func (t *gameTx) SaveAssignment(ctx context.Context, assignment *model.TargetAssignment) error {
	if assignment.GameID != t.gameID {
		return fmt.Errorf("assignment %s belongs to game %s, write region is scoped to %s", assignment.ID, assignment.GameID, t.gameID)
	}
	return saveAssignment(ctx, t.tx, assignment)
}

// Shared queries

const playerColumns = `id, game_id, user_id, status, team_partner_id, invited, invited_by, created_at, updated_at`

func scanPlayer(scan func(dest ...any) error) (*model.Player, error) {
	var p model.Player
	var id, gameID, userID, status, partner, invited, invitedBy string
	var createdAt, updatedAt int64
	if err := scan(&id, &gameID, &userID, &status, &partner, &invited, &invitedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(invited), &p.Invited); err != nil {
		return nil, fmt.Errorf("decode invited: %w", err)
	}
	if err := json.Unmarshal([]byte(invitedBy), &p.InvitedBy); err != nil {
		return nil, fmt.Errorf("decode invited_by: %w", err)
	}
	p.ID = model.PlayerID(id)
	p.GameID = model.GameID(gameID)
	p.UserID = model.UserID(userID)
	p.Status = model.PlayerStatus(status)
	p.TeamPartnerID = model.PlayerID(partner)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func getPlayer(ctx context.Context, q querier, gameID model.GameID, id model.PlayerID) (*model.Player, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE game_id = ? AND id = ?`,
		string(gameID), string(id),
	)
	p, err := scanPlayer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: game_id=%s player_id=%s", model.ErrPlayerNotFound, gameID, id)
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func getPlayerByUser(ctx context.Context, q querier, gameID model.GameID, userID model.UserID) (*model.Player, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE game_id = ? AND user_id = ?`,
		string(gameID), string(userID),
	)
	p, err := scanPlayer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("get player by user: %w", err)
	}
	return p, nil
}

func listPlayers(ctx context.Context, q querier, gameID model.GameID, statuses []model.PlayerStatus) ([]*model.Player, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE game_id = ? ORDER BY created_at ASC, id ASC`,
		string(gameID),
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		if storage.PlayerStatusMatches(p.Status, statuses) {
			players = append(players, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

func savePlayer(ctx context.Context, q querier, p *model.Player) error {
	invited, err := json.Marshal(nonNil(p.Invited))
	if err != nil {
		return err
	}
	invitedBy, err := json.Marshal(nonNil(p.InvitedBy))
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO players (`+playerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (game_id, id) DO UPDATE SET
		   status = excluded.status,
		   team_partner_id = excluded.team_partner_id,
		   invited = excluded.invited,
		   invited_by = excluded.invited_by,
		   updated_at = excluded.updated_at`,
		string(p.ID),
		string(p.GameID),
		string(p.UserID),
		string(p.Status),
		string(p.TeamPartnerID),
		string(invited),
		string(invitedBy),
		toMillis(p.CreatedAt),
		toMillis(p.UpdatedAt),
	)
	if err != nil {
		if isSQLiteBusyError(err) {
			return fmt.Errorf("%w: game_id=%s", model.ErrTxConflict, p.GameID)
		}
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

const assignmentColumns = `id, game_id, from_player_id, to_player_id, status, created_at, updated_at`

func scanAssignment(scan func(dest ...any) error) (*model.TargetAssignment, error) {
	var a model.TargetAssignment
	var id, gameID, from, to, status string
	var createdAt, updatedAt int64
	if err := scan(&id, &gameID, &from, &to, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.ID = model.AssignmentID(id)
	a.GameID = model.GameID(gameID)
	a.FromPlayer = model.PlayerID(from)
	a.ToPlayer = model.PlayerID(to)
	a.Status = model.AssignmentStatus(status)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

func getAssignment(ctx context.Context, q querier, gameID model.GameID, id model.AssignmentID) (*model.TargetAssignment, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE game_id = ? AND id = ?`,
		string(gameID), string(id),
	)
	a, err := scanAssignment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: game_id=%s assignment_id=%s", model.ErrAssignmentNotFound, gameID, id)
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func listAssignments(ctx context.Context, q querier, gameID model.GameID, statuses []model.AssignmentStatus) ([]*model.TargetAssignment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE game_id = ? ORDER BY created_at ASC, id ASC`,
		string(gameID),
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*model.TargetAssignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		if storage.AssignmentStatusMatches(a.Status, statuses) {
			assignments = append(assignments, a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

func saveAssignment(ctx context.Context, q querier, a *model.TargetAssignment) error {
	if err := storage.ValidateAssignment(a); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (game_id, id) DO UPDATE SET
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		string(a.ID),
		string(a.GameID),
		string(a.FromPlayer),
		string(a.ToPlayer),
		string(a.Status),
		toMillis(a.CreatedAt),
		toMillis(a.UpdatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: duplicate pending edge %s -> %s", model.ErrInvalidState, a.FromPlayer, a.ToPlayer)
		}
		if isSQLiteBusyError(err) {
			return fmt.Errorf("%w: game_id=%s", model.ErrTxConflict, a.GameID)
		}
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

func nonNil(ids []model.PlayerID) []model.PlayerID {
	if ids == nil {
		return []model.PlayerID{}
	}
	return ids
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT ||
		code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY ||
		code == sqlite3lib.SQLITE_CONSTRAINT_CHECK
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_BUSY || code == sqlite3lib.SQLITE_LOCKED
}
