package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

// AdminUserID administers every game created by a Fixture
const AdminUserID model.UserID = "admin"

// Fixture seeds games, users and players directly into storage
type Fixture struct {
	t       require.TestingT
	storage storage.Storage
	ctx     context.Context
	base    time.Time
	seq     int
}

// NewFixture creates a fixture writing to st
func NewFixture(t require.TestingT, st storage.Storage) *Fixture {
	f := &Fixture{
		t:       t,
		storage: st,
		ctx:     context.Background(),
		base:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.User(AdminUserID, "admin@example.com")
	return f
}

func (f *Fixture) next() time.Time {
	f.seq++
	return f.base.Add(time.Duration(f.seq) * time.Second)
}

// User saves a user
func (f *Fixture) User(id model.UserID, email string) *model.User {
	u := &model.User{ID: id, Email: email, DisplayName: string(id), CreatedAt: f.next()}
	require.NoError(f.t, f.storage.SaveUser(f.ctx, u))
	return u
}

// Game saves a game administered by AdminUserID
func (f *Fixture) Game(id model.GameID, status model.GameStatus, config model.GameConfig) *model.Game {
	now := f.next()
	g := &model.Game{
		ID:          id,
		Name:        string(id),
		Status:      status,
		AdminEmails: []string{"admin@example.com"},
		Config:      config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(f.t, f.storage.SaveGame(f.ctx, g))
	return g
}

// Player saves an alive player backed by user "u-<id>"
func (f *Fixture) Player(gameID model.GameID, id model.PlayerID) *model.Player {
	userID := model.UserID("u-" + string(id))
	if _, err := f.storage.GetUser(f.ctx, userID); err != nil {
		f.User(userID, string(id)+"@example.com")
	}
	now := f.next()
	p := &model.Player{
		ID:        id,
		GameID:    gameID,
		UserID:    userID,
		Status:    model.PlayerStatusAlive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(f.t, f.storage.SavePlayer(f.ctx, p))
	return p
}

// Pair saves two alive players partnered with each other
func (f *Fixture) Pair(gameID model.GameID, a, b model.PlayerID) {
	pa := f.Player(gameID, a)
	pb := f.Player(gameID, b)
	pa.TeamPartnerID = b
	pb.TeamPartnerID = a
	require.NoError(f.t, f.storage.SavePlayer(f.ctx, pa))
	require.NoError(f.t, f.storage.SavePlayer(f.ctx, pb))
}

// SetStatus overwrites a player's status
func (f *Fixture) SetStatus(gameID model.GameID, id model.PlayerID, status model.PlayerStatus) {
	p, err := f.storage.GetPlayer(f.ctx, gameID, id)
	require.NoError(f.t, err)
	p.Status = status
	require.NoError(f.t, f.storage.SavePlayer(f.ctx, p))
}

// Edge saves a pending edge
func (f *Fixture) Edge(gameID model.GameID, id model.AssignmentID, from, to model.PlayerID) *model.TargetAssignment {
	now := f.next()
	a := &model.TargetAssignment{
		ID:         id,
		GameID:     gameID,
		FromPlayer: from,
		ToPlayer:   to,
		Status:     model.AssignmentPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(f.t, f.storage.SaveAssignment(f.ctx, a))
	return a
}

// EdgeSet renders edges as "from->to" strings for order-free comparison
func EdgeSet(edges []*model.TargetAssignment) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = string(e.FromPlayer) + "->" + string(e.ToPlayer)
	}
	return out
}
