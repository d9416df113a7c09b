// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

// Suite runs the storage contract against the backend returned by NewStorage.
// Embed it in a backend test and set NewStorage before calling suite.Run.
type Suite struct {
	suite.Suite

	NewStorage func() storage.Storage

	storage storage.Storage
	ctx     context.Context
	base    time.Time
}

func (s *Suite) SetupTest() {
	s.storage = s.NewStorage()
	s.ctx = context.Background()
	s.base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) player(gameID model.GameID, id string, offset int) *model.Player {
	return &model.Player{
		ID:        model.PlayerID(id),
		GameID:    gameID,
		UserID:    model.UserID("user-" + id),
		Status:    model.PlayerStatusAlive,
		CreatedAt: s.base.Add(time.Duration(offset) * time.Second),
		UpdatedAt: s.base.Add(time.Duration(offset) * time.Second),
	}
}

func (s *Suite) edge(gameID model.GameID, id, from, to string, offset int) *model.TargetAssignment {
	return &model.TargetAssignment{
		ID:         model.AssignmentID(id),
		GameID:     gameID,
		FromPlayer: model.PlayerID(from),
		ToPlayer:   model.PlayerID(to),
		Status:     model.AssignmentPending,
		CreatedAt:  s.base.Add(time.Duration(offset) * time.Second),
		UpdatedAt:  s.base.Add(time.Duration(offset) * time.Second),
	}
}

// User tests

func (s *Suite) TestSaveAndGetUser() {
	user := &model.User{ID: "u1", Email: " Alice@Example.com ", DisplayName: "Alice", CreatedAt: s.base}
	s.Require().NoError(s.storage.SaveUser(s.ctx, user))

	got, err := s.storage.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("alice@example.com", got.Email)
	s.Equal("Alice", got.DisplayName)
	s.True(s.base.Equal(got.CreatedAt))

	byEmail, err := s.storage.GetUserByEmail(s.ctx, "ALICE@example.com")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), byEmail.ID)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.storage.GetUser(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.storage.GetUserByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestSaveUserEmailTaken() {
	s.Require().NoError(s.storage.SaveUser(s.ctx, &model.User{ID: "u1", Email: "a@example.com", CreatedAt: s.base}))

	err := s.storage.SaveUser(s.ctx, &model.User{ID: "u2", Email: "A@example.com", CreatedAt: s.base})
	s.ErrorIs(err, model.ErrEmailTaken)
	s.ErrorIs(err, model.ErrInvalidState)
}

// Game tests

func (s *Suite) TestSaveAndGetGame() {
	completed := s.base.Add(time.Hour)
	game := &model.Game{
		ID:          "g1",
		Name:        "Spring",
		Status:      model.GameStatusComplete,
		AdminEmails: []string{"admin@example.com"},
		Config:      model.GameConfig{PairingPolicy: model.PairingStrictPairs, SafeIsTargetable: true},
		CreatedAt:   s.base,
		UpdatedAt:   s.base,
		CompletedAt: &completed,
	}
	s.Require().NoError(s.storage.SaveGame(s.ctx, game))

	got, err := s.storage.GetGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal("Spring", got.Name)
	s.Equal(model.GameStatusComplete, got.Status)
	s.Equal([]string{"admin@example.com"}, got.AdminEmails)
	s.Equal(model.PairingStrictPairs, got.Config.PairingPolicy)
	s.True(got.Config.SafeIsTargetable)
	s.Require().NotNil(got.CompletedAt)
	s.True(completed.Equal(*got.CompletedAt))
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.storage.GetGame(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	p := s.player("g1", "p1", 0)
	p.TeamPartnerID = "p2"
	p.Invited = []model.PlayerID{"p3"}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p))

	got, err := s.storage.GetPlayer(s.ctx, "g1", "p1")
	s.Require().NoError(err)
	s.Equal(model.PlayerStatusAlive, got.Status)
	s.Equal(model.PlayerID("p2"), got.TeamPartnerID)
	s.Equal([]model.PlayerID{"p3"}, got.Invited)
	s.Empty(got.InvitedBy)

	byUser, err := s.storage.GetPlayerByUser(s.ctx, "g1", "user-p1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), byUser.ID)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "g1", "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	// Players are scoped to their game
	s.Require().NoError(s.storage.SavePlayer(s.ctx, s.player("g1", "p1", 0)))
	_, err = s.storage.GetPlayer(s.ctx, "g2", "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestListPlayersFiltersAndOrders() {
	p3 := s.player("g1", "p3", 0)
	p1 := s.player("g1", "p1", 1)
	p2 := s.player("g1", "p2", 2)
	p2.Status = model.PlayerStatusKilled
	for _, p := range []*model.Player{p1, p2, p3} {
		s.Require().NoError(s.storage.SavePlayer(s.ctx, p))
	}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, s.player("g2", "other", 0)))

	all, err := s.storage.ListPlayers(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p3", "p1", "p2"}, playerIDs(all))

	live, err := s.storage.ListPlayers(s.ctx, "g1", model.LiveStatuses()...)
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p3", "p1"}, playerIDs(live))
}

func (s *Suite) TestSavedPlayerIsNotAliased() {
	p := s.player("g1", "p1", 0)
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p))
	p.Status = model.PlayerStatusKilled

	got, err := s.storage.GetPlayer(s.ctx, "g1", "p1")
	s.Require().NoError(err)
	s.Equal(model.PlayerStatusAlive, got.Status)
}

// Assignment tests

func (s *Suite) TestSaveAndListAssignments() {
	s.Require().NoError(s.storage.SaveAssignment(s.ctx, s.edge("g1", "a2", "p1", "p2", 1)))
	s.Require().NoError(s.storage.SaveAssignment(s.ctx, s.edge("g1", "a1", "p2", "p1", 1)))
	done := s.edge("g1", "a0", "p3", "p1", 0)
	done.Status = model.AssignmentComplete
	s.Require().NoError(s.storage.SaveAssignment(s.ctx, done))

	all, err := s.storage.ListAssignments(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal([]model.AssignmentID{"a0", "a1", "a2"}, assignmentIDs(all))

	pending, err := s.storage.ListAssignments(s.ctx, "g1", model.AssignmentPending)
	s.Require().NoError(err)
	s.Equal([]model.AssignmentID{"a1", "a2"}, assignmentIDs(pending))

	got, err := s.storage.GetAssignment(s.ctx, "g1", "a2")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), got.FromPlayer)
	s.Equal(model.PlayerID("p2"), got.ToPlayer)
}

func (s *Suite) TestGetAssignmentNotFound() {
	_, err := s.storage.GetAssignment(s.ctx, "g1", "missing")
	s.ErrorIs(err, model.ErrAssignmentNotFound)
}

func (s *Suite) TestSaveAssignmentRejectsSelfEdge() {
	err := s.storage.SaveAssignment(s.ctx, s.edge("g1", "a1", "p1", "p1", 0))
	s.ErrorIs(err, model.ErrUnprocessable)
}

func (s *Suite) TestUpdateAssignmentStatus() {
	a := s.edge("g1", "a1", "p1", "p2", 0)
	s.Require().NoError(s.storage.SaveAssignment(s.ctx, a))
	a.Status = model.AssignmentExpired
	a.UpdatedAt = s.base.Add(time.Minute)
	s.Require().NoError(s.storage.SaveAssignment(s.ctx, a))

	got, err := s.storage.GetAssignment(s.ctx, "g1", "a1")
	s.Require().NoError(err)
	s.Equal(model.AssignmentExpired, got.Status)
	s.True(s.base.Equal(got.CreatedAt))
}

// Transaction tests

func (s *Suite) TestWithGameTxCommitsTogether() {
	err := s.storage.WithGameTx(s.ctx, "g1", func(tx storage.GameStore) error {
		if err := tx.SavePlayer(s.ctx, s.player("g1", "p1", 0)); err != nil {
			return err
		}
		if err := tx.SavePlayer(s.ctx, s.player("g1", "p2", 1)); err != nil {
			return err
		}
		// Staged writes are visible within the region
		players, err := tx.ListPlayers(s.ctx, "g1", model.PlayerStatusAlive)
		if err != nil {
			return err
		}
		s.Len(players, 2)
		return tx.SaveAssignment(s.ctx, s.edge("g1", "a1", "p1", "p2", 0))
	})
	s.Require().NoError(err)

	players, err := s.storage.ListPlayers(s.ctx, "g1")
	s.Require().NoError(err)
	s.Len(players, 2)
	pending, err := s.storage.ListAssignments(s.ctx, "g1", model.AssignmentPending)
	s.Require().NoError(err)
	s.Len(pending, 1)
}

func (s *Suite) TestWithGameTxDiscardsOnError() {
	boom := errors.New("boom")
	err := s.storage.WithGameTx(s.ctx, "g1", func(tx storage.GameStore) error {
		if err := tx.SavePlayer(s.ctx, s.player("g1", "p1", 0)); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.storage.GetPlayer(s.ctx, "g1", "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestWithGameTxRejectsOtherGame() {
	err := s.storage.WithGameTx(s.ctx, "g1", func(tx storage.GameStore) error {
		return tx.SavePlayer(s.ctx, s.player("g2", "p1", 0))
	})
	s.Error(err)

	_, err = s.storage.GetPlayer(s.ctx, "g2", "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Read-modify-write regions retried on contention never lose an update
func (s *Suite) TestWithGameTxSerializesCounters() {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, s.player("g1", "p1", 0)))

	const workers = 8
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := s.storage.WithGameTx(s.ctx, "g1", func(tx storage.GameStore) error {
					p, err := tx.GetPlayer(s.ctx, "g1", "p1")
					if err != nil {
						return err
					}
					p.Invited = append(p.Invited, model.PlayerID(fmt.Sprintf("w%d", i)))
					return tx.SavePlayer(s.ctx, p)
				})
				if errors.Is(err, model.ErrContention) {
					continue
				}
				s.NoError(err)
				return
			}
		}()
	}
	wg.Wait()

	got, err := s.storage.GetPlayer(s.ctx, "g1", "p1")
	s.Require().NoError(err)
	s.Len(got.Invited, workers)
}

func playerIDs(players []*model.Player) []model.PlayerID {
	ids := make([]model.PlayerID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

func assignmentIDs(assignments []*model.TargetAssignment) []model.AssignmentID {
	ids := make([]model.AssignmentID, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
	}
	return ids
}
