package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage/memory"
	"github.com/mcoot/assassins-go/internal/testutil"
)

type ProjectionSuite struct {
	suite.Suite
}

func TestProjectionSuite(t *testing.T) {
	suite.Run(t, new(ProjectionSuite))
}

func player(id string, status model.PlayerStatus, offset int) *model.Player {
	return &model.Player{
		ID:        model.PlayerID(id),
		GameID:    "g1",
		UserID:    model.UserID("u-" + id),
		Status:    status,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, offset, 0, time.UTC),
	}
}

func edge(from, to string, status model.AssignmentStatus) *model.TargetAssignment {
	return &model.TargetAssignment{
		ID:         model.AssignmentID(from + "-" + to),
		GameID:     "g1",
		FromPlayer: model.PlayerID(from),
		ToPlayer:   model.PlayerID(to),
		Status:     status,
	}
}

func (s *ProjectionSuite) TestRanksByKillsThenLiveness() {
	snap := Snapshot{
		Players: []*model.Player{
			player("a", model.PlayerStatusAlive, 0),
			player("b", model.PlayerStatusKilled, 1),
			player("c", model.PlayerStatusSafe, 2),
			player("d", model.PlayerStatusKilled, 3),
			player("e", model.PlayerStatusAlive, 4),
		},
		Assignments: []*model.TargetAssignment{
			edge("c", "b", model.AssignmentComplete),
			edge("c", "d", model.AssignmentComplete),
			edge("a", "c", model.AssignmentExpired),
			edge("e", "a", model.AssignmentPending),
		},
		Users: map[model.UserID]*model.User{
			"u-c": {ID: "u-c", DisplayName: "Carol"},
		},
	}

	entries := Build(snap)
	s.Require().Len(entries, 5)

	s.Equal(model.PlayerID("c"), entries[0].PlayerID)
	s.Equal(2, entries[0].Kills)
	s.Equal("Carol", entries[0].DisplayName)
	s.Equal(1, entries[0].Rank)

	// live players with no kills tie, in registration order
	s.Equal(model.PlayerID("a"), entries[1].PlayerID)
	s.Equal(model.PlayerID("e"), entries[2].PlayerID)
	s.Equal(2, entries[1].Rank)
	s.Equal(2, entries[2].Rank)

	s.Equal(model.PlayerID("b"), entries[3].PlayerID)
	s.Equal(model.PlayerID("c"), entries[3].KilledBy)
	s.Equal(4, entries[3].Rank)
	s.Equal(model.PlayerID("d"), entries[4].PlayerID)
	s.Equal(model.PlayerID("c"), entries[4].KilledBy)
}

func (s *ProjectionSuite) TestEmptySnapshot() {
	s.Empty(Build(Snapshot{}))
}

func (s *ProjectionSuite) TestBuildDoesNotMutateSnapshot() {
	players := []*model.Player{
		player("a", model.PlayerStatusKilled, 0),
		player("b", model.PlayerStatusAlive, 1),
	}
	Build(Snapshot{Players: players})
	s.Equal(model.PlayerID("a"), players[0].ID)
}

func (s *ProjectionSuite) TestServiceReadsStorage() {
	ctx := context.Background()
	st := memory.New()
	f := testutil.NewFixture(s.T(), st)
	f.Game("g1", model.GameStatusActive, model.DefaultGameConfig())
	f.Player("g1", "a")
	f.Player("g1", "b")
	done := f.Edge("g1", "ab", "a", "b")
	done.Status = model.AssignmentComplete
	s.Require().NoError(st.SaveAssignment(ctx, done))
	f.SetStatus("g1", "b", model.PlayerStatusKilled)

	svc := New(st, testutil.NopLogger())
	entries, err := svc.Leaderboard(ctx, "g1")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(model.PlayerID("a"), entries[0].PlayerID)
	s.Equal(1, entries[0].Kills)
	s.Equal("u-a", entries[0].DisplayName)
	s.Equal(model.PlayerID("a"), entries[1].KilledBy)

	_, err = svc.Leaderboard(ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}
