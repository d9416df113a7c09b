package elimination

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/assassins-go/internal/dependencies/mocks"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/assignment"
	"github.com/mcoot/assassins-go/internal/services/registry"
	"github.com/mcoot/assassins-go/internal/services/retry"
	"github.com/mcoot/assassins-go/internal/storage"
	"github.com/mcoot/assassins-go/internal/storage/memory"
	"github.com/mcoot/assassins-go/internal/storage/redis"
	"github.com/mcoot/assassins-go/internal/storage/sqlite"
	"github.com/mcoot/assassins-go/internal/testutil"
)

const gameID model.GameID = "g1"

type harness struct {
	storage    storage.Storage
	fixture    *testutil.Fixture
	registry   *registry.Service
	assignment *assignment.Service
	service    *Service
}

func newHarness(t require.TestingT, st storage.Storage) *harness {
	logger := testutil.NopLogger()
	clk := mocks.NewSteppingMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), time.Second)
	reg := registry.New(st, clk, mocks.NewMockIDGenerator("game"), logger)
	retrier := retry.New(retry.Policy{MaxAttempts: 50, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}, logger)
	ids := mocks.NewMockIDGenerator("edge")
	return &harness{
		storage:    st,
		fixture:    testutil.NewFixture(t, st),
		registry:   reg,
		assignment: assignment.New(st, reg, retrier, clk, mocks.NewMockRandom(), ids, logger),
		service:    New(st, reg, retrier, clk, ids, logger),
	}
}

type ServiceSuite struct {
	suite.Suite
	*harness
	ctx context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.harness = newHarness(s.T(), memory.New())
	s.ctx = context.Background()
	s.fixture.Game(gameID, model.GameStatusActive, model.DefaultGameConfig())
}

func (s *ServiceSuite) seed(teamList ...model.Team) {
	_, err := s.assignment.GenerateAssignments(s.ctx, gameID, teamList)
	s.Require().NoError(err)
}

// edgeID finds the pending edge from -> to
func (s *ServiceSuite) edgeID(from, to model.PlayerID) model.AssignmentID {
	pending, err := s.storage.ListAssignments(s.ctx, gameID, model.AssignmentPending)
	s.Require().NoError(err)
	for _, a := range pending {
		if a.FromPlayer == from && a.ToPlayer == to {
			return a.ID
		}
	}
	s.FailNowf("no pending edge", "%s -> %s", from, to)
	return ""
}

func (s *ServiceSuite) pendingSet() []string {
	pending, err := s.storage.ListAssignments(s.ctx, gameID, model.AssignmentPending)
	s.Require().NoError(err)
	return testutil.EdgeSet(pending)
}

func (s *ServiceSuite) status(id model.PlayerID) model.PlayerStatus {
	p, err := s.storage.GetPlayer(s.ctx, gameID, id)
	s.Require().NoError(err)
	return p.Status
}

func (s *ServiceSuite) edgeStatus(id model.AssignmentID) model.AssignmentStatus {
	a, err := s.storage.GetAssignment(s.ctx, gameID, id)
	s.Require().NoError(err)
	return a.Status
}

func (s *ServiceSuite) kill(from, to model.PlayerID) *KillResult {
	result, err := s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, s.edgeID(from, to))
	s.Require().NoError(err)
	return result
}

func (s *ServiceSuite) setupTwoPairs() {
	s.fixture.Pair(gameID, "P1", "P2")
	s.fixture.Pair(gameID, "P3", "P4")
	s.seed(model.Team{"P1", "P2"}, model.Team{"P3", "P4"})
}

func (s *ServiceSuite) TestPartialTeamKillKeepsSiblingEdge() {
	s.setupTwoPairs()
	edge := s.edgeID("P1", "P3")
	sibling := s.edgeID("P2", "P3")

	result, err := s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, edge)
	s.Require().NoError(err)

	s.Equal(model.PlayerID("P1"), result.KillerID)
	s.Equal(model.PlayerID("P3"), result.VictimID)
	s.False(result.TeamEliminated)
	s.False(result.GameComplete)
	s.Empty(result.NewAssignments)

	s.Equal(model.PlayerStatusKilled, s.status("P3"))
	s.Equal(model.AssignmentComplete, s.edgeStatus(edge))
	s.Equal(model.AssignmentExpired, s.edgeStatus(sibling))
	s.ElementsMatch([]string{"P1->P4", "P2->P4", "P4->P1", "P4->P2"}, s.pendingSet())
}

func (s *ServiceSuite) TestLastTeamMemberKillCompletesGame() {
	s.setupTwoPairs()
	s.kill("P1", "P3")

	result := s.kill("P2", "P4")
	s.True(result.TeamEliminated)
	s.True(result.GameComplete)
	s.Empty(result.NewAssignments)
	s.Empty(s.pendingSet())

	game, err := s.registry.GetGame(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(model.GameStatusComplete, game.Status)
}

func (s *ServiceSuite) TestReportKillTwiceFailsWithInvalidState() {
	s.setupTwoPairs()
	edge := s.edgeID("P1", "P3")

	_, err := s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, edge)
	s.Require().NoError(err)

	_, err = s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, edge)
	s.ErrorIs(err, model.ErrInvalidEdgeState)
	s.ErrorIs(err, model.ErrInvalidState)
}

func (s *ServiceSuite) TestFullEliminationTransfersTarget() {
	// A -> B -> C -> A
	s.fixture.Pair(gameID, "a1", "a2")
	s.fixture.Pair(gameID, "b1", "b2")
	s.fixture.Pair(gameID, "c1", "c2")
	s.seed(model.Team{"a1", "a2"}, model.Team{"b1", "b2"}, model.Team{"c1", "c2"})

	s.kill("a1", "b1")
	result := s.kill("a2", "b2")

	s.True(result.TeamEliminated)
	s.False(result.GameComplete)
	s.ElementsMatch([]string{"a1->c1", "a1->c2", "a2->c1", "a2->c2"}, testutil.EdgeSet(result.NewAssignments))
	s.ElementsMatch([]string{
		"a1->c1", "a1->c2", "a2->c1", "a2->c2",
		"c1->a1", "c1->a2", "c2->a1", "c2->a2",
	}, s.pendingSet())
}

func (s *ServiceSuite) TestSoloVictimIsEliminatedByOneKill() {
	s.fixture.Player(gameID, "a")
	s.fixture.Player(gameID, "b")
	s.fixture.Player(gameID, "c")
	s.seed(model.Team{"a"}, model.Team{"b"}, model.Team{"c"})

	result := s.kill("a", "b")
	s.True(result.TeamEliminated)
	s.False(result.GameComplete)
	s.Equal([]string{"a->c"}, testutil.EdgeSet(result.NewAssignments))
	s.ElementsMatch([]string{"a->c", "c->a"}, s.pendingSet())

	result = s.kill("c", "a")
	s.True(result.GameComplete)
	s.Empty(result.NewAssignments)
}

func (s *ServiceSuite) TestSurvivorOfPartialTeamReceivesTransfer() {
	s.fixture.Pair(gameID, "a1", "a2")
	s.fixture.Player(gameID, "b")
	s.fixture.Pair(gameID, "c1", "c2")
	s.seed(model.Team{"a1", "a2"}, model.Team{"b"}, model.Team{"c1", "c2"})

	// c1 loses a2 from team A first
	s.kill("c1", "a2")
	result := s.kill("a1", "b")

	s.True(result.TeamEliminated)
	s.ElementsMatch([]string{"a1->c1", "a1->c2"}, testutil.EdgeSet(result.NewAssignments))
}

func (s *ServiceSuite) TestEliminatedTeamWithoutTargetsLeavesKillerTargetless() {
	s.fixture.Player(gameID, "a")
	s.fixture.Player(gameID, "b")
	s.fixture.Player(gameID, "c")
	s.fixture.Edge(gameID, "ab", "a", "b")
	s.fixture.Edge(gameID, "ca", "c", "a")

	result, err := s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, "ab")
	s.Require().NoError(err)
	s.True(result.TeamEliminated)
	s.False(result.GameComplete)
	s.Empty(result.NewAssignments)
	s.Equal([]string{"c->a"}, s.pendingSet())
}

func (s *ServiceSuite) TestSafeIsImmuneByDefault() {
	s.setupTwoPairs()
	s.fixture.SetStatus(gameID, "P3", model.PlayerStatusSafe)

	_, err := s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, s.edgeID("P1", "P3"))
	s.ErrorIs(err, model.ErrInvalidPlayerState)
	s.Equal(model.PlayerStatusSafe, s.status("P3"))

	s.fixture.SetStatus(gameID, "P1", model.PlayerStatusSafe)
	_, err = s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, s.edgeID("P1", "P4"))
	s.ErrorIs(err, model.ErrInvalidPlayerState)
}

func (s *ServiceSuite) TestSafeIsTargetableWhenConfigured() {
	s.fixture.Game(gameID, model.GameStatusActive, model.GameConfig{
		PairingPolicy:    model.PairingSoloAllowed,
		SafeIsTargetable: true,
	})
	s.setupTwoPairs()
	s.fixture.SetStatus(gameID, "P3", model.PlayerStatusSafe)

	result := s.kill("P1", "P3")
	s.Equal(model.PlayerID("P3"), result.VictimID)
	s.Equal(model.PlayerStatusKilled, s.status("P3"))
}

func (s *ServiceSuite) TestReportKillRequiresAdmin() {
	s.setupTwoPairs()
	_, err := s.service.ReportKill(s.ctx, gameID, "u-P1", s.edgeID("P1", "P3"))
	s.ErrorIs(err, model.ErrNotAdmin)
	s.ErrorIs(err, model.ErrUnauthorized)
}

func (s *ServiceSuite) TestReportKillRequiresActiveGame() {
	s.fixture.Game(gameID, model.GameStatusRegistration, model.DefaultGameConfig())
	s.fixture.Player(gameID, "a")
	s.fixture.Player(gameID, "b")
	s.fixture.Edge(gameID, "ab", "a", "b")

	_, err := s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, "ab")
	s.ErrorIs(err, model.ErrGameNotActive)
}

func (s *ServiceSuite) TestReportKillUnknownAssignment() {
	_, err := s.service.ReportKill(s.ctx, gameID, testutil.AdminUserID, "missing")
	s.ErrorIs(err, model.ErrAssignmentNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *ServiceSuite) TestFailedWriteRollsBackKill() {
	s.setupTwoPairs()
	edge := s.edgeID("P1", "P3")

	failing := &failingStorage{Storage: s.storage, failOnSave: 2}
	logger := testutil.NopLogger()
	retrier := retry.New(retry.DefaultPolicy(), logger)
	svc := New(failing, s.registry, retrier, mocks.NewMockClock(time.Now()), mocks.NewMockIDGenerator("x"), logger)

	_, err := svc.ReportKill(s.ctx, gameID, testutil.AdminUserID, edge)
	s.ErrorIs(err, errInjected)

	s.Equal(model.PlayerStatusAlive, s.status("P3"))
	s.Equal(model.AssignmentPending, s.edgeStatus(edge))
	s.Len(s.pendingSet(), 8)
}

func (s *ServiceSuite) TestPendingEdgesOfAPlayerStayInOneTeam() {
	for _, pair := range [][2]model.PlayerID{{"a1", "a2"}, {"b1", "b2"}, {"c1", "c2"}, {"d1", "d2"}} {
		s.fixture.Pair(gameID, pair[0], pair[1])
	}
	s.fixture.Player(gameID, "e")
	s.seed(model.Team{"a1", "a2"}, model.Team{"b1", "b2"}, model.Team{"c1", "c2"}, model.Team{"d1", "d2"}, model.Team{"e"})

	partner := map[model.PlayerID]model.PlayerID{
		"a1": "a2", "a2": "a1", "b1": "b2", "b2": "b1",
		"c1": "c2", "c2": "c1", "d1": "d2", "d2": "d1",
	}
	sameTeam := func(x, y model.PlayerID) bool { return x == y || partner[x] == y }

	// The last kill eliminates team B and hands its targets to team A
	for _, k := range [][2]model.PlayerID{{"a1", "b1"}, {"c2", "d1"}, {"e", "a2"}, {"a1", "b2"}} {
		s.kill(k[0], k[1])

		pending, err := s.storage.ListAssignments(s.ctx, gameID, model.AssignmentPending)
		s.Require().NoError(err)
		targetOf := map[model.PlayerID]model.PlayerID{}
		pairs := map[[2]model.PlayerID]int{}
		for _, a := range pending {
			s.NotEqual(a.FromPlayer, a.ToPlayer)
			s.False(sameTeam(a.FromPlayer, a.ToPlayer))
			s.True(s.status(a.FromPlayer).IsLive())
			s.True(s.status(a.ToPlayer).IsLive())
			if prev, ok := targetOf[a.FromPlayer]; ok {
				s.True(sameTeam(prev, a.ToPlayer), "%s hunts two teams", a.FromPlayer)
			}
			targetOf[a.FromPlayer] = a.ToPlayer
			pairs[[2]model.PlayerID{a.FromPlayer, a.ToPlayer}]++
		}
		for pair, n := range pairs {
			s.Equal(1, n, "duplicate pending edge %v", pair)
		}
	}
}

func (s *ServiceSuite) TestCompletionFailureIsReturnedWithCommittedKill() {
	s.setupTwoPairs()
	s.kill("P1", "P3")

	logger := testutil.NopLogger()
	clk := mocks.NewMockClock(time.Now())
	reg := registry.New(&failingGameStorage{Storage: s.storage}, clk, mocks.NewMockIDGenerator("game"), logger)
	svc := New(s.storage, reg, retry.New(retry.DefaultPolicy(), logger), clk, mocks.NewMockIDGenerator("x"), logger)

	result, err := svc.ReportKill(s.ctx, gameID, testutil.AdminUserID, s.edgeID("P2", "P4"))
	s.ErrorIs(err, errInjected)
	s.Require().NotNil(result)
	s.True(result.GameComplete)
	s.Equal(model.PlayerStatusKilled, s.status("P4"))

	game, err := s.registry.GetGame(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(model.GameStatusActive, game.Status)
}

func (s *ServiceSuite) TestDisqualifyHandsTargetsToHunter() {
	// a -> b -> c -> a
	s.fixture.Player(gameID, "a")
	s.fixture.Player(gameID, "b")
	s.fixture.Player(gameID, "c")
	s.fixture.Edge(gameID, "ab", "a", "b")
	s.fixture.Edge(gameID, "bc", "b", "c")
	s.fixture.Edge(gameID, "ca", "c", "a")

	result, err := s.service.Disqualify(s.ctx, gameID, testutil.AdminUserID, "b")
	s.Require().NoError(err)
	s.Equal(model.PlayerStatusDisqualified, result.Player.Status)
	s.True(result.TeamEliminated)
	s.False(result.GameComplete)
	s.ElementsMatch([]model.AssignmentID{"ab", "bc"}, result.Expired)
	s.Equal([]string{"a->c"}, testutil.EdgeSet(result.NewAssignments))
	s.ElementsMatch([]string{"a->c", "c->a"}, s.pendingSet())

	_, err = s.service.Disqualify(s.ctx, gameID, testutil.AdminUserID, "b")
	s.ErrorIs(err, model.ErrInvalidPlayerState)
}

func (s *ServiceSuite) TestDisqualifyingLastRivalCompletesGame() {
	s.fixture.Player(gameID, "a")
	s.fixture.Player(gameID, "b")
	s.fixture.Player(gameID, "c")
	s.fixture.Edge(gameID, "ab", "a", "b")
	s.fixture.Edge(gameID, "bc", "b", "c")
	s.fixture.Edge(gameID, "ca", "c", "a")

	_, err := s.service.Disqualify(s.ctx, gameID, testutil.AdminUserID, "b")
	s.Require().NoError(err)

	result, err := s.service.Disqualify(s.ctx, gameID, testutil.AdminUserID, "c")
	s.Require().NoError(err)
	s.True(result.TeamEliminated)
	s.True(result.GameComplete)
	s.Empty(result.NewAssignments)
	s.Empty(s.pendingSet())

	game, err := s.registry.GetGame(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(model.GameStatusComplete, game.Status)

	_, err = s.service.Disqualify(s.ctx, gameID, testutil.AdminUserID, "a")
	s.ErrorIs(err, model.ErrGameComplete)
}

func (s *ServiceSuite) TestDisqualifyWithLivePartnerKeepsTeam() {
	s.setupTwoPairs()

	result, err := s.service.Disqualify(s.ctx, gameID, testutil.AdminUserID, "P3")
	s.Require().NoError(err)
	s.False(result.TeamEliminated)
	s.False(result.GameComplete)
	s.Empty(result.NewAssignments)
	s.ElementsMatch([]string{"P1->P4", "P2->P4", "P4->P1", "P4->P2"}, s.pendingSet())
}

func (s *ServiceSuite) TestDisqualifyDuringRegistrationDoesNotComplete() {
	s.fixture.Game(gameID, model.GameStatusRegistration, model.DefaultGameConfig())
	s.fixture.Player(gameID, "a")
	s.fixture.Player(gameID, "b")

	result, err := s.service.Disqualify(s.ctx, gameID, testutil.AdminUserID, "a")
	s.Require().NoError(err)
	s.False(result.GameComplete)

	game, err := s.registry.GetGame(s.ctx, gameID)
	s.Require().NoError(err)
	s.Equal(model.GameStatusRegistration, game.Status)
}

func (s *ServiceSuite) TestDisqualifyRequiresAdmin() {
	s.fixture.Player(gameID, "a")
	_, err := s.service.Disqualify(s.ctx, gameID, "u-a", "a")
	s.ErrorIs(err, model.ErrNotAdmin)
	s.Equal(model.PlayerStatusAlive, s.status("a"))
}

func (s *ServiceSuite) TestToggleSafe() {
	s.setupTwoPairs()
	before := s.pendingSet()

	status, err := s.service.ToggleSafe(s.ctx, gameID, testutil.AdminUserID, "P1")
	s.Require().NoError(err)
	s.Equal(model.PlayerStatusSafe, status)
	s.Equal(before, s.pendingSet())

	status, err = s.service.ToggleSafe(s.ctx, gameID, testutil.AdminUserID, "P1")
	s.Require().NoError(err)
	s.Equal(model.PlayerStatusAlive, status)
}

func (s *ServiceSuite) TestToggleSafeRejectsOutPlayers() {
	s.setupTwoPairs()
	s.kill("P1", "P3")

	_, err := s.service.ToggleSafe(s.ctx, gameID, testutil.AdminUserID, "P3")
	s.ErrorIs(err, model.ErrInvalidPlayerState)

	_, err = s.service.ToggleSafe(s.ctx, gameID, "u-P1", "P1")
	s.ErrorIs(err, model.ErrNotAdmin)
}

var errInjected = errors.New("injected write failure")

// failingGameStorage fails every game write
type failingGameStorage struct {
	storage.Storage
}

func (f *failingGameStorage) SaveGame(context.Context, *model.Game) error {
	return errInjected
}

// failingStorage fails the nth assignment write inside a write region
type failingStorage struct {
	storage.Storage
	failOnSave int
}

func (f *failingStorage) WithGameTx(ctx context.Context, gameID model.GameID, fn func(tx storage.GameStore) error) error {
	return f.Storage.WithGameTx(ctx, gameID, func(tx storage.GameStore) error {
		return fn(&failingTx{GameStore: tx, remaining: f.failOnSave})
	})
}

type failingTx struct {
	storage.GameStore
	remaining int
}

func (t *failingTx) SaveAssignment(ctx context.Context, a *model.TargetAssignment) error {
	t.remaining--
	if t.remaining <= 0 {
		return errInjected
	}
	return t.GameStore.SaveAssignment(ctx, a)
}

// Concurrent reports of the same edge succeed exactly once on every backend
func TestConcurrentKillsOnSameEdge(t *testing.T) {
	backends := map[string]func(t *testing.T) storage.Storage{
		"memory": func(t *testing.T) storage.Storage { return memory.New() },
		"redis": func(t *testing.T) storage.Storage {
			mini := miniredis.RunT(t)
			client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
			st := redis.NewWithClient(client, redis.DefaultConfig())
			t.Cleanup(func() { _ = st.Close() })
			return st
		},
		"sqlite": func(t *testing.T) storage.Storage {
			st, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "kills.db"), BusyTimeout: 5 * time.Second})
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })
			return st
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, open(t))
			h.fixture.Game(gameID, model.GameStatusActive, model.DefaultGameConfig())
			h.fixture.Pair(gameID, "P1", "P2")
			h.fixture.Pair(gameID, "P3", "P4")
			h.fixture.Player(gameID, "P5")
			h.fixture.Edge(gameID, "target", "P1", "P3")
			h.fixture.Edge(gameID, "other", "P2", "P4")

			const reporters = 6
			var wg sync.WaitGroup
			var mu sync.Mutex
			var successes, invalid int
			for range reporters {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := h.service.ReportKill(ctx, gameID, testutil.AdminUserID, "target")
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, model.ErrInvalidEdgeState):
						invalid++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			require.Equal(t, 1, successes)
			require.Equal(t, reporters-1, invalid)

			a, err := h.storage.GetAssignment(ctx, gameID, "target")
			require.NoError(t, err)
			require.Equal(t, model.AssignmentComplete, a.Status)
		})
	}
}
