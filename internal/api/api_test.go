package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/assassins-go/internal/api"
	"github.com/mcoot/assassins-go/internal/api/apierr"
	"github.com/mcoot/assassins-go/internal/api/middleware"
	"github.com/mcoot/assassins-go/internal/api/response"
	"github.com/mcoot/assassins-go/internal/factory"
	"github.com/mcoot/assassins-go/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	return &testServer{
		t:       t,
		handler: api.NewRouter(app.App, testutil.NopLogger()),
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, userID string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserHeader, userID)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (ts *testServer) createUser(email string) string {
	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{"email": email}, "")
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.User](ts.t, rr).ID
}

func (ts *testServer) createGame(adminID string, body map[string]any) string {
	rr := ts.request(http.MethodPost, "/api/v1/games", body, adminID)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Game](ts.t, rr).ID
}

func (ts *testServer) register(gameID, userID string) string {
	rr := ts.request(http.MethodPost, "/api/v1/games/"+gameID+"/players", nil, userID)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Player](ts.t, rr).ID
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestCreateUser(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{"email": " Alice@Example.com ", "display_name": "Alice"}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	user := decode[response.User](t, rr)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.DisplayName)

	rr = ts.request(http.MethodPost, "/api/v1/users", map[string]string{"email": "alice@example.com"}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeEmailTaken, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/users", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/users", map[string]string{"email": "no-at-sign"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestGameRoutesRequireIdentity(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]string{"name": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/games", map[string]string{"name": "x"}, "ghost")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/games", map[string]string{"name": "x"}, "bad id!")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateAndGetGame(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.createUser("admin@example.com")
	alice := ts.createUser("alice@example.com")

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]any{"name": "Term", "pairing_policy": "nonsense"}, admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	gameID := ts.createGame(admin, map[string]any{
		"name":           "Term",
		"pairing_policy": "strict_pairs",
		"admin_emails":   []string{"Co-Admin@example.com"},
	})

	rr = ts.request(http.MethodGet, "/api/v1/games/"+gameID, nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	game := decode[response.Game](t, rr)
	assert.Equal(t, "registration", game.Status)
	assert.Equal(t, "strict_pairs", game.Config.PairingPolicy)
	assert.Equal(t, []string{"admin@example.com", "co-admin@example.com"}, game.AdminEmails)
	assert.Equal(t, "admin", game.Role)

	rr = ts.request(http.MethodGet, "/api/v1/games/"+gameID, nil, alice)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "none", decode[response.Game](t, rr).Role)

	rr = ts.request(http.MethodGet, "/api/v1/games/missing", nil, admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeGameNotFound, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/games/"+gameID+"/start", nil, alice)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotAdmin, errorCode(t, rr))
}

func TestGameFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.createUser("admin@example.com")
	alice := ts.createUser("alice@example.com")
	bob := ts.createUser("bob@example.com")
	carol := ts.createUser("carol@example.com")

	gameID := ts.createGame(admin, map[string]any{"name": "Spring"})
	base := "/api/v1/games/" + gameID

	pa := ts.register(gameID, alice)
	pb := ts.register(gameID, bob)
	pc := ts.register(gameID, carol)
	// Registering twice returns the same player
	assert.Equal(t, pa, ts.register(gameID, alice))

	// Alice and Bob pair up; Carol cannot act for Alice
	rr := ts.request(http.MethodPost, base+"/players/"+pa+"/invite", map[string]string{"to_player_id": pb}, carol)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotPlayerOwner, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/players/"+pa+"/invite", map[string]string{"to_player_id": pb}, alice)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{pb}, decode[response.Player](t, rr).Invited)

	rr = ts.request(http.MethodPost, base+"/players/"+pb+"/accept", map[string]string{"inviter_id": pa}, bob)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	accepted := decode[response.Player](t, rr)
	require.NotNil(t, accepted.PartnerID)
	assert.Equal(t, pa, *accepted.PartnerID)

	rr = ts.request(http.MethodGet, base+"/teams", nil, carol)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[response.Teams](t, rr).Teams, 2)

	// Start and seed
	rr = ts.request(http.MethodPost, base+"/start", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "active", decode[response.Game](t, rr).Status)

	rr = ts.request(http.MethodPost, base+"/players/"+pc+"/invite", map[string]string{"to_player_id": pa}, carol)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeGameNotRegistering, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/assignments/reseed", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	seeded := decode[response.Reseed](t, rr)
	// {alice,bob} and {carol}: two edges each way
	assert.Len(t, seeded.Assignments, 4)

	// Carol's target is visible to Carol and the admin only
	rr = ts.request(http.MethodGet, base+"/players/"+pc+"/assignment", nil, carol)
	require.Equal(t, http.StatusOK, rr.Code)
	target := decode[response.CurrentTarget](t, rr)
	require.NotNil(t, target.Target)
	assert.ElementsMatch(t, []string{pa, pb}, target.Targets)

	rr = ts.request(http.MethodGet, base+"/players/"+pc+"/assignment", nil, alice)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodGet, base+"/assignments", nil, alice)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodGet, base+"/assignments?status=pending", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]response.Assignment](t, rr), 4)

	// Carol kills Alice; Bob's team survives
	var edge string
	for _, a := range seeded.Assignments {
		if a.FromPlayer == pc && a.ToPlayer == pa {
			edge = a.ID
		}
	}
	require.NotEmpty(t, edge)

	rr = ts.request(http.MethodPost, base+"/assignments/"+edge+"/kill", nil, alice)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodPost, base+"/assignments/"+edge+"/kill", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	kill := decode[response.Kill](t, rr)
	assert.Equal(t, pc, kill.KillerID)
	assert.Equal(t, pa, kill.VictimID)
	assert.False(t, kill.TeamEliminated)
	assert.False(t, kill.GameComplete)

	rr = ts.request(http.MethodPost, base+"/assignments/"+edge+"/kill", nil, admin)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeInvalidEdgeState, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/assignments/nope/kill", nil, admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeTargetNotFound, errorCode(t, rr))

	// Carol kills Bob and the game ends
	rr = ts.request(http.MethodGet, base+"/players/"+pc+"/assignment", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	target = decode[response.CurrentTarget](t, rr)
	require.NotNil(t, target.Target)
	assert.Equal(t, pb, target.Target.ToPlayer)

	rr = ts.request(http.MethodPost, base+"/assignments/"+target.Target.ID+"/kill", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	kill = decode[response.Kill](t, rr)
	assert.True(t, kill.TeamEliminated)
	assert.True(t, kill.GameComplete)

	rr = ts.request(http.MethodGet, base, nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	game := decode[response.Game](t, rr)
	assert.Equal(t, "complete", game.Status)
	assert.NotNil(t, game.CompletedAt)

	rr = ts.request(http.MethodGet, base+"/leaderboard", nil, bob)
	require.Equal(t, http.StatusOK, rr.Code)
	board := decode[[]response.LeaderboardEntry](t, rr)
	require.Len(t, board, 3)
	assert.Equal(t, pc, board[0].PlayerID)
	assert.Equal(t, 2, board[0].Kills)
	assert.Equal(t, 1, board[0].Rank)
	require.NotNil(t, board[1].KilledBy)
	assert.Equal(t, pc, *board[1].KilledBy)
}

func TestSafeAndDisqualify(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.createUser("admin@example.com")
	alice := ts.createUser("alice@example.com")
	bob := ts.createUser("bob@example.com")
	carol := ts.createUser("carol@example.com")

	gameID := ts.createGame(admin, map[string]any{"name": "Spring"})
	base := "/api/v1/games/" + gameID
	pa := ts.register(gameID, alice)
	ts.register(gameID, bob)
	ts.register(gameID, carol)

	rr := ts.request(http.MethodPost, base+"/players/"+pa+"/safe", nil, alice)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodPost, base+"/players/"+pa+"/safe", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "safe", decode[response.SafeToggle](t, rr).Status)

	rr = ts.request(http.MethodGet, base+"/teams?status=alive", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[response.Teams](t, rr).Teams, 2)

	rr = ts.request(http.MethodGet, base+"/teams?status=zombie", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, base+"/players/"+pa+"/disqualify", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "disqualified", decode[response.Player](t, rr).Status)

	rr = ts.request(http.MethodPost, base+"/players/"+pa+"/safe", nil, admin)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeInvalidPlayerState, errorCode(t, rr))
}

func TestDisqualifyLastRivalCompletesGame(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.createUser("admin@example.com")
	alice := ts.createUser("alice@example.com")
	bob := ts.createUser("bob@example.com")

	gameID := ts.createGame(admin, map[string]any{"name": "Duel"})
	base := "/api/v1/games/" + gameID
	ts.register(gameID, alice)
	pb := ts.register(gameID, bob)

	rr := ts.request(http.MethodPost, base+"/start", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, base+"/assignments/reseed", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodPost, base+"/players/"+pb+"/disqualify", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	dq := decode[response.Disqualification](t, rr)
	assert.Equal(t, "disqualified", dq.Status)
	assert.True(t, dq.TeamEliminated)
	assert.True(t, dq.GameComplete)
	assert.Len(t, dq.Expired, 2)

	rr = ts.request(http.MethodGet, base, nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "complete", decode[response.Game](t, rr).Status)
}

func TestReseedWithOneTeam(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.createUser("admin@example.com")
	alice := ts.createUser("alice@example.com")

	gameID := ts.createGame(admin, map[string]any{"name": "Tiny"})
	ts.register(gameID, alice)

	rr := ts.request(http.MethodPost, "/api/v1/games/"+gameID+"/assignments/reseed", map[string]string{"policy": "solo_allowed"}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, apierr.CodeGameOver, errorCode(t, rr))
}
