package handler

import (
	"net/http"
	"strings"

	"github.com/mcoot/assassins-go/internal/api/middleware"
	"github.com/mcoot/assassins-go/internal/api/request"
	"github.com/mcoot/assassins-go/internal/api/response"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/leaderboard"
	"github.com/mcoot/assassins-go/internal/services/registry"
	"github.com/mcoot/assassins-go/internal/services/teams"
)

// GameHandler handles game lifecycle and read-model endpoints
type GameHandler struct {
	registry    *registry.Service
	teams       *teams.Service
	leaderboard *leaderboard.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(registry *registry.Service, teams *teams.Service, leaderboard *leaderboard.Service) *GameHandler {
	return &GameHandler{
		registry:    registry,
		teams:       teams,
		leaderboard: leaderboard,
	}
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	config := model.DefaultGameConfig()
	if req.PairingPolicy != "" {
		policy, err := model.ParsePairingPolicy(req.PairingPolicy)
		if err != nil {
			WriteError(w, err)
			return
		}
		config.PairingPolicy = policy
	}
	config.SafeIsTargetable = req.SafeIsTargetable

	game, err := h.registry.CreateGame(r.Context(), user.ID, req.Name, config, req.AdminEmails)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GameFromModel(game, model.RoleAdmin))
}

// Get handles GET /api/v1/games/{game_id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	game, err := h.registry.GetGame(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}
	role, err := h.registry.RoleFor(r.Context(), gameID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(game, role))
}

// Start handles POST /api/v1/games/{game_id}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	game, err := h.registry.StartGame(r.Context(), gameID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(game, model.RoleAdmin))
}

// Teams handles GET /api/v1/games/{game_id}/teams
// Query: status=alive,safe (defaults to live statuses), policy=strict_pairs
// (defaults to the game's policy)
func (h *GameHandler) Teams(w http.ResponseWriter, r *http.Request) {
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var eligible []model.PlayerStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := model.ParsePlayerStatus(strings.TrimSpace(part))
			if err != nil {
				WriteError(w, err)
				return
			}
			eligible = append(eligible, status)
		}
	}
	var policy model.PairingPolicy
	if raw := r.URL.Query().Get("policy"); raw != "" {
		policy, err = model.ParsePairingPolicy(raw)
		if err != nil {
			WriteError(w, err)
			return
		}
	}

	res, err := h.teams.ResolveTeams(r.Context(), gameID, eligible, policy)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TeamsFromResolution(res))
}

// Leaderboard handles GET /api/v1/games/{game_id}/leaderboard
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.leaderboard.Leaderboard(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(entries))
}
