package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcoot/assassins-go/internal/api/middleware"
	"github.com/mcoot/assassins-go/internal/api/request"
	"github.com/mcoot/assassins-go/internal/api/response"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/assignment"
	"github.com/mcoot/assassins-go/internal/services/elimination"
	"github.com/mcoot/assassins-go/internal/services/registry"
	"github.com/mcoot/assassins-go/internal/services/roster"
)

// PlayerHandler handles player endpoints within a game
type PlayerHandler struct {
	roster      *roster.Service
	registry    *registry.Service
	assignment  *assignment.Service
	elimination *elimination.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(
	roster *roster.Service,
	registry *registry.Service,
	assignment *assignment.Service,
	elimination *elimination.Service,
) *PlayerHandler {
	return &PlayerHandler{
		roster:      roster,
		registry:    registry,
		assignment:  assignment,
		elimination: elimination,
	}
}

// Register handles POST /api/v1/games/{game_id}/players
// The caller registers themselves; repeating the call returns the same player.
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.roster.Register(r.Context(), gameID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// List handles GET /api/v1/games/{game_id}/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	players, err := h.roster.ListPlayers(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayersFromModel(players))
}

// Invite handles POST /api/v1/games/{game_id}/players/{player_id}/invite
func (h *PlayerHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, playerID, err := playerVars(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.InviteRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	toID, err := model.ParsePlayerID(req.ToPlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.roster.Invite(r.Context(), gameID, user.ID, playerID, toID); err != nil {
		WriteError(w, err)
		return
	}

	h.writePlayer(w, r, gameID, playerID)
}

// Accept handles POST /api/v1/games/{game_id}/players/{player_id}/accept
func (h *PlayerHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.roster.Accept)
}

// Reject handles POST /api/v1/games/{game_id}/players/{player_id}/reject
func (h *PlayerHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.roster.Reject)
}

// respond runs an invitation response for the path player against the
// inviter named in the body
func (h *PlayerHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, gameID model.GameID, actorID model.UserID, playerID, inviterID model.PlayerID) error,
) {
	user := middleware.MustGetUser(r.Context())
	gameID, playerID, err := playerVars(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.RespondRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	inviterID, err := model.ParsePlayerID(req.InviterID)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := fn(r.Context(), gameID, user.ID, playerID, inviterID); err != nil {
		WriteError(w, err)
		return
	}

	h.writePlayer(w, r, gameID, playerID)
}

// Safe handles POST /api/v1/games/{game_id}/players/{player_id}/safe
func (h *PlayerHandler) Safe(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, playerID, err := playerVars(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	status, err := h.elimination.ToggleSafe(r.Context(), gameID, user.ID, playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SafeToggle{PlayerID: string(playerID), Status: string(status)})
}

// Disqualify handles POST /api/v1/games/{game_id}/players/{player_id}/disqualify
func (h *PlayerHandler) Disqualify(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, playerID, err := playerVars(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.elimination.Disqualify(r.Context(), gameID, user.ID, playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.DisqualificationFromResult(result))
}

// Assignment handles GET /api/v1/games/{game_id}/players/{player_id}/assignment
// Only the player's own user or a game admin may see their target.
func (h *PlayerHandler) Assignment(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, playerID, err := playerVars(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.roster.GetPlayer(r.Context(), gameID, playerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if player.UserID != user.ID {
		isAdmin, err := h.registry.IsAdmin(r.Context(), gameID, user.ID)
		if err != nil {
			WriteError(w, err)
			return
		}
		if !isAdmin {
			WriteError(w, fmt.Errorf("%w: player_id=%s", model.ErrNotPlayerOwner, playerID))
			return
		}
	}

	targets, err := h.assignment.Targets(r.Context(), gameID, playerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	var current *model.TargetAssignment
	if len(targets) > 0 {
		current = targets[0]
	}

	response.JSON(w, http.StatusOK, response.CurrentTargetFromModel(playerID, current, targets))
}

func (h *PlayerHandler) writePlayer(w http.ResponseWriter, r *http.Request, gameID model.GameID, playerID model.PlayerID) {
	player, err := h.roster.GetPlayer(r.Context(), gameID, playerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}
