package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/assassins-go/internal/api/middleware"
	"github.com/mcoot/assassins-go/internal/api/request"
	"github.com/mcoot/assassins-go/internal/api/response"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/assignment"
	"github.com/mcoot/assassins-go/internal/services/elimination"
)

// AssignmentHandler handles target graph endpoints
type AssignmentHandler struct {
	assignment  *assignment.Service
	elimination *elimination.Service
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignment *assignment.Service, elimination *elimination.Service) *AssignmentHandler {
	return &AssignmentHandler{
		assignment:  assignment,
		elimination: elimination,
	}
}

// Reseed handles POST /api/v1/games/{game_id}/assignments/reseed
func (h *AssignmentHandler) Reseed(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.ReseedRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	var policy model.PairingPolicy
	if req.Policy != "" {
		policy, err = model.ParsePairingPolicy(req.Policy)
		if err != nil {
			WriteError(w, err)
			return
		}
	}

	result, err := h.assignment.Reseed(r.Context(), gameID, user.ID, policy)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ReseedFromResult(result))
}

// List handles GET /api/v1/games/{game_id}/assignments
// Query: status=pending,complete filters by edge status
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var statuses []model.AssignmentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := model.ParseAssignmentStatus(strings.TrimSpace(part))
			if err != nil {
				WriteError(w, err)
				return
			}
			statuses = append(statuses, status)
		}
	}

	assignments, err := h.assignment.ListAssignments(r.Context(), gameID, user.ID, statuses...)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AssignmentsFromModel(assignments))
}

// Kill handles POST /api/v1/games/{game_id}/assignments/{assignment_id}/kill
func (h *AssignmentHandler) Kill(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID, err := gameIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	assignmentID, err := model.ParseAssignmentID(mux.Vars(r)["assignment_id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.elimination.ReportKill(r.Context(), gameID, user.ID, assignmentID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.KillFromResult(result))
}
