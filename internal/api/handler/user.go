package handler

import (
	"net/http"

	"github.com/mcoot/assassins-go/internal/api/request"
	"github.com/mcoot/assassins-go/internal/api/response"
	"github.com/mcoot/assassins-go/internal/services/directory"
)

// UserHandler handles identity endpoints
type UserHandler struct {
	directory *directory.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(directory *directory.Service) *UserHandler {
	return &UserHandler{directory: directory}
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Email == "" {
		WriteError(w, NewInvalidRequestError("email is required"))
		return
	}

	user, err := h.directory.CreateUser(r.Context(), req.Email, req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.UserFromModel(user))
}
