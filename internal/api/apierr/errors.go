package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/assassins-go/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotAdmin           = "NOT_ADMIN"
	CodeNotPlayerOwner     = "NOT_PLAYER_OWNER"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeTargetNotFound     = "TARGET_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeGameNotActive      = "GAME_NOT_ACTIVE"
	CodeGameNotRegistering = "GAME_NOT_REGISTERING"
	CodeGameComplete       = "GAME_COMPLETE"
	CodeInvalidEdgeState   = "INVALID_EDGE_STATE"
	CodeInvalidPlayerState = "INVALID_PLAYER_STATE"
	CodeInvalidState       = "INVALID_STATE"
	CodeContention         = "CONTENTION"
	CodeNoTeams            = "NO_TEAMS"
	CodeGameOver           = "GAME_OVER"
	CodeInvalidTeams       = "INVALID_TEAMS"
	CodeUnprocessable      = "UNPROCESSABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// specific maps a sentinel to its stable code; the status comes from its kind
var specific = []struct {
	err  error
	code string
}{
	{model.ErrUserNotFound, CodeUserNotFound},
	{model.ErrGameNotFound, CodeGameNotFound},
	{model.ErrPlayerNotFound, CodePlayerNotFound},
	{model.ErrAssignmentNotFound, CodeTargetNotFound},
	{model.ErrEmailTaken, CodeEmailTaken},
	{model.ErrGameNotActive, CodeGameNotActive},
	{model.ErrGameNotRegistering, CodeGameNotRegistering},
	{model.ErrGameComplete, CodeGameComplete},
	{model.ErrInvalidEdgeState, CodeInvalidEdgeState},
	{model.ErrInvalidPlayerState, CodeInvalidPlayerState},
	{model.ErrNotAdmin, CodeNotAdmin},
	{model.ErrNotPlayerOwner, CodeNotPlayerOwner},
	{model.ErrNoTeams, CodeNoTeams},
	{model.ErrGameOver, CodeGameOver},
	{model.ErrInvalidTeams, CodeInvalidTeams},
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	if errors.Is(err, model.ErrInvalidID) {
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	}

	status, code := http.StatusInternalServerError, CodeInternalError
	switch model.KindOf(err) {
	case model.ErrNotFound:
		status, code = http.StatusNotFound, CodeNotFound
	case model.ErrInvalidState:
		status, code = http.StatusConflict, CodeInvalidState
	case model.ErrUnauthorized:
		status, code = http.StatusForbidden, CodeUnauthorized
	case model.ErrContention:
		status, code = http.StatusServiceUnavailable, CodeContention
	case model.ErrUnprocessable:
		status, code = http.StatusUnprocessableEntity, CodeUnprocessable
	default:
		return &httpError{status, APIError{code, "Internal server error"}}
	}

	for _, s := range specific {
		if errors.Is(err, s.err) {
			code = s.code
			break
		}
	}
	return &httpError{status, APIError{code, err.Error()}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
