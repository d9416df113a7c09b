package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/assassins-go/internal/api/apierr"
	"github.com/mcoot/assassins-go/internal/model"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// decodeBody decodes a JSON request body into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return NewInvalidRequestError("Invalid request body")
	}
	return nil
}

// gameIDVar parses the {game_id} path variable
func gameIDVar(r *http.Request) (model.GameID, error) {
	return model.ParseGameID(mux.Vars(r)["game_id"])
}

// playerVars parses the {game_id} and {player_id} path variables
func playerVars(r *http.Request) (model.GameID, model.PlayerID, error) {
	gameID, err := gameIDVar(r)
	if err != nil {
		return "", "", err
	}
	playerID, err := model.ParsePlayerID(mux.Vars(r)["player_id"])
	if err != nil {
		return "", "", err
	}
	return gameID, playerID, nil
}
