package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/assassins-go/internal/api/handler"
	"github.com/mcoot/assassins-go/internal/api/middleware"
	"github.com/mcoot/assassins-go/internal/factory"
	rootmiddleware "github.com/mcoot/assassins-go/internal/middleware"
)

// NewRouter creates a new API router with all routes configured
func NewRouter(app *factory.App, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	userHandler := handler.NewUserHandler(app.Directory)
	gameHandler := handler.NewGameHandler(app.Registry, app.Teams, app.Leaderboard)
	playerHandler := handler.NewPlayerHandler(app.Roster, app.Registry, app.Assignment, app.Elimination)
	assignmentHandler := handler.NewAssignmentHandler(app.Assignment, app.Elimination)

	// Create middleware
	identityMiddleware := middleware.Identity(app.Directory)
	loggingMiddleware := rootmiddleware.Logging(logger)
	recoveryMiddleware := middleware.Recovery(logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Unauthenticated routes
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/users", userHandler.Create).Methods(http.MethodPost)

	// Game routes (all require a known caller)
	games := api.PathPrefix("/games").Subrouter()
	games.Use(identityMiddleware)
	games.HandleFunc("", gameHandler.Create).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}", gameHandler.Get).Methods(http.MethodGet)
	games.HandleFunc("/{game_id}/start", gameHandler.Start).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}/teams", gameHandler.Teams).Methods(http.MethodGet)
	games.HandleFunc("/{game_id}/leaderboard", gameHandler.Leaderboard).Methods(http.MethodGet)

	// Player routes
	games.HandleFunc("/{game_id}/players", playerHandler.Register).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}/players", playerHandler.List).Methods(http.MethodGet)
	games.HandleFunc("/{game_id}/players/{player_id}/invite", playerHandler.Invite).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}/players/{player_id}/accept", playerHandler.Accept).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}/players/{player_id}/reject", playerHandler.Reject).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}/players/{player_id}/safe", playerHandler.Safe).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}/players/{player_id}/disqualify", playerHandler.Disqualify).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}/players/{player_id}/assignment", playerHandler.Assignment).Methods(http.MethodGet)

	// Target graph routes
	games.HandleFunc("/{game_id}/assignments", assignmentHandler.List).Methods(http.MethodGet)
	games.HandleFunc("/{game_id}/assignments/reseed", assignmentHandler.Reseed).Methods(http.MethodPost)
	games.HandleFunc("/{game_id}/assignments/{assignment_id}/kill", assignmentHandler.Kill).Methods(http.MethodPost)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
