package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/assassins-go/internal/api/apierr"
	"github.com/mcoot/assassins-go/internal/middleware"
)

// Recovery converts panics in API handlers into a JSON INTERNAL_ERROR
// response. Panic details stay in the server log.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
