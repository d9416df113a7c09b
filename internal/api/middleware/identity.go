package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/mcoot/assassins-go/internal/api/apierr"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/directory"
)

// UserHeader carries the caller's user id, set by an upstream authenticator
const UserHeader = "X-User-ID"

type contextKey string

const userContextKey contextKey = "user"

// Identity resolves the caller named by the X-User-ID header through the
// identity store and rejects requests without a known user
func Identity(users *directory.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(UserHeader)
			if raw == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			userID, err := model.ParseUserID(raw)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			user, err := users.GetUser(r.Context(), userID)
			if errors.Is(err, model.ErrNotFound) {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the authenticated user from the request context
func GetUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// MustGetUser returns the authenticated user or panics
func MustGetUser(ctx context.Context) *model.User {
	user := GetUser(ctx)
	if user == nil {
		panic("no user in context - identity middleware not applied?")
	}
	return user
}
