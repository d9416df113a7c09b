package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrContention    = errors.New("contention")
	ErrUnprocessable = errors.New("unprocessable")
)

// ErrInvalidID is returned for malformed identifiers or enum values at the boundary
var ErrInvalidID = errors.New("invalid identifier")

// Common errors used across the application
var (
	// Lookup errors
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrGameNotFound       = fmt.Errorf("game %w", ErrNotFound)
	ErrPlayerNotFound     = fmt.Errorf("player %w", ErrNotFound)
	ErrAssignmentNotFound = fmt.Errorf("target assignment %w", ErrNotFound)

	// State errors
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrInvalidState)
	ErrGameNotActive      = fmt.Errorf("%w: game is not active", ErrInvalidState)
	ErrGameNotRegistering = fmt.Errorf("%w: game is not accepting registrations", ErrInvalidState)
	ErrGameComplete       = fmt.Errorf("%w: game is complete", ErrInvalidState)
	ErrInvalidEdgeState   = fmt.Errorf("%w: target assignment is not pending", ErrInvalidState)
	ErrInvalidPlayerState = fmt.Errorf("%w: player status does not allow this transition", ErrInvalidState)
	ErrAlreadyPartnered   = fmt.Errorf("%w: player already has a partner", ErrInvalidState)
	ErrNoInvite           = fmt.Errorf("%w: no pending invitation", ErrInvalidState)
	ErrSelfInvite         = fmt.Errorf("%w: cannot invite yourself", ErrInvalidState)

	// Authorization errors
	ErrNotAdmin       = fmt.Errorf("%w: admin role required", ErrUnauthorized)
	ErrNotPlayerOwner = fmt.Errorf("%w: player belongs to another user", ErrUnauthorized)

	// Concurrency errors
	ErrLockTimeout = fmt.Errorf("%w: timed out waiting for game lock", ErrContention)
	ErrTxConflict  = fmt.Errorf("%w: concurrent write conflict", ErrContention)

	// Structural errors
	ErrNoTeams      = fmt.Errorf("%w: no eligible teams to match", ErrUnprocessable)
	ErrGameOver     = fmt.Errorf("%w: only one team remains", ErrUnprocessable)
	ErrInvalidTeams = fmt.Errorf("%w: teams are malformed", ErrUnprocessable)
)

// KindOf returns the error kind sentinel wrapped by err, or nil if none
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrInvalidState, ErrUnauthorized, ErrContention, ErrUnprocessable} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
