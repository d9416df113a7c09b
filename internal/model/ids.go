package model

import "fmt"

// GameID uniquely identifies a game
type GameID string

// UserID identifies an account in the identity store
type UserID string

// PlayerID identifies one user's participation in one game
type PlayerID string

// AssignmentID identifies a single target assignment edge
type AssignmentID string

const maxIDLength = 64

// ParseGameID validates a raw game identifier from an untrusted boundary
func ParseGameID(raw string) (GameID, error) {
	if err := validateID("game", raw); err != nil {
		return "", err
	}
	return GameID(raw), nil
}

// ParseUserID validates a raw user identifier from an untrusted boundary
func ParseUserID(raw string) (UserID, error) {
	if err := validateID("user", raw); err != nil {
		return "", err
	}
	return UserID(raw), nil
}

// ParsePlayerID validates a raw player identifier from an untrusted boundary
func ParsePlayerID(raw string) (PlayerID, error) {
	if err := validateID("player", raw); err != nil {
		return "", err
	}
	return PlayerID(raw), nil
}

// ParseAssignmentID validates a raw assignment identifier from an untrusted boundary
func ParseAssignmentID(raw string) (AssignmentID, error) {
	if err := validateID("assignment", raw); err != nil {
		return "", err
	}
	return AssignmentID(raw), nil
}

// validateID accepts ASCII letters, digits, '-' and '_'
func validateID(kind, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s id is required", ErrInvalidID, kind)
	}
	if len(raw) > maxIDLength {
		return fmt.Errorf("%w: %s id is longer than %d characters", ErrInvalidID, kind, maxIDLength)
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %s id contains %q", ErrInvalidID, kind, r)
		}
	}
	return nil
}
