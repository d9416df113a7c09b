package model

import (
	"fmt"
	"slices"
	"time"
)

// GameStatus represents the lifecycle phase of a game
type GameStatus string

const (
	GameStatusRegistration GameStatus = "registration" // players joining and pairing up
	GameStatusActive       GameStatus = "active"       // kills are being reported
	GameStatusComplete     GameStatus = "complete"     // at most one team remains
)

// PairingPolicy controls how unpartnered players are treated by team resolution
type PairingPolicy string

const (
	PairingSoloAllowed PairingPolicy = "solo_allowed"
	PairingStrictPairs PairingPolicy = "strict_pairs"
)

// ParsePairingPolicy converts a raw string into a PairingPolicy
func ParsePairingPolicy(raw string) (PairingPolicy, error) {
	switch p := PairingPolicy(raw); p {
	case PairingSoloAllowed, PairingStrictPairs:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown pairing policy %q", ErrInvalidID, raw)
	}
}

// GameConfig holds rule settings for a game
type GameConfig struct {
	PairingPolicy PairingPolicy

	// SafeIsTargetable allows safe players on either end of a kill
	SafeIsTargetable bool
}

// DefaultGameConfig returns the default game configuration
func DefaultGameConfig() GameConfig {
	return GameConfig{
		PairingPolicy:    PairingSoloAllowed,
		SafeIsTargetable: false,
	}
}

// Game is a single elimination game
type Game struct {
	ID          GameID
	Name        string
	Status      GameStatus
	AdminEmails []string // normalized
	Config      GameConfig
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// IsAdminEmail returns true if the email is on the game's admin list
func (g *Game) IsAdminEmail(email string) bool {
	return slices.Contains(g.AdminEmails, NormalizeEmail(email))
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	c.AdminEmails = slices.Clone(g.AdminEmails)
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Role is the capability a user holds within a game
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
	RoleNone   Role = "none"
)
