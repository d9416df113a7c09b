package model

import (
	"fmt"
	"slices"
	"time"
)

// PlayerStatus is the lifecycle state of a player within a game
type PlayerStatus string

const (
	PlayerStatusAlive        PlayerStatus = "alive"
	PlayerStatusSafe         PlayerStatus = "safe" // toggles back to alive
	PlayerStatusKilled       PlayerStatus = "killed"
	PlayerStatusDisqualified PlayerStatus = "disqualified"
)

// LiveStatuses are the statuses of players still in play
func LiveStatuses() []PlayerStatus {
	return []PlayerStatus{PlayerStatusAlive, PlayerStatusSafe}
}

// IsLive returns true for alive and safe players
func (s PlayerStatus) IsLive() bool {
	return s == PlayerStatusAlive || s == PlayerStatusSafe
}

// IsOut returns true for terminal statuses
func (s PlayerStatus) IsOut() bool {
	return s == PlayerStatusKilled || s == PlayerStatusDisqualified
}

// ParsePlayerStatus converts a raw string into a PlayerStatus
func ParsePlayerStatus(raw string) (PlayerStatus, error) {
	switch s := PlayerStatus(raw); s {
	case PlayerStatusAlive, PlayerStatusSafe, PlayerStatusKilled, PlayerStatusDisqualified:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown player status %q", ErrInvalidID, raw)
	}
}

// Player represents a user's participation in a specific game
type Player struct {
	ID     PlayerID
	GameID GameID
	UserID UserID
	Status PlayerStatus

	// TeamPartnerID is symmetric once accepted; empty when unpartnered
	TeamPartnerID PlayerID

	// Pending partner invitations
	Invited   []PlayerID // players this player has invited
	InvitedBy []PlayerID // players who have invited this player

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPartner returns true if the player has an accepted partner
func (p *Player) HasPartner() bool {
	return p.TeamPartnerID != ""
}

// HasInviteFrom returns true if the given player has a pending invite to this player
func (p *Player) HasInviteFrom(inviter PlayerID) bool {
	return slices.Contains(p.InvitedBy, inviter)
}

// Clone returns a deep copy so callers can mutate without aliasing stored state
func (p *Player) Clone() *Player {
	c := *p
	c.Invited = slices.Clone(p.Invited)
	c.InvitedBy = slices.Clone(p.InvitedBy)
	return &c
}
