package model

import (
	"fmt"
	"time"
)

// AssignmentStatus is the lifecycle state of a target assignment edge
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentComplete AssignmentStatus = "complete" // target eliminated by FromPlayer
	AssignmentExpired  AssignmentStatus = "expired"  // superseded or an endpoint left play
)

// ParseAssignmentStatus converts a raw string into an AssignmentStatus
func ParseAssignmentStatus(raw string) (AssignmentStatus, error) {
	switch s := AssignmentStatus(raw); s {
	case AssignmentPending, AssignmentComplete, AssignmentExpired:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown assignment status %q", ErrInvalidID, raw)
	}
}

// TargetAssignment is a directed edge: FromPlayer currently hunts ToPlayer.
// Complete and expired edges are immutable history.
type TargetAssignment struct {
	ID         AssignmentID
	GameID     GameID
	FromPlayer PlayerID
	ToPlayer   PlayerID
	Status     AssignmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsPending returns true if the edge is still active
func (a *TargetAssignment) IsPending() bool {
	return a.Status == AssignmentPending
}

// Involves returns true if the player is either endpoint of the edge
func (a *TargetAssignment) Involves(id PlayerID) bool {
	return a.FromPlayer == id || a.ToPlayer == id
}

// Clone returns a copy of the assignment
func (a *TargetAssignment) Clone() *TargetAssignment {
	c := *a
	return &c
}
