package model

import "slices"

// Team is a derived, non-persisted group of one or two players
type Team []PlayerID

// Contains returns true if the player is a member of the team
func (t Team) Contains(id PlayerID) bool {
	return slices.Contains(t, id)
}
