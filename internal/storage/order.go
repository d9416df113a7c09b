package storage

import (
	"cmp"
	"slices"

	"github.com/mcoot/assassins-go/internal/model"
)

// SortPlayers orders players by creation time, then id
func SortPlayers(players []*model.Player) {
	slices.SortFunc(players, func(a, b *model.Player) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortAssignments orders assignments by creation time, then id
func SortAssignments(assignments []*model.TargetAssignment) {
	slices.SortFunc(assignments, func(a, b *model.TargetAssignment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// PlayerStatusMatches reports whether status passes the filter (empty filter matches all)
func PlayerStatusMatches(status model.PlayerStatus, filter []model.PlayerStatus) bool {
	return len(filter) == 0 || slices.Contains(filter, status)
}

// AssignmentStatusMatches reports whether status passes the filter (empty filter matches all)
func AssignmentStatusMatches(status model.AssignmentStatus, filter []model.AssignmentStatus) bool {
	return len(filter) == 0 || slices.Contains(filter, status)
}
