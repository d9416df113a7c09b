package storage

import (
	"fmt"

	"github.com/mcoot/assassins-go/internal/model"
)

// ValidateAssignment rejects edges no backend may persist
func ValidateAssignment(a *model.TargetAssignment) error {
	if a.ID == "" || a.GameID == "" || a.FromPlayer == "" || a.ToPlayer == "" {
		return fmt.Errorf("%w: assignment_id=%s has empty identifiers", model.ErrUnprocessable, a.ID)
	}
	if a.FromPlayer == a.ToPlayer {
		return fmt.Errorf("%w: assignment_id=%s targets its own player %s", model.ErrUnprocessable, a.ID, a.FromPlayer)
	}
	return nil
}
