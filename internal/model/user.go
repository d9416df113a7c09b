package model

import (
	"strings"
	"time"
)

// User is an identity-store account. Users exist independently of games.
type User struct {
	ID          UserID
	Email       string // normalized lower-case, unique
	DisplayName string
	CreatedAt   time.Time
}

// NormalizeEmail trims and lower-cases an email for comparison and indexing
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
