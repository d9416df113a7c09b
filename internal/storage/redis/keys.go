package redis

import (
	"fmt"

	"github.com/mcoot/assassins-go/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "assassins"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// emailIndexKey returns the Redis key for the email -> user_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, model.NormalizeEmail(email))
}

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// playersKey returns the Redis key for the HASH of players in a game
func playersKey(gameID model.GameID) string {
	return fmt.Sprintf("%s:game:%s:players", keyPrefix, gameID)
}

// assignmentsKey returns the Redis key for the HASH of target assignments in a game
func assignmentsKey(gameID model.GameID) string {
	return fmt.Sprintf("%s:game:%s:assignments", keyPrefix, gameID)
}
