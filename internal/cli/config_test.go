package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigFromEnvironment(t *testing.T) {
	t.Setenv("ASSASSINS_SERVER", "http://game.example:9000")
	t.Setenv("ASSASSINS_USER", "u-42")
	t.Setenv("ASSASSINS_VERBOSE", "true")

	cfg := DefaultConfig()
	assert.Equal(t, "http://game.example:9000", cfg.ServerURL)
	assert.Equal(t, "u-42", cfg.UserID)
	assert.Equal(t, "text", cfg.Output)
	assert.True(t, cfg.Verbose)
}

func TestDefaultConfigFallsBackOnBadValues(t *testing.T) {
	t.Setenv("ASSASSINS_VERBOSE", "sometimes")

	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.False(t, cfg.Verbose)
}
