package cli

import (
	"github.com/caarlos0/env/v11"
)

// Config holds CLI settings. Flags override the environment.
type Config struct {
	ServerURL string `env:"ASSASSINS_SERVER" envDefault:"http://localhost:8080"`
	UserID    string `env:"ASSASSINS_USER"`
	Output    string `env:"ASSASSINS_OUTPUT" envDefault:"text"`
	Verbose   bool   `env:"ASSASSINS_VERBOSE"`
}

// DefaultConfig returns the configuration from the process environment.
// Unparseable values fall back to the defaults.
func DefaultConfig() *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return &Config{ServerURL: "http://localhost:8080", Output: "text"}
	}
	return &cfg
}
