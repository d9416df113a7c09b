package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := LoadFrom(map[string]string{})
	s.Require().NoError(err)
	s.Equal("0.0.0.0", cfg.HTTPHost)
	s.Equal(8080, cfg.HTTPPort)
	s.Equal("memory", cfg.StorageType)
	s.Equal(2*time.Second, cfg.LockTimeout)
	s.Equal(5, cfg.RetryMaxAttempts)
	s.Equal(slog.LevelInfo, cfg.SlogLevel())
}

func (s *ConfigSuite) TestFromEnvironment() {
	cfg, err := LoadFrom(map[string]string{
		"HTTP_PORT":    "9090",
		"STORAGE_TYPE": "sqlite",
		"SQLITE_PATH":  "/tmp/x.db",
		"LOCK_TIMEOUT": "500ms",
		"LOG_LEVEL":    "DEBUG",
	})
	s.Require().NoError(err)
	s.Equal(9090, cfg.HTTPPort)
	s.Equal("sqlite", cfg.StorageType)
	s.Equal("/tmp/x.db", cfg.SQLitePath)
	s.Equal(500*time.Millisecond, cfg.LockTimeout)
	s.Equal(slog.LevelDebug, cfg.SlogLevel())
}

func (s *ConfigSuite) TestLoadReadsProcessEnvironment() {
	s.T().Setenv("HTTP_PORT", "7070")
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(7070, cfg.HTTPPort)
}

func (s *ConfigSuite) TestRedisRequiresURL() {
	_, err := LoadFrom(map[string]string{"STORAGE_TYPE": "redis"})
	s.Error(err)

	cfg, err := LoadFrom(map[string]string{
		"STORAGE_TYPE": "redis",
		"REDIS_URL":    "redis://localhost:6379/0",
	})
	s.Require().NoError(err)
	s.Equal("redis://localhost:6379/0", cfg.RedisURL)
}

func (s *ConfigSuite) TestRejectsInvalidValues() {
	for name, environ := range map[string]map[string]string{
		"unknown storage": {"STORAGE_TYPE": "mongo"},
		"bad port":        {"HTTP_PORT": "not-a-port"},
		"port range":      {"HTTP_PORT": "70000"},
		"retry attempts":  {"RETRY_MAX_ATTEMPTS": "0"},
	} {
		_, err := LoadFrom(environ)
		s.Error(err, name)
	}
}
