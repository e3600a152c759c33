// Package config loads runtime settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings shared by every frontend.
type Config struct {
	Environment string `env:"TALEWEAVER_ENV" envDefault:"development"`
	LogLevelRaw string `env:"TALEWEAVER_LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"TALEWEAVER_LOG_FILE"`
	Seed        int64  `env:"TALEWEAVER_SEED" envDefault:"0"`
	SaveDir     string `env:"TALEWEAVER_SAVE_DIR"`
	Plain       bool   `env:"TALEWEAVER_PLAIN" envDefault:"false"`
	Wrap        int    `env:"TALEWEAVER_WRAP" envDefault:"80"`

	LogLevel slog.Level `env:"-"`
}

// Load reads .env when present, then the environment. A missing .env is
// not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = ParseLogLevel(cfg.LogLevelRaw)
	if cfg.SaveDir == "" {
		cfg.SaveDir = defaultSaveDir()
	}
	if cfg.Wrap < 20 {
		cfg.Wrap = 20
	}
	return cfg, nil
}

// ParseLogLevel maps a level name to slog; unknown names are info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSaveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taleweaver", "saves")
	}
	return filepath.Join(home, ".taleweaver", "saves")
}
