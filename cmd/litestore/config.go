package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/pkg/litestore"
)

// Config represents the litestore.yaml configuration file.
type Config struct {
	Dir         string        `yaml:"dir"`
	Identifier  string        `yaml:"identifier"`
	LogLevel    string        `yaml:"log_level"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// loadConfig loads configuration from file, env vars, and CLI flags.
// Precedence: CLI flags > env vars > config file > defaults
func loadConfig(g *globals) (*Config, error) {
	cfg := &Config{
		Dir:        ".",
		Identifier: litestore.DefaultIdentifier,
		LogLevel:   "warn",
	}

	if data, err := os.ReadFile(g.configFile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.Dir = expandEnvVars(cfg.Dir)
	}

	if env := os.Getenv("LITESTORE_DIR"); env != "" {
		cfg.Dir = env
	}
	if env := os.Getenv("LITESTORE_IDENTIFIER"); env != "" {
		cfg.Identifier = env
	}

	if g.dir != "" {
		cfg.Dir = g.dir
	}
	if g.identifier != "" {
		cfg.Identifier = g.identifier
	}
	if g.logLevel.set {
		cfg.LogLevel = g.logLevel.String()
	}
	return cfg, nil
}

// expandEnvVars expands ${VAR} patterns in a string.
func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

// path is the database file the config points at.
func (c *Config) path() string {
	return filepath.Join(c.Dir, c.Identifier+".sqlite")
}

func (c *Config) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// openDatabase opens the configured database file. A missing file is an
// error: inspecting must not leave an empty database behind.
func openDatabase(ctx context.Context, g *globals) (*litestore.Store, *litestore.Database, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(cfg.path()); err != nil {
		return nil, nil, alerr.Wrap(alerr.ErrConnection, err, "database file not found").
			With("path", cfg.path()).
			WithHelp("check --dir and --identifier, or set dir in " + g.configFile)
	}
	logger, err := cfg.logger()
	if err != nil {
		return nil, nil, err
	}

	opts := []litestore.Option{
		litestore.WithDir(cfg.Dir),
		litestore.WithDefaultIdentifier(cfg.Identifier),
		litestore.WithLogger(logger),
	}
	if cfg.BusyTimeout > 0 {
		opts = append(opts, litestore.WithBusyTimeout(cfg.BusyTimeout))
	}

	store, err := litestore.Open(opts...)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Database(ctx, "")
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, db, nil
}
