package litestore

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hlop3z/litestore/internal/conn"
)

// DefaultIdentifier names the database models without an Identifier share.
const DefaultIdentifier = "common"

// FileExt is the extension of every database file.
const FileExt = ".sqlite"

// Config holds all configuration options for the Store.
type Config struct {
	// Dir is the directory database files live in, one <identifier>.sqlite each.
	// Default: the current directory
	Dir string

	// DefaultIdentifier is used for models that do not name an identifier.
	// Default: "common"
	DefaultIdentifier string

	// FilePath overrides the file location for one identifier.
	// Use it for databases that live outside Dir.
	FilePath func(identifier, dir string) string

	// InMemory keeps every database in memory. Nothing is written to Dir.
	InMemory bool

	// BusyTimeout is how long the engine waits on a locked database file.
	// Default: 5s
	BusyTimeout time.Duration

	// Logger receives migration and handle logs.
	// Default: slog.Default()
	Logger *slog.Logger

	// ErrorLog logs every failed statement at Error level.
	ErrorLog bool
}

// Option is a functional option for configuring the Store.
type Option func(*Config)

// WithDir sets the directory database files are created in.
func WithDir(dir string) Option {
	return func(c *Config) {
		c.Dir = dir
	}
}

// WithDefaultIdentifier sets the identifier models without one are stored under.
// Tables sharing an identifier share a database file; a per-user id is typical.
func WithDefaultIdentifier(id string) Option {
	return func(c *Config) {
		c.DefaultIdentifier = id
	}
}

// WithFilePath overrides where the database for an identifier is stored.
// Returning "" falls back to <dir>/<identifier>.sqlite.
func WithFilePath(fn func(identifier, dir string) string) Option {
	return func(c *Config) {
		c.FilePath = fn
	}
}

// WithInMemory keeps every database in memory. Useful for tests.
func WithInMemory() Option {
	return func(c *Config) {
		c.InMemory = true
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithBusyTimeout sets how long statements wait on a locked database file.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.BusyTimeout = d
	}
}

// WithErrorLog enables or disables logging of failed statements.
func WithErrorLog(enable bool) Option {
	return func(c *Config) {
		c.ErrorLog = enable
	}
}

// path returns the database file for an identifier.
func (c *Config) path(identifier string) string {
	if c.FilePath != nil {
		if p := c.FilePath(identifier, c.Dir); p != "" {
			return p
		}
	}
	return filepath.Join(c.Dir, identifier+FileExt)
}

func (c *Config) handleConfig(identifier string) conn.Config {
	return conn.Config{
		Identifier:  identifier,
		Path:        c.path(identifier),
		InMemory:    c.InMemory,
		BusyTimeout: c.BusyTimeout,
		Logger:      c.Logger,
		ErrorLog:    c.ErrorLog,
	}
}
