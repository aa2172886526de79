// Package litestore persists Go values in embedded SQLite databases.
//
// Each model is bound once to a Store with Bind, which validates its declared
// columns and constraints. The first call on a bound table migrates the live
// table toward the declaration: missing tables are created and missing
// columns added or renamed. Columns are never dropped.
//
// Example:
//
//	store, err := litestore.Open(litestore.WithDir("./data"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	people, err := litestore.Bind(store, litestore.Model[Person]{
//	    Fields: []litestore.Field[Person]{
//	        litestore.Int("id", func(p *Person) *int64 { return &p.ID }),
//	        litestore.String("name", func(p *Person) *string { return &p.Name }),
//	    },
//	    Constraints: func(m *litestore.Maker) {
//	        m.Column("id").PrimaryKey().Autoincrement()
//	        m.Column("name").NotNull().Default("")
//	    },
//	})
package litestore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/conn"
	"github.com/hlop3z/litestore/internal/dialect"
	"github.com/hlop3z/litestore/internal/engine"
	"github.com/hlop3z/litestore/internal/registry"
)

// Store owns one database per identifier and the models bound to them.
//
// Create a store with Open and close it with Close when done. A Store is safe
// for concurrent use.
type Store struct {
	config *Config
	logger *slog.Logger

	mu     sync.Mutex
	dbs    map[string]*Database
	models map[reflect.Type]binding
	closed bool
}

// Open creates a Store with the given options and opens the default database.
func Open(opts ...Option) (*Store, error) {
	cfg := &Config{
		Dir:               ".",
		DefaultIdentifier: DefaultIdentifier,
		BusyTimeout:       conn.DefaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultIdentifier == "" {
		cfg.DefaultIdentifier = DefaultIdentifier
	}

	s := &Store{
		config: cfg,
		logger: cfg.Logger,
		dbs:    make(map[string]*Database),
		models: make(map[reflect.Type]binding),
	}
	if _, err := s.Database(context.Background(), ""); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns a copy of the store configuration.
func (s *Store) Config() Config {
	return *s.config
}

// Database returns the database for identifier, opening it on first use.
// An empty identifier selects the default one.
func (s *Store) Database(ctx context.Context, identifier string) (*Database, error) {
	if identifier == "" {
		identifier = s.config.DefaultIdentifier
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, alerr.New(alerr.ErrHandleClosed, "store is closed").With("identifier", identifier)
	}
	if db, ok := s.dbs[identifier]; ok {
		return db, nil
	}

	h, err := conn.Open(ctx, s.config.handleConfig(identifier))
	if err != nil {
		return nil, err
	}
	db := &Database{
		handle: h,
		reg:    registry.New(),
		logger: s.logger.With("identifier", identifier),
	}
	s.dbs[identifier] = db
	return db, nil
}

func (s *Store) defaultDB(ctx context.Context) (*Database, error) {
	return s.Database(ctx, "")
}

// Identifiers returns the identifiers of the databases opened so far, sorted.
func (s *Store) Identifiers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.dbs))
}

// Close closes every database. Queued units finish first.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	dbs := s.dbs
	s.dbs = map[string]*Database{}
	s.mu.Unlock()

	var errs []error
	for _, db := range dbs {
		if err := db.handle.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Exec runs a statement on the default database.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	db, err := s.defaultDB(ctx)
	if err != nil {
		return err
	}
	return db.Exec(ctx, query, args...)
}

// Query runs a query on the default database and returns rows as column maps.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	db, err := s.defaultDB(ctx)
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, query, args...)
}

// Do runs fn on the default database's queue and waits for it.
// Table calls made inside fn must pass the ctx fn receives.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	db, err := s.defaultDB(ctx)
	if err != nil {
		return err
	}
	return db.Do(ctx, fn)
}

// Go queues fn on the default database and returns at once; done receives
// its result. A queued unit always runs to completion.
func (s *Store) Go(ctx context.Context, fn func(ctx context.Context) error, done func(error)) error {
	db, err := s.defaultDB(ctx)
	if err != nil {
		return err
	}
	return db.Go(ctx, fn, done)
}

// LastError returns the engine message of the last failure on the default database.
func (s *Store) LastError() string {
	db, err := s.defaultDB(context.Background())
	if err != nil {
		return err.Error()
	}
	return db.LastError()
}

// RegisterFunction makes fn callable from SQL in every database of the store.
func (s *Store) RegisterFunction(ctx context.Context, name string, nArgs int, fn func(args ...any) (any, error)) error {
	db, err := s.defaultDB(ctx)
	if err != nil {
		return err
	}
	if err := db.handle.RegisterFunction(ctx, name, nArgs, fn); err != nil {
		return err
	}
	return s.reconnectOthers(ctx, db)
}

// RegisterCollation makes cmp usable in COLLATE clauses in every database of the store.
func (s *Store) RegisterCollation(ctx context.Context, name string, cmp func(a, b string) int) error {
	db, err := s.defaultDB(ctx)
	if err != nil {
		return err
	}
	if err := db.handle.RegisterCollation(ctx, name, cmp); err != nil {
		return err
	}
	return s.reconnectOthers(ctx, db)
}

func (s *Store) reconnectOthers(ctx context.Context, done *Database) error {
	s.mu.Lock()
	others := make([]*Database, 0, len(s.dbs))
	for _, db := range s.dbs {
		if db != done {
			others = append(others, db)
		}
	}
	s.mu.Unlock()

	for _, db := range others {
		if err := db.handle.Reconnect(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Database is one SQLite file with its serialized handle and schema registry.
type Database struct {
	handle *conn.Handle
	reg    *registry.Registry
	logger *slog.Logger
}

// Identifier returns the identifier the database is stored under.
func (d *Database) Identifier() string { return d.handle.Identifier() }

// Path returns the database file, or "" for an in-memory database.
func (d *Database) Path() string { return d.handle.Path() }

// Exec runs one statement.
func (d *Database) Exec(ctx context.Context, query string, args ...any) error {
	_, err := d.handle.Exec(ctx, query, args...)
	return err
}

// Query runs one query and returns rows as column maps.
func (d *Database) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return d.handle.Query(ctx, query, args...)
}

// Do runs fn on the database queue and waits for it.
func (d *Database) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.handle.Do(ctx, func(ctx context.Context, _ *sql.DB) error { return fn(ctx) })
}

// Go queues fn on the database and returns at once.
func (d *Database) Go(ctx context.Context, fn func(ctx context.Context) error, done func(error)) error {
	return d.handle.Go(ctx, func(ctx context.Context, _ *sql.DB) error { return fn(ctx) }, done)
}

// LastError returns the engine message of the last failure.
func (d *Database) LastError() string { return d.handle.LastError() }

// LastInsertID returns the row id of the most recent insert.
func (d *Database) LastInsertID() int64 { return d.handle.LastInsertID() }

// Tables returns the names of the tables bound to this database, sorted.
func (d *Database) Tables() []string { return d.reg.Tables() }

// Versions returns the applied schema version of every migrated table.
func (d *Database) Versions(ctx context.Context) ([]AppliedVersion, error) {
	var out []AppliedVersion
	err := d.handle.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		v := engine.NewVersionManager(db, dialect.SQLite())
		if err := v.EnsureTable(ctx); err != nil {
			return err
		}
		list, err := v.List(ctx)
		out = list
		return err
	})
	return out, err
}

// migrate is the registry's migration callback for tables in this database.
// A unit on the worker may have migrated the table inline while this one
// waited in the queue, so the state is checked again before running.
func (d *Database) migrate(ctx context.Context, schema *ast.TableSchema, renames *engine.RenameMap) error {
	return d.handle.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		switch state, err := d.reg.State(schema.Name); state {
		case registry.Ready:
			return nil
		case registry.Failed:
			return err
		}
		r := engine.NewRunner(db, dialect.SQLite(),
			engine.WithLogger(d.logger),
			engine.WithSchemaLookup(d.reg.Schema),
		)
		_, err := r.Migrate(ctx, schema, renames)
		return err
	})
}
