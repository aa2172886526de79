// Package registry caches the declared schemas bound to one database handle
// and guards each table's migration so it runs at most once per process.
package registry

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/drift"
	"github.com/hlop3z/litestore/internal/engine"
)

// State is the migration state of a registered table.
type State int

const (
	// Pending tables have not been migrated in this process yet.
	Pending State = iota
	// Ready tables migrated successfully.
	Ready
	// Failed tables stay unusable until an explicit retry succeeds.
	Failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MigrateFunc brings one table in line with its declared schema.
type MigrateFunc func(ctx context.Context, schema *ast.TableSchema, renames *engine.RenameMap) error

type entry struct {
	schema      *ast.TableSchema
	renames     *engine.RenameMap
	fingerprint string
	state       State
	err         error
}

// Registry stores declared schemas by table name.
// It provides thread-safe access and a per-table one-shot migration guard.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*entry
	group  singleflight.Group
}

// New creates a new empty Registry.
func New() *Registry {
	return &Registry{
		tables: make(map[string]*entry),
	}
}

// Register adds a declared schema. Registering an identical schema again is a
// no-op; a different schema under the same table name is rejected.
func (r *Registry) Register(schema *ast.TableSchema, renames *engine.RenameMap) error {
	if schema == nil || schema.Name == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, "table schema cannot be empty")
	}

	fp, err := drift.Fingerprint(schema)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tables[schema.Name]; ok {
		if existing.fingerprint == fp {
			existing.renames = renames
			return nil
		}
		return alerr.New(alerr.ErrSchemaDeclaration, "table already registered with a different schema").
			WithTable(schema.Name).
			WithHelp("use a distinct model name or bind the model once")
	}

	r.tables[schema.Name] = &entry{
		schema:      schema,
		renames:     renames,
		fingerprint: fp,
	}
	return nil
}

// Schema returns the declared schema of table, or nil when it is not registered.
// Its signature matches engine.SchemaLookup.
func (r *Registry) Schema(table string) *ast.TableSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.tables[table]; ok {
		return e.schema
	}
	return nil
}

// Tables returns the registered table names, sorted.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// State returns the migration state of table and the error of the last
// failed attempt.
func (r *Registry) State(table string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tables[table]
	if !ok {
		return Pending, alerr.New(alerr.ErrUnknownModel, "table is not registered").WithTable(table)
	}
	return e.state, e.err
}

// Ensure runs migrate for table unless it already succeeded in this process.
// Concurrent callers share one run. After a failure every later call returns
// ErrSchemaNotReady wrapping the migration error without running migrate again.
func (r *Registry) Ensure(ctx context.Context, table string, migrate MigrateFunc) error {
	state, err := r.State(table)
	switch {
	case state == Ready:
		return nil
	case state == Failed:
		return notReady(table, err)
	case err != nil:
		return err
	}

	_, err, _ = r.group.Do(table, func() (any, error) {
		return nil, r.run(ctx, table, migrate)
	})
	return err
}

// EnsureInline is Ensure for callers that already hold the database worker.
// It runs migrate directly instead of joining a shared run, since that run
// may be queued behind the caller and would never start.
func (r *Registry) EnsureInline(ctx context.Context, table string, migrate MigrateFunc) error {
	return r.run(ctx, table, migrate)
}

// Retry resets a failed table to pending and runs migrate again.
func (r *Registry) Retry(ctx context.Context, table string, migrate MigrateFunc) error {
	r.Reset(table)
	return r.Ensure(ctx, table, migrate)
}

// RetryInline is Retry for callers that already hold the database worker.
func (r *Registry) RetryInline(ctx context.Context, table string, migrate MigrateFunc) error {
	r.Reset(table)
	return r.EnsureInline(ctx, table, migrate)
}

// Reset marks table as pending so the next Ensure migrates it again.
func (r *Registry) Reset(table string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.tables[table]; ok {
		e.state = Pending
		e.err = nil
	}
}

func (r *Registry) run(ctx context.Context, table string, migrate MigrateFunc) error {
	r.mu.RLock()
	e, ok := r.tables[table]
	var (
		state   State
		prev    error
		schema  *ast.TableSchema
		renames *engine.RenameMap
	)
	if ok {
		state, prev, schema, renames = e.state, e.err, e.schema, e.renames
	}
	r.mu.RUnlock()

	if !ok {
		return alerr.New(alerr.ErrUnknownModel, "table is not registered").WithTable(table)
	}
	// Another run finished before this one started.
	if state == Ready {
		return nil
	}
	if state == Failed {
		return notReady(table, prev)
	}

	err := migrate(ctx, schema, renames)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		e.state, e.err = Failed, err
		return err
	}
	e.state, e.err = Ready, nil
	return nil
}

func notReady(table string, cause error) error {
	return alerr.Wrap(alerr.ErrSchemaNotReady, cause, "table schema is not ready").
		WithTable(table).
		WithHelp("fix the failure and call Migrate to retry")
}
