package engine

import (
	"context"
	"log/slog"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/dialect"
	"github.com/hlop3z/litestore/internal/drift"
	"github.com/hlop3z/litestore/internal/introspect"
)

// SchemaLookup returns the declared schema of a table, or nil when no model
// with that table name is known.
type SchemaLookup func(table string) *ast.TableSchema

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger migration steps are reported to.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSchemaLookup sets where foreign key targets are looked up before
// falling back to the live schema.
func WithSchemaLookup(fn SchemaLookup) RunnerOption {
	return func(r *Runner) {
		r.lookup = fn
	}
}

// Runner applies migration plans against a database.
type Runner struct {
	db       DB
	dialect  dialect.Dialect
	versions *VersionManager
	logger   *slog.Logger
	lookup   SchemaLookup
}

// NewRunner creates a new migration runner.
// Returns nil if db or dialect is nil.
func NewRunner(db DB, d dialect.Dialect, opts ...RunnerOption) *Runner {
	if db == nil || d == nil {
		return nil
	}
	r := &Runner{
		db:       db,
		dialect:  d,
		versions: NewVersionManager(db, d),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Versions returns the bookkeeping table manager the runner records into.
func (r *Runner) Versions() *VersionManager {
	return r.versions
}

// Migrate reads the live table, plans against schema and applies the plan.
func (r *Runner) Migrate(ctx context.Context, schema *ast.TableSchema, renames *RenameMap) (*MigrationPlan, error) {
	live, err := introspect.FetchLiveColumns(ctx, r.db, schema.Name)
	if err != nil {
		return nil, err
	}
	plan, err := Plan(schema, live, renames, schema.Version)
	if err != nil {
		return nil, err
	}
	return plan, r.Apply(ctx, plan)
}

// Apply executes the plan's operations in order.
//
// There is no wrapping transaction: a failing step leaves the earlier steps
// applied and returns ErrMigrationFailed carrying the step index. Each step
// re-reads the live table first, so steps that are already satisfied are
// skipped and applying the same plan twice converges.
func (r *Runner) Apply(ctx context.Context, plan *MigrationPlan) error {
	if plan == nil {
		return nil
	}

	if err := r.versions.EnsureTable(ctx); err != nil {
		return err
	}
	if plan.Schema != nil {
		if err := r.CheckForeignKeys(ctx, plan.Schema); err != nil {
			return err
		}
	}

	fingerprint, err := drift.Fingerprint(plan.Schema)
	if err != nil {
		return err
	}
	if err := r.checkVersion(ctx, plan, fingerprint); err != nil {
		return err
	}

	for i, op := range plan.Ops {
		done, err := r.satisfied(ctx, op)
		if err != nil {
			return stepError(err, plan.Table, i, op, "")
		}
		if done {
			r.logger.Debug("migration step already satisfied",
				"table", plan.Table,
				"step", i,
				"op", op.String(),
			)
			continue
		}

		stmts, err := r.dialect.OperationSQL(op)
		if err != nil {
			return stepError(err, plan.Table, i, op, "")
		}
		for _, stmt := range stmts {
			if _, err := r.db.ExecContext(ctx, stmt); err != nil {
				return stepError(alerr.WrapEngine(err, "execute migration statement", plan.Table, stmt),
					plan.Table, i, op, stmt)
			}
		}

		r.logger.Info("applied migration step",
			"table", plan.Table,
			"version", plan.Version,
			"step", i,
			"op", op.String(),
		)
	}

	return r.versions.Record(ctx, AppliedVersion{
		Table:       plan.Table,
		Version:     plan.Version,
		Fingerprint: fingerprint,
	})
}

// satisfied reports whether the live table already reflects op.
func (r *Runner) satisfied(ctx context.Context, op ast.Operation) (bool, error) {
	switch o := op.(type) {
	case *ast.CreateTable:
		return introspect.TableExists(ctx, r.db, o.TableName)

	case *ast.AddColumn:
		live, err := introspect.FetchLiveColumns(ctx, r.db, o.TableName)
		if err != nil {
			return false, err
		}
		return live.Has(o.Column.Name), nil

	case *ast.RenameColumn:
		live, err := introspect.FetchLiveColumns(ctx, r.db, o.TableName)
		if err != nil {
			return false, err
		}
		return live.Has(o.NewName) && !live.Has(o.OldName), nil
	}
	return false, nil
}

// CheckForeignKeys verifies that every reference in schema points at a column
// that is a primary key or unique, first in the declared schema of the target
// table and then in its live schema.
func (r *Runner) CheckForeignKeys(ctx context.Context, schema *ast.TableSchema) error {
	for _, col := range schema.Columns {
		fk := col.ForeignKey
		if fk == nil {
			continue
		}

		ok, err := r.isTarget(ctx, schema, fk)
		if err != nil {
			return err
		}
		if !ok {
			return alerr.Newf(alerr.ErrForeignKeyTarget,
				"referenced column %s.%s is neither a primary key nor unique", fk.Table, fk.Column).
				WithTable(schema.Name).
				WithColumn(col.Name).
				With("references", fk.Table+"."+fk.Column).
				WithHelp("declare the referenced column with PrimaryKey() or Unique()")
		}
	}
	return nil
}

func (r *Runner) isTarget(ctx context.Context, schema *ast.TableSchema, fk *ast.ForeignKey) (bool, error) {
	if fk.Table == schema.Name {
		return schema.IsUniqueOrKey(fk.Column), nil
	}
	if r.lookup != nil {
		if target := r.lookup(fk.Table); target != nil {
			return target.IsUniqueOrKey(fk.Column), nil
		}
	}
	return introspect.IsUniqueOrKey(ctx, r.db, fk.Table, fk.Column)
}

// checkVersion warns about downgrades and schema changes without a version bump.
// Neither stops the migration.
func (r *Runner) checkVersion(ctx context.Context, plan *MigrationPlan, fingerprint string) error {
	prev, err := r.versions.Get(ctx, plan.Table)
	if err != nil || prev == nil {
		return err
	}

	switch c := CompareVersions(plan.Version, prev.Version); {
	case c < 0:
		r.logger.Warn("declared version is older than the applied version",
			"table", plan.Table,
			"declared", plan.Version,
			"applied", prev.Version,
		)
	case c == 0 && prev.Fingerprint != "" && prev.Fingerprint != fingerprint:
		r.logger.Warn("schema changed without a version bump",
			"table", plan.Table,
			"version", plan.Version,
		)
	}
	return nil
}

func stepError(err error, table string, step int, op ast.Operation, stmt string) error {
	e := alerr.Wrap(alerr.ErrMigrationFailed, err, "migration step failed").
		WithTable(table).
		With("step", step).
		With("op", op.String())
	if stmt != "" {
		e.WithSQL(stmt)
	}
	return e
}
