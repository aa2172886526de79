package engine

import (
	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/dialect"
	"github.com/hlop3z/litestore/internal/introspect"
)

// MigrationPlan is the ordered list of operations that brings one table to its
// declared shape at Version.
type MigrationPlan struct {
	Table   string
	Version string
	Ops     []ast.Operation

	// Schema is the declared schema the plan was computed from.
	Schema *ast.TableSchema
}

// IsEmpty returns true if the plan has no operations.
func (p *MigrationPlan) IsEmpty() bool {
	return p == nil || len(p.Ops) == 0
}

// Plan computes the operations that turn live into declared.
//
// A missing live table yields a single CreateTable over every column,
// including the synthetic key and the audit columns. Otherwise each declared
// column absent from live becomes a RenameColumn when the rename history
// points at a live column, or an AddColumn. Live columns that are no longer
// declared are left alone.
func Plan(declared *ast.TableSchema, live *introspect.LiveTable, renames *RenameMap, version string) (*MigrationPlan, error) {
	if declared == nil {
		return nil, alerr.New(alerr.EInternalError, "declared schema is required")
	}
	if version == "" {
		version = declared.Version
	}
	if version == "" {
		version = ast.DefaultVersion
	}

	if err := renames.check(declared.Name, version); err != nil {
		return nil, err
	}

	plan := &MigrationPlan{Table: declared.Name, Version: version, Schema: declared}

	if live == nil {
		plan.Ops = []ast.Operation{&ast.CreateTable{
			TableName:   declared.Name,
			Columns:     declared.AllColumns(),
			IfNotExists: true,
		}}
		return plan, nil
	}

	// A live column may be claimed by one declared column only.
	claimed := make(map[string]string)
	present := func(name string) bool {
		return live.Has(name)
	}

	for _, col := range declared.AllColumns() {
		if live.Has(col.Name) {
			continue
		}

		old, err := renames.resolve(declared.Name, col.Name, version, present)
		if err != nil {
			return nil, err
		}
		if old != "" && declared.Column(old) == nil {
			if prev, ok := claimed[old]; ok {
				return nil, alerr.Newf(alerr.ErrAmbiguousRename,
					"live column %q is claimed by both %q and %q", old, prev, col.Name).
					WithTable(declared.Name).
					WithColumn(old)
			}
			claimed[old] = col.Name
			plan.Ops = append(plan.Ops, &ast.RenameColumn{
				TableName: declared.Name,
				OldName:   old,
				NewName:   col.Name,
			})
			continue
		}

		add := &ast.AddColumn{TableName: declared.Name, Column: col}
		if err := add.Validate(); err != nil {
			return nil, err
		}
		plan.Ops = append(plan.Ops, add)
	}

	return plan, nil
}

// PlanSQL renders every statement of plan in execution order without running it.
func PlanSQL(d dialect.Dialect, plan *MigrationPlan) ([]string, error) {
	var stmts []string
	for _, op := range plan.Ops {
		sqls, err := d.OperationSQL(op)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, sqls...)
	}
	return stmts, nil
}
