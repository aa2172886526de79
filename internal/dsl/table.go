package dsl

import (
	"slices"
	"strings"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
)

// Property is one persistent property a model declares: its column name and storage type.
type Property struct {
	Name string
	Type ast.ColumnType
}

// Maker collects constraint declarations keyed by column name.
type Maker struct {
	workers []*ColumnWorker
}

// NewMaker creates an empty Maker.
func NewMaker() *Maker {
	return &Maker{}
}

// Column returns the worker for the named column, creating it on first use.
// Repeated calls for the same name accumulate onto one worker.
func (m *Maker) Column(name string) *ColumnWorker {
	for _, w := range m.workers {
		if w.name == name {
			return w
		}
	}
	w := &ColumnWorker{name: name}
	m.workers = append(m.workers, w)
	return w
}

// Columns returns the names that have constraints registered, in registration order.
func (m *Maker) Columns() []string {
	if m == nil {
		return nil
	}
	names := make([]string, len(m.workers))
	for i, w := range m.workers {
		names[i] = w.name
	}
	return names
}

func (m *Maker) lookup(name string) *ColumnWorker {
	if m == nil {
		return nil
	}
	for _, w := range m.workers {
		if w.name == name {
			return w
		}
	}
	return nil
}

// Build combines the declared properties, minus the excluded names, with the constraints
// registered on maker and validates the result. maker may be nil.
func Build(table, version string, props []Property, exclude []string, maker *Maker) (*ast.TableSchema, error) {
	if err := ast.ValidateIdentifier(table); err != nil {
		return nil, alerr.Wrap(alerr.ErrSchemaDeclaration, err, "invalid table name").WithTable(table)
	}
	if version == "" {
		version = ast.DefaultVersion
	}

	schema := &ast.TableSchema{Name: table, Version: version}
	seen := make(map[string]bool, len(props))
	var declared []string

	for _, p := range props {
		if strings.TrimSpace(p.Name) == "" {
			return nil, alerr.New(alerr.ErrSchemaDeclaration, "property name is required").WithTable(table)
		}
		if seen[p.Name] {
			return nil, alerr.New(alerr.ErrSchemaDeclaration, "property declared twice").
				WithTable(table).
				WithColumn(p.Name)
		}
		seen[p.Name] = true
		if ast.IsReserved(p.Name) {
			return nil, alerr.New(alerr.ErrSchemaDeclaration, "column name is reserved").
				WithTable(table).
				WithColumn(p.Name).
				WithHelp("rename the property; c_no, c_insertTimestamp and c_insertTime are managed by litestore")
		}
		if slices.Contains(exclude, p.Name) {
			continue
		}
		declared = append(declared, p.Name)
		schema.Columns = append(schema.Columns, &ast.ColumnConstraint{Name: p.Name, Type: p.Type})
	}

	for _, name := range maker.Columns() {
		if !slices.Contains(declared, name) {
			err := alerr.New(alerr.ErrSchemaDeclaration, "constraint declared for unknown column").
				WithTable(table).
				WithColumn(name)
			if slices.Contains(exclude, name) {
				err.WithHelp("the column is excluded from persistence")
			} else {
				err.WithSuggestion(name, declared)
			}
			return nil, err
		}
	}

	var pk, auto string
	for _, col := range schema.Columns {
		if w := maker.lookup(col.Name); w != nil {
			w.apply(col)
		}
		if col.PrimaryKey {
			if pk != "" {
				return nil, alerr.New(alerr.ErrDuplicatePrimaryKey, "table declares more than one primary key").
					WithTable(table).
					WithColumn(col.Name).
					With("first", pk)
			}
			pk = col.Name
		}
		if col.Autoincrement {
			if auto != "" {
				return nil, alerr.New(alerr.ErrDuplicatePrimaryKey, "table declares more than one autoincrement column").
					WithTable(table).
					WithColumn(col.Name).
					With("first", auto)
			}
			auto = col.Name
		}
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}
