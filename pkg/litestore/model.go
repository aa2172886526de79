package litestore

import (
	"context"
	"reflect"
	"slices"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/dsl"
	"github.com/hlop3z/litestore/internal/engine"
	"github.com/hlop3z/litestore/internal/sqlgen"
)

// Declaration types used in Model callbacks.
type (
	Maker        = dsl.Maker
	ColumnWorker = dsl.ColumnWorker
	RenameMap    = engine.RenameMap
	Statement    = sqlgen.Statement
	ColumnType   = ast.ColumnType
	FKAction     = ast.FKAction
)

// Column types for Col.
const (
	Integer  = ast.Integer
	Real     = ast.Real
	Text     = ast.Text
	Blob     = ast.Blob
	Boolean  = ast.Boolean
	DateTime = ast.DateTime
	Numeric  = ast.Numeric
)

// Foreign key actions.
const (
	Nothing    = ast.Nothing
	Prohibit   = ast.Prohibit
	SetNull    = ast.SetNull
	SetDefault = ast.SetDefault
	Cascade    = ast.Cascade
)

// Reserved column names present on every table.
const (
	ColumnInsertTimestamp = ast.ColumnInsertTimestamp
	ColumnInsertTime      = ast.ColumnInsertTime
	ColumnDefaultPK       = ast.ColumnDefaultPK
)

// Model declares how values of type T are stored.
type Model[T any] struct {
	// Name is the model name; the table is t_<Name>. Default: the Go type name.
	Name string

	// Identifier selects the database file. Default: the store's default identifier.
	Identifier string

	// Version is the schema version. Bump it together with Renames.
	// Default: "0.0.1"
	Version string

	// Fields lists every property of T.
	Fields []Field[T]

	// Exclude names fields that are neither stored nor read back.
	Exclude []string

	// Ignore names fields that are not stored but are filled from query
	// results that carry a column of the same name.
	Ignore []string

	// Constraints declares column constraints.
	//
	// An autoincrement key holding zero is unassigned: inserts let the engine
	// pick it and updates or deletes fail with ErrMissingPrimaryKey. Any other
	// declared key is used as is, so 0 and "" address real rows.
	Constraints func(*Maker)

	// Renames maps new column names to old ones per version.
	Renames func(*RenameMap)

	// RowID exposes the synthetic c_no key on models that declare no primary key.
	// Without it such models cannot be updated or deleted one by one.
	RowID func(*T) *int64
}

// Bind validates the model declaration and registers it with the store.
// Declaration errors surface here; the table itself is migrated on first use.
func Bind[T any](s *Store, m Model[T]) (*Table[T], error) {
	typ := reflect.TypeFor[T]()
	name := m.Name
	if name == "" {
		name = typ.Name()
	}
	if name == "" {
		return nil, alerr.New(alerr.ErrSchemaDeclaration, "model name is required").
			WithHelp("set Model.Name for anonymous types")
	}

	props := make([]dsl.Property, len(m.Fields))
	for i, f := range m.Fields {
		props[i] = dsl.Property{Name: f.name, Type: f.typ}
		if f.get == nil || f.set == nil {
			return nil, alerr.New(alerr.ErrSchemaDeclaration, "field has no accessors").
				WithTable(ast.TableName(name)).
				WithColumn(f.name)
		}
	}

	maker := dsl.NewMaker()
	if m.Constraints != nil {
		m.Constraints(maker)
	}
	exclude := slices.Concat(m.Exclude, m.Ignore)
	schema, err := dsl.Build(ast.TableName(name), m.Version, props, exclude, maker)
	if err != nil {
		return nil, err
	}

	renames := engine.NewRenameMap()
	if m.Renames != nil {
		m.Renames(renames)
	}

	db, err := s.Database(context.Background(), m.Identifier)
	if err != nil {
		return nil, err
	}
	if err := db.reg.Register(schema, renames); err != nil {
		return nil, err
	}

	t := newTable(s, db, name, schema, m)
	s.mu.Lock()
	s.models[typ] = t
	s.mu.Unlock()

	db.logger.Debug("bound model", "model", name, "table", schema.Name, "version", schema.Version)
	return t, nil
}
