// Package dialect renders schema operations to SQLite DDL.
// It covers identifier quoting, column type mapping, default literals and
// the statements every ast.Operation expands to.
package dialect

import (
	"github.com/hlop3z/litestore/internal/ast"
)

// Dialect defines the interface for engine-specific DDL generation.
type Dialect interface {
	// Name returns the dialect name.
	Name() string

	// QuoteIdent quotes an identifier (table/column/index name).
	QuoteIdent(name string) string

	// TypeSQL returns the declared SQL type for a column type.
	TypeSQL(t ast.ColumnType) string

	// DefaultSQL renders a default value: a *ast.SQLExpr or a Go literal.
	DefaultSQL(value any) string

	// -------------------------------------------------------------------------
	// SQL generation for operations
	// -------------------------------------------------------------------------

	// CreateTableSQL generates the CREATE TABLE statement alone, without indexes.
	CreateTableSQL(op *ast.CreateTable) (string, error)

	// AddColumnSQL generates ALTER TABLE ADD COLUMN.
	AddColumnSQL(op *ast.AddColumn) (string, error)

	// RenameColumnSQL generates ALTER TABLE RENAME COLUMN.
	RenameColumnSQL(op *ast.RenameColumn) (string, error)

	// IndexesSQL generates the CREATE INDEX statements a column declares.
	IndexesSQL(table string, col *ast.ColumnConstraint) []string

	// OperationSQL expands an operation to every statement it needs, in execution order.
	OperationSQL(op ast.Operation) ([]string, error)

	// DropTableSQL generates DROP TABLE IF EXISTS.
	DropTableSQL(table string) string

	// DropIndexSQL generates DROP INDEX IF EXISTS.
	DropIndexSQL(index string) string
}

// Get returns the dialect implementation for the given name.
// Returns nil if the dialect is not supported.
func Get(name string) Dialect {
	switch name {
	case "sqlite", "sqlite3":
		return SQLite()
	default:
		return nil
	}
}
