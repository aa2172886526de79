// Package ast defines the declared-schema model and the DDL operations a migration plan is made of.
// Operations represent atomic, additive changes to a single table and are rendered to SQL by
// the dialect package.
package ast

import (
	"fmt"
	"strings"
)

// OpType represents the type of a schema operation.
type OpType int

const (
	// OpCreateTable creates a new table with columns, constraints and indexes.
	OpCreateTable OpType = iota

	// OpAddColumn adds a new column to an existing table.
	OpAddColumn

	// OpRenameColumn changes a column's name, keeping its data.
	OpRenameColumn
)

// String returns the string representation of an OpType.
func (o OpType) String() string {
	switch o {
	case OpCreateTable:
		return "CreateTable"
	case OpAddColumn:
		return "AddColumn"
	case OpRenameColumn:
		return "RenameColumn"
	default:
		return "Unknown"
	}
}

// ColumnType is the declared storage type of a column.
type ColumnType int

const (
	Integer ColumnType = iota
	Real
	Text
	Blob
	Boolean
	DateTime
	Numeric
)

// String returns the lowercase type name.
func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Text:
		return "text"
	case Blob:
		return "blob"
	case Boolean:
		return "boolean"
	case DateTime:
		return "datetime"
	case Numeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// SQLType returns the SQLite declared type for the column type.
func (t ColumnType) SQLType() string {
	switch t {
	case Integer, Boolean:
		return "INTEGER"
	case Real:
		return "REAL"
	case Blob:
		return "BLOB"
	case DateTime:
		return "DATETIME"
	case Numeric:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

// IsIntegerCompatible reports whether values of this type are stored as plain integers
// and may back an AUTOINCREMENT key.
func (t ColumnType) IsIntegerCompatible() bool {
	return t == Integer
}

// FKAction is a foreign key referential action. The engine enforces it; this layer only declares it.
type FKAction int

const (
	// Nothing leaves dependent rows alone (NO ACTION).
	Nothing FKAction = iota
	// Prohibit refuses the change while dependent rows exist (RESTRICT).
	Prohibit
	// SetNull nulls the referencing column.
	SetNull
	// SetDefault resets the referencing column to its default.
	SetDefault
	// Cascade propagates the change.
	Cascade
)

// SQL returns the referential action keyword.
func (a FKAction) SQL() string {
	switch a {
	case Prohibit:
		return "RESTRICT"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	case Cascade:
		return "CASCADE"
	default:
		return "NO ACTION"
	}
}

// String returns the action name as declared.
func (a FKAction) String() string {
	switch a {
	case Prohibit:
		return "prohibit"
	case SetNull:
		return "setNULL"
	case SetDefault:
		return "setDefault"
	case Cascade:
		return "cascade"
	default:
		return "nothing"
	}
}

// ParseFKAction accepts either the declared name or the SQL keyword.
func ParseFKAction(s string) (FKAction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NOTHING", "NO ACTION":
		return Nothing, nil
	case "PROHIBIT", "RESTRICT":
		return Prohibit, nil
	case "SETNULL", "SET NULL":
		return SetNull, nil
	case "SETDEFAULT", "SET DEFAULT":
		return SetDefault, nil
	case "CASCADE":
		return Cascade, nil
	}
	return Nothing, fmt.Errorf("unknown foreign key action %q", s)
}

// SQLExpr marks a default value as a raw SQL expression rather than a literal.
type SQLExpr struct {
	Expr string
}

// Expr wraps a raw SQL expression for use as a column default.
func Expr(expr string) *SQLExpr {
	return &SQLExpr{Expr: expr}
}
