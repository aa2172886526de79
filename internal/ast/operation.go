package ast

import (
	"fmt"
	"strings"

	"github.com/hlop3z/litestore/internal/alerr"
)

// Operation represents a single additive change to one table.
// A migration plan is an ordered list of Operations; the dialect package renders each to SQL.
type Operation interface {
	// Type returns the operation type (OpCreateTable, OpAddColumn, OpRenameColumn).
	Type() OpType

	// Table returns the prefixed table name the operation targets.
	Table() string

	// Validate checks that the operation is well-formed.
	Validate() error

	// String returns a short human-readable description, used in logs and errors.
	String() string
}

// -----------------------------------------------------------------------------
// CreateTable - creates a new table
// -----------------------------------------------------------------------------

// CreateTable creates a table with every physical column, its constraints and its indexes.
type CreateTable struct {
	TableName   string
	Columns     []*ColumnConstraint
	IfNotExists bool
}

func (op *CreateTable) Type() OpType  { return OpCreateTable }
func (op *CreateTable) Table() string { return op.TableName }

func (op *CreateTable) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, msgTableNameRequired)
	}
	if len(op.Columns) == 0 {
		return alerr.New(alerr.ErrSchemaDeclaration, msgTableNeedsColumn).WithTable(op.TableName)
	}
	for _, col := range op.Columns {
		if err := col.Validate(); err != nil {
			return alerr.Wrap(alerr.ErrSchemaDeclaration, err, "invalid column").
				WithTable(op.TableName).
				WithColumn(col.Name)
		}
	}
	return nil
}

// ColumnNames returns the names of the columns the table is created with.
func (op *CreateTable) ColumnNames() []string {
	names := make([]string, len(op.Columns))
	for i, c := range op.Columns {
		names[i] = c.Name
	}
	return names
}

func (op *CreateTable) String() string {
	return fmt.Sprintf("CreateTable(%s, [%s])", op.TableName, strings.Join(op.ColumnNames(), ", "))
}

// -----------------------------------------------------------------------------
// AddColumn - adds a column to an existing table
// -----------------------------------------------------------------------------

// AddColumn adds a column to an existing table. Existing rows receive the
// column's default, or NULL when it has none.
type AddColumn struct {
	TableName string
	Column    *ColumnConstraint
}

func (op *AddColumn) Type() OpType  { return OpAddColumn }
func (op *AddColumn) Table() string { return op.TableName }

func (op *AddColumn) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, msgTableNameRequired)
	}
	if op.Column == nil {
		return alerr.New(alerr.ErrSchemaDeclaration, "column definition is required").
			WithTable(op.TableName)
	}
	if err := op.Column.Validate(); err != nil {
		return alerr.Wrap(alerr.ErrSchemaDeclaration, err, "invalid column").
			WithTable(op.TableName).
			WithColumn(op.Column.Name)
	}
	if op.Column.PrimaryKey {
		return alerr.New(alerr.ErrSchemaDeclaration, "cannot add a primary key column to an existing table").
			WithTable(op.TableName).
			WithColumn(op.Column.Name)
	}
	if op.Column.NotNull && !op.Column.HasDefault {
		return alerr.New(alerr.ErrSchemaDeclaration, "cannot add a NOT NULL column without a default").
			WithTable(op.TableName).
			WithColumn(op.Column.Name).
			WithHelp("declare a default value or drop the not-null constraint")
	}
	// SQLite refuses a non-constant default on ADD COLUMN once the table has
	// rows. Only the audit columns are backfilled explicitly.
	if op.Column.HasDefault && op.Column.DefaultExpr() != nil && !IsReserved(op.Column.Name) {
		return alerr.New(alerr.ErrSchemaDeclaration, "cannot add a column with an expression default to an existing table").
			WithTable(op.TableName).
			WithColumn(op.Column.Name).
			WithHelp("declare a literal default for columns added after the first version")
	}
	return nil
}

func (op *AddColumn) String() string {
	if op.Column == nil {
		return fmt.Sprintf("AddColumn(%s, <nil>)", op.TableName)
	}
	return fmt.Sprintf("AddColumn(%s, %s)", op.TableName, op.Column.Name)
}

// -----------------------------------------------------------------------------
// RenameColumn - renames a column, keeping its data
// -----------------------------------------------------------------------------

// RenameColumn renames a live column to its declared name.
type RenameColumn struct {
	TableName string
	OldName   string
	NewName   string
}

func (op *RenameColumn) Type() OpType  { return OpRenameColumn }
func (op *RenameColumn) Table() string { return op.TableName }

func (op *RenameColumn) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, msgTableNameRequired)
	}
	if op.OldName == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, "old column name is required for rename").
			WithTable(op.TableName)
	}
	if op.NewName == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, "new column name is required for rename").
			WithTable(op.TableName)
	}
	if op.OldName == op.NewName {
		return alerr.New(alerr.ErrSchemaDeclaration, "rename must change the column name").
			WithTable(op.TableName).
			WithColumn(op.NewName)
	}
	return nil
}

func (op *RenameColumn) String() string {
	return fmt.Sprintf("RenameColumn(%s, %s -> %s)", op.TableName, op.OldName, op.NewName)
}
