// Package dsl provides the builder API models use to declare column constraints.
// A Maker collects per-column ColumnWorkers; Build merges them with the model's
// declared properties into a validated ast.TableSchema.
package dsl

import (
	"github.com/hlop3z/litestore/internal/ast"
)

// ColumnWorker provides a fluent API for declaring the constraints of one column.
// All methods return the worker for method chaining.
type ColumnWorker struct {
	name string
	def  ast.ColumnConstraint

	// fkAction records OnDelete/OnUpdate calls made before ForeignRef.
	onDelete, onUpdate ast.FKAction
}

// Name returns the column the worker configures.
func (c *ColumnWorker) Name() string {
	return c.name
}

// NotNull marks the column as NOT NULL.
func (c *ColumnWorker) NotNull() *ColumnWorker {
	c.def.NotNull = true
	return c
}

// PrimaryKey marks the column as the table's primary key.
func (c *ColumnWorker) PrimaryKey() *ColumnWorker {
	c.def.PrimaryKey = true
	return c
}

// Autoincrement lets the engine assign increasing values to an integer primary key.
func (c *ColumnWorker) Autoincrement() *ColumnWorker {
	c.def.Autoincrement = true
	return c
}

// Unique adds a UNIQUE constraint to the column.
func (c *ColumnWorker) Unique() *ColumnWorker {
	c.def.Unique = true
	return c
}

// Default sets the value new rows receive when none is given.
// Wrap raw SQL with ast.Expr to use an expression instead of a literal.
func (c *ColumnWorker) Default(value any) *ColumnWorker {
	c.def.Default = value
	c.def.HasDefault = true
	return c
}

// ForeignRef references a column of another model's table.
// The target must be a primary key or unique; this is checked when the table is migrated.
func (c *ColumnWorker) ForeignRef(model, column string) *ColumnWorker {
	c.def.ForeignKey = &ast.ForeignKey{
		Table:    ast.TableName(model),
		Column:   column,
		OnDelete: c.onDelete,
		OnUpdate: c.onUpdate,
	}
	return c
}

// OnDelete sets the ON DELETE action of the foreign key.
func (c *ColumnWorker) OnDelete(action ast.FKAction) *ColumnWorker {
	c.onDelete = action
	if c.def.ForeignKey != nil {
		c.def.ForeignKey.OnDelete = action
	}
	return c
}

// OnUpdate sets the ON UPDATE action of the foreign key.
func (c *ColumnWorker) OnUpdate(action ast.FKAction) *ColumnWorker {
	c.onUpdate = action
	if c.def.ForeignKey != nil {
		c.def.ForeignKey.OnUpdate = action
	}
	return c
}

// Index creates a plain index on the column.
func (c *ColumnWorker) Index() *ColumnWorker {
	c.def.Indexed = true
	return c
}

// UniqueIndex creates a unique index on the column.
func (c *ColumnWorker) UniqueIndex() *ColumnWorker {
	c.def.UniqueIndexed = true
	return c
}

// apply copies the declared constraints onto a column that already carries name and type.
func (c *ColumnWorker) apply(col *ast.ColumnConstraint) {
	col.NotNull = c.def.NotNull
	col.PrimaryKey = c.def.PrimaryKey
	col.Autoincrement = c.def.Autoincrement
	col.Unique = c.def.Unique
	col.Default = c.def.Default
	col.HasDefault = c.def.HasDefault
	col.Indexed = c.def.Indexed
	col.UniqueIndexed = c.def.UniqueIndexed
	if fk := c.def.ForeignKey; fk != nil {
		ref := *fk
		col.ForeignKey = &ref
	}
}
