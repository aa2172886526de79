package litestore

import (
	"context"
	"database/sql"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/engine"
	"github.com/hlop3z/litestore/internal/introspect"
)

// Live schema as read from the database file.
type (
	TableInfo      = introspect.Table
	ColumnInfo     = introspect.LiveColumn
	IndexInfo      = introspect.Index
	ForeignKeyInfo = introspect.ForeignKey
	AppliedVersion = engine.AppliedVersion
)

// LiveTables lists the tables present in the file, bound or not. The version
// bookkeeping table is left out.
func (d *Database) LiveTables(ctx context.Context) ([]string, error) {
	var out []string
	err := d.handle.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		tables, err := introspect.ListTables(ctx, db)
		out = tables
		return err
	})
	return out, err
}

// Describe reads the live columns, indexes and foreign keys of table.
func (d *Database) Describe(ctx context.Context, table string) (*TableInfo, error) {
	var out *TableInfo
	err := d.handle.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		info, err := introspect.Describe(ctx, db, table)
		if err != nil {
			return err
		}
		if info == nil {
			return alerr.New(alerr.ErrIntrospection, "table does not exist").WithTable(table)
		}
		out = info
		return nil
	})
	return out, err
}

// ResultSet holds query rows in result column order.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// QueryRows runs one query and keeps the result column order.
func (d *Database) QueryRows(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	cols, vals, err := d.handle.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &ResultSet{Columns: cols, Rows: vals}, nil
}
