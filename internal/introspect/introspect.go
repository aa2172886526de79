// Package introspect reads the live schema of a SQLite database.
// It queries the sqlite_master catalog and the table_info, index_list and
// foreign_key_list pragmas, and never modifies the database.
package introspect

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/hlop3z/litestore/internal/ast"
)

// VersionsTable is the bookkeeping table the migration runner records applied versions in.
const VersionsTable = "litestore_versions"

// Querier is the read side of *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LiveColumn is one column as it exists on disk.
type LiveColumn struct {
	Name       string
	Type       string // declared type as written in the DDL
	NotNull    bool
	PrimaryKey bool
	Default    sql.NullString // raw default expression
}

// Affinity maps the declared type to the closest column type.
func (c LiveColumn) Affinity() ast.ColumnType {
	return MapSQLiteType(c.Type)
}

// LiveTable is the column set of an existing table.
type LiveTable struct {
	Name    string
	Columns []LiveColumn
}

// Has reports whether the table has a column with the given name.
// Column names compare case-insensitively, as SQLite does.
func (t *LiveTable) Has(name string) bool {
	return t.Column(name) != nil
}

// Column looks up a live column by name.
func (t *LiveTable) Column(name string) *LiveColumn {
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// Names returns the live column names in table order.
func (t *LiveTable) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the live primary key column, or nil.
func (t *LiveTable) PrimaryKey() *LiveColumn {
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if t.Columns[i].PrimaryKey {
			return &t.Columns[i]
		}
	}
	return nil
}

// Index describes one index on a table.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	// Origin is "c" for CREATE INDEX, "u" for a UNIQUE constraint, "pk" for a primary key.
	Origin string
}

// ForeignKey describes one outgoing reference of a table.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

// Table is the complete live description of a table, used by inspection tooling.
type Table struct {
	LiveTable
	Indexes     []Index
	ForeignKeys []ForeignKey
}

// internalTables lists tables that should be skipped when listing managed tables.
var internalTables = []string{VersionsTable}

// isInternalTable checks if a table should be skipped.
func isInternalTable(name string) bool {
	return slices.Contains(internalTables, name)
}
