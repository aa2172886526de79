package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/strutil"
)

func introspectionError(err error, op, table string) *alerr.Error {
	e := alerr.Wrap(alerr.ErrIntrospection, err, "failed to "+op)
	if table != "" {
		e.WithTable(table)
	}
	return e
}

// TableExists checks if a table exists in the database.
func TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var name string
	err := q.QueryRowContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name = ?
	`, table).Scan(&name)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, introspectionError(err, "check table existence", table)
	}
	return true, nil
}

// ListTables returns user tables in name order, skipping SQLite's own tables
// and the version bookkeeping table.
func ListTables(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, introspectionError(err, "list tables", "")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, introspectionError(err, "scan table name", "")
		}
		if isInternalTable(name) {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, introspectionError(err, "list tables", "")
	}
	return tables, nil
}

// FetchLiveColumns returns the live column set of a table, or nil when the table does not exist.
// A failing catalog query surfaces as an ErrIntrospection error, never as a missing table.
func FetchLiveColumns(ctx context.Context, q Querier, table string) (*LiveTable, error) {
	exists, err := TableExists(ctx, q, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	// PRAGMA table_info returns: cid, name, type, notnull, dflt_value, pk
	query := fmt.Sprintf("PRAGMA table_info(%s)", strutil.QuoteSQL(table))
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, introspectionError(err, "introspect columns", table)
	}
	defer rows.Close()

	live := &LiveTable{Name: table}
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var defaultVal sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultVal, &pk); err != nil {
			return nil, introspectionError(err, "scan column", table)
		}
		live.Columns = append(live.Columns, LiveColumn{
			Name:       name,
			Type:       dataType,
			NotNull:    notNull != 0,
			PrimaryKey: pk > 0,
			Default:    defaultVal,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, introspectionError(err, "introspect columns", table)
	}
	return live, nil
}

// Indexes returns every index of a table, including the automatic ones
// SQLite creates for UNIQUE and PRIMARY KEY constraints.
func Indexes(ctx context.Context, q Querier, table string) ([]Index, error) {
	// index_list returns: seq, name, unique, origin, partial.
	// Rows are collected and closed before index_info runs; the handle has a single connection.
	listQuery := fmt.Sprintf("PRAGMA index_list(%s)", strutil.QuoteSQL(table))
	rows, err := q.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, introspectionError(err, "get index list", table)
	}

	var indexes []Index
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, introspectionError(err, "scan index", table)
		}
		indexes = append(indexes, Index{Name: name, Unique: unique == 1, Origin: origin})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, introspectionError(err, "iterate indexes", table)
	}
	rows.Close()

	for i := range indexes {
		cols, err := indexColumns(ctx, q, indexes[i].Name)
		if err != nil {
			return nil, err
		}
		indexes[i].Columns = cols
	}
	return indexes, nil
}

func indexColumns(ctx context.Context, q Querier, index string) ([]string, error) {
	// index_info returns: seqno, cid, name
	infoQuery := fmt.Sprintf("PRAGMA index_info(%s)", strutil.QuoteSQL(index))
	rows, err := q.QueryContext(ctx, infoQuery)
	if err != nil {
		return nil, introspectionError(err, "get index info", "").With("index", index)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, introspectionError(err, "scan index column", "").With("index", index)
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

// ForeignKeys returns the outgoing references of a table, grouping multi-column keys.
func ForeignKeys(ctx context.Context, q Querier, table string) ([]ForeignKey, error) {
	// foreign_key_list returns: id, seq, table, from, to, on_update, on_delete, match
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", strutil.QuoteSQL(table))
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, introspectionError(err, "introspect foreign keys", table)
	}
	defer rows.Close()

	var fks []ForeignKey
	byID := make(map[int]int)
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString

		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, introspectionError(err, "scan foreign key", table)
		}

		i, ok := byID[id]
		if !ok {
			i = len(fks)
			byID[id] = i
			fks = append(fks, ForeignKey{RefTable: refTable, OnDelete: onDelete, OnUpdate: onUpdate})
		}
		fks[i].Columns = append(fks[i].Columns, from)
		fks[i].RefColumns = append(fks[i].RefColumns, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, introspectionError(err, "introspect foreign keys", table)
	}
	return fks, nil
}

// IsUniqueOrKey reports whether a live column is the table's primary key or is
// covered on its own by a unique index. A missing table or column reports false.
func IsUniqueOrKey(ctx context.Context, q Querier, table, column string) (bool, error) {
	live, err := FetchLiveColumns(ctx, q, table)
	if err != nil || live == nil {
		return false, err
	}
	col := live.Column(column)
	if col == nil {
		return false, nil
	}
	if col.PrimaryKey {
		return true, nil
	}

	indexes, err := Indexes(ctx, q, table)
	if err != nil {
		return false, err
	}
	for _, idx := range indexes {
		if idx.Unique && len(idx.Columns) == 1 && idx.Columns[0] == col.Name {
			return true, nil
		}
	}
	return false, nil
}

// Describe returns the complete live description of a table, or nil when it does not exist.
func Describe(ctx context.Context, q Querier, table string) (*Table, error) {
	live, err := FetchLiveColumns(ctx, q, table)
	if err != nil || live == nil {
		return nil, err
	}
	indexes, err := Indexes(ctx, q, table)
	if err != nil {
		return nil, err
	}
	fks, err := ForeignKeys(ctx, q, table)
	if err != nil {
		return nil, err
	}
	return &Table{LiveTable: *live, Indexes: indexes, ForeignKeys: fks}, nil
}
