package litestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/dialect"
	"github.com/hlop3z/litestore/internal/engine"
	"github.com/hlop3z/litestore/internal/introspect"
	"github.com/hlop3z/litestore/internal/sqlgen"
	"github.com/hlop3z/litestore/internal/strutil"
)

// Table gives typed access to the table a model is stored in.
//
// Every call first makes sure the table was migrated in this process. A failed
// migration is remembered: later calls fail with ErrSchemaNotReady until
// Migrate succeeds.
type Table[T any] struct {
	store  *Store
	db     *Database
	model  string
	schema *ast.TableSchema

	stored  []Field[T]          // fields with a column, in declaration order
	decode  map[string]Field[T] // stored and ignored fields by column name
	key     *Field[T]
	autoinc bool
	rowID   func(*T) *int64
}

func newTable[T any](s *Store, db *Database, model string, schema *ast.TableSchema, m Model[T]) *Table[T] {
	t := &Table[T]{
		store:  s,
		db:     db,
		model:  model,
		schema: schema,
		decode: make(map[string]Field[T], len(m.Fields)),
		rowID:  m.RowID,
	}
	pk := schema.PrimaryKey()
	for _, f := range m.Fields {
		if slices.Contains(m.Exclude, f.name) {
			continue
		}
		t.decode[f.name] = f
		if slices.Contains(m.Ignore, f.name) {
			continue
		}
		t.stored = append(t.stored, f)
		if pk != nil && pk.Name == f.name {
			t.key = &f
			t.autoinc = pk.Autoincrement
		}
	}
	return t
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.schema.Name }

// Model returns the model name.
func (t *Table[T]) Model() string { return t.model }

// Version returns the declared schema version.
func (t *Table[T]) Version() string { return t.schema.Version }

// Database returns the database the table lives in.
func (t *Table[T]) Database() *Database { return t.db }

// KeyColumn returns the column rows are addressed by.
func (t *Table[T]) KeyColumn() string { return t.schema.KeyColumn() }

func (t *Table[T]) ensure(ctx context.Context) error {
	if t.db.handle.Owns(ctx) {
		return t.db.reg.EnsureInline(ctx, t.schema.Name, t.db.migrate)
	}
	return t.db.reg.Ensure(ctx, t.schema.Name, t.db.migrate)
}

// Migrate runs the migration again, typically after a failure was fixed.
func (t *Table[T]) Migrate(ctx context.Context) error {
	if t.db.handle.Owns(ctx) {
		return t.db.reg.RetryInline(ctx, t.schema.Name, t.db.migrate)
	}
	return t.db.reg.Retry(ctx, t.schema.Name, t.db.migrate)
}

// ResetSchema forgets the migration outcome; the next call migrates again.
func (t *Table[T]) ResetSchema() {
	t.db.reg.Reset(t.schema.Name)
}

// -----------------------------------------------------------------------------
// Keys and values
// -----------------------------------------------------------------------------

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case int64:
		return x == 0
	case float64:
		return x == 0
	case string:
		return x == ""
	case bool:
		return !x
	case []byte:
		return len(x) == 0
	}
	return false
}

// keyOf returns the primary key value of v, or ErrMissingPrimaryKey.
func (t *Table[T]) keyOf(v *T, op string) (any, error) {
	if v == nil {
		return nil, alerr.New(alerr.ErrMissingPrimaryKey, "model is nil").WithTable(t.schema.Name).With("operation", op)
	}
	switch {
	case t.key != nil:
		// Zero means unassigned only for engine-assigned keys.
		if val := t.key.get(v); val != nil && !(t.autoinc && isZero(val)) {
			return val, nil
		}
	case t.rowID != nil:
		if p := t.rowID(v); p != nil && *p != 0 {
			return *p, nil
		}
	}

	err := alerr.New(alerr.ErrMissingPrimaryKey, "model has no primary key value").
		WithTable(t.schema.Name).
		With("operation", op).
		With("key", t.schema.KeyColumn())
	if t.key == nil && t.rowID == nil {
		err.WithHelp("declare a primary key or set Model.RowID to address rows by c_no")
	}
	return nil, err
}

// valueColumns returns the stored columns other than the key.
func (t *Table[T]) valueColumns() []string {
	cols := make([]string, 0, len(t.stored))
	for _, f := range t.stored {
		if t.key == nil || f.name != t.key.name {
			cols = append(cols, f.name)
		}
	}
	return cols
}

func (t *Table[T]) checkColumns(names []string) error {
	known := make([]string, len(t.stored))
	for i, f := range t.stored {
		known[i] = f.name
	}
	for _, n := range names {
		if !slices.Contains(known, n) {
			return alerr.New(alerr.ErrSchemaDeclaration, "unknown column").
				WithTable(t.schema.Name).
				WithColumn(n).
				WithSuggestion(n, known)
		}
	}
	return nil
}

func (t *Table[T]) insertStatement(v *T, replace bool) (string, []any) {
	cols := make([]string, 0, len(t.stored)+1)
	args := make([]any, 0, len(t.stored)+1)
	for _, f := range t.stored {
		val := f.get(v)
		// The engine assigns autoincrement keys unless a replace names the row.
		if t.key != nil && f.name == t.key.name && t.autoinc && (!replace || isZero(val)) {
			continue
		}
		cols = append(cols, f.name)
		args = append(args, val)
	}
	if t.key == nil && replace && t.rowID != nil {
		if p := t.rowID(v); p != nil && *p != 0 {
			cols = append(cols, ast.ColumnDefaultPK)
			args = append(args, *p)
		}
	}

	// Audit columns added to an adopted table carry no default, so every
	// insert writes them.
	values := make([]string, len(cols), len(cols)+2)
	for i := range values {
		values[i] = "?"
	}
	for _, c := range ast.AuditColumns() {
		cols = append(cols, c.Name)
		values = append(values, dialect.SQLite().DefaultSQL(c.Default))
	}

	verb := "INSERT"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, strutil.QuoteSQL(t.schema.Name), strutil.QuoteList(cols), strings.Join(values, ", ")), args
}

// assignID writes an engine-assigned row id back into v.
func (t *Table[T]) assignID(v *T, id int64) {
	switch {
	case t.key != nil && t.autoinc:
		_ = t.key.set(v, id)
	case t.key == nil && t.rowID != nil:
		if p := t.rowID(v); p != nil {
			*p = id
		}
	}
}

func (t *Table[T]) updateStatement(v *T, cols []string, key any) *sqlgen.Statement {
	st := sqlgen.NewUpdate(t.schema.Name)
	for _, c := range cols {
		st.Set(c, t.decode[c].get(v))
	}
	return st.Where(strutil.QuoteSQL(t.schema.KeyColumn())+" = ?", key)
}

func (t *Table[T]) keyCondition(st *sqlgen.Statement, key any) *sqlgen.Statement {
	return st.Where(strutil.QuoteSQL(t.schema.KeyColumn())+" = ?", key)
}

// fill copies a result row into v. Columns without a matching field are skipped.
func (t *Table[T]) fill(v *T, row map[string]any) error {
	for col, val := range row {
		if f, ok := t.decode[col]; ok {
			if err := f.set(v, val); err != nil {
				return alerr.Wrap(alerr.EInternalError, err, "failed to read column").
					WithTable(t.schema.Name).
					WithColumn(col)
			}
			continue
		}
		if col == ast.ColumnDefaultPK && t.rowID != nil {
			if p := t.rowID(v); p != nil {
				n, err := toInt64(val)
				if err != nil {
					return alerr.Wrap(alerr.EInternalError, err, "failed to read row id").WithTable(t.schema.Name)
				}
				*p = n
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Insert
// -----------------------------------------------------------------------------

// Insert stores v. An autoincrement key, or the row id when Model.RowID is
// set, is written back into v.
func (t *Table[T]) Insert(ctx context.Context, v *T) error {
	return t.insert(ctx, v, false)
}

// InsertOrReplace stores v, replacing any row with the same key or unique value.
func (t *Table[T]) InsertOrReplace(ctx context.Context, v *T) error {
	return t.insert(ctx, v, true)
}

func (t *Table[T]) insert(ctx context.Context, v *T, replace bool) error {
	if v == nil {
		return alerr.New(alerr.EInternalError, "cannot insert a nil model").WithTable(t.schema.Name)
	}
	if err := t.ensure(ctx); err != nil {
		return err
	}
	query, args := t.insertStatement(v, replace)
	res, err := t.db.handle.ExecIn(ctx, t.schema.Name, query, args...)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		t.assignID(v, id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Update
// -----------------------------------------------------------------------------

// Update writes every stored column of v to the row with v's key.
func (t *Table[T]) Update(ctx context.Context, v *T) error {
	return t.update(ctx, v, "update", t.valueColumns())
}

// UpdateColumns writes only the named columns.
func (t *Table[T]) UpdateColumns(ctx context.Context, v *T, columns ...string) error {
	if err := t.checkColumns(columns); err != nil {
		return err
	}
	return t.update(ctx, v, "update columns", t.withoutKey(columns))
}

// UpdateExcluding writes every stored column except the named ones.
func (t *Table[T]) UpdateExcluding(ctx context.Context, v *T, exclude ...string) error {
	if err := t.checkColumns(exclude); err != nil {
		return err
	}
	return t.update(ctx, v, "update excluding", strutil.Without(t.valueColumns(), exclude))
}

func (t *Table[T]) withoutKey(cols []string) []string {
	if t.key == nil {
		return cols
	}
	return strutil.Without(cols, []string{t.key.name})
}

func (t *Table[T]) update(ctx context.Context, v *T, op string, cols []string) error {
	// The key is checked before anything reaches the engine.
	key, err := t.keyOf(v, op)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return alerr.New(alerr.ErrIncompleteStatement, "no columns to update").WithTable(t.schema.Name)
	}
	if err := t.ensure(ctx); err != nil {
		return err
	}

	query, args, err := t.updateStatement(v, cols, key).Render()
	if err != nil {
		return err
	}
	res, err := t.db.handle.ExecIn(ctx, t.schema.Name, query, args...)
	if err != nil {
		return err
	}
	return t.expectRow(res, key)
}

func (t *Table[T]) expectRow(res sql.Result, key any) error {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return alerr.New(alerr.ErrRecordNotFound, "no row has this primary key").
			WithTable(t.schema.Name).
			With("key", key)
	}
	return nil
}

// UpdateWith runs an UPDATE configured by fn and returns the affected row count.
// A nil fn runs nothing.
func (t *Table[T]) UpdateWith(ctx context.Context, fn func(*Statement)) (int64, error) {
	if fn == nil {
		return 0, nil
	}
	return t.execStatement(ctx, sqlgen.Update, fn)
}

// -----------------------------------------------------------------------------
// Delete
// -----------------------------------------------------------------------------

// Delete removes the row with v's key.
func (t *Table[T]) Delete(ctx context.Context, v *T) error {
	key, err := t.keyOf(v, "delete")
	if err != nil {
		return err
	}
	_, err = t.DeleteByPrimaryKeys(ctx, key)
	return err
}

// DeleteByPrimaryKey removes the row with the given key.
func (t *Table[T]) DeleteByPrimaryKey(ctx context.Context, key any) error {
	_, err := t.DeleteByPrimaryKeys(ctx, key)
	return err
}

// DeleteByPrimaryKeys removes every row whose key is listed and returns how many went.
func (t *Table[T]) DeleteByPrimaryKeys(ctx context.Context, keys ...any) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return t.execStatement(ctx, sqlgen.Delete, func(st *Statement) {
		st.WhereIn(t.schema.KeyColumn(), keys...)
	})
}

// DeleteWith runs a DELETE configured by fn. A nil fn deletes every row.
func (t *Table[T]) DeleteWith(ctx context.Context, fn func(*Statement)) (int64, error) {
	return t.execStatement(ctx, sqlgen.Delete, fn)
}

func (t *Table[T]) execStatement(ctx context.Context, kind sqlgen.Kind, fn func(*Statement)) (int64, error) {
	st := sqlgen.New(kind, t.schema.Name)
	if fn != nil {
		fn(st)
	}
	query, args, err := st.Render()
	if err != nil {
		return 0, err
	}
	if err := t.ensure(ctx); err != nil {
		return 0, err
	}
	res, err := t.db.handle.ExecIn(ctx, t.schema.Name, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// -----------------------------------------------------------------------------
// Select
// -----------------------------------------------------------------------------

// SelectByPrimaryKey loads the row with the given key.
func (t *Table[T]) SelectByPrimaryKey(ctx context.Context, key any) (*T, error) {
	v := new(T)
	if err := t.load(ctx, v, key); err != nil {
		return nil, err
	}
	return v, nil
}

// Reload refreshes v from the row with v's key.
func (t *Table[T]) Reload(ctx context.Context, v *T) error {
	key, err := t.keyOf(v, "reload")
	if err != nil {
		return err
	}
	return t.load(ctx, v, key)
}

func (t *Table[T]) load(ctx context.Context, v *T, key any) error {
	rows, err := t.SelectMaps(ctx, func(st *Statement) {
		t.keyCondition(st, key).Limit(0, 1)
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return alerr.New(alerr.ErrRecordNotFound, "no row has this primary key").
			WithTable(t.schema.Name).
			With("key", key)
	}
	return t.fill(v, rows[0])
}

// Select runs a SELECT configured by fn and converts every row to T.
// A nil fn selects every row.
func (t *Table[T]) Select(ctx context.Context, fn func(*Statement)) ([]*T, error) {
	rows, err := t.SelectMaps(ctx, fn)
	if err != nil {
		return nil, err
	}
	return decodeRows(t, rows)
}

func decodeRows[T any](t *Table[T], rows []map[string]any) ([]*T, error) {
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		v := new(T)
		if err := t.fill(v, row); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SelectInto runs a SELECT against src and converts rows with dst's fields,
// including dst's ignored fields. Use it for joins and renamed result columns.
func SelectInto[U, T any](ctx context.Context, src *Table[T], dst *Table[U], fn func(*Statement)) ([]*U, error) {
	rows, err := src.SelectMaps(ctx, func(st *Statement) {
		st.ToModel(dst.model)
		if fn != nil {
			fn(st)
		}
	})
	if err != nil {
		return nil, err
	}
	return decodeRows(dst, rows)
}

// SelectMaps runs a SELECT configured by fn and returns rows as column maps.
func (t *Table[T]) SelectMaps(ctx context.Context, fn func(*Statement)) ([]map[string]any, error) {
	st := sqlgen.NewSelect(t.schema.Name)
	if fn != nil {
		fn(st)
	}
	query, args, err := st.Render()
	if err != nil {
		return nil, err
	}
	if err := t.ensure(ctx); err != nil {
		return nil, err
	}
	return t.db.handle.Query(ctx, query, args...)
}

// SelectJSON returns the rows as an indented JSON array, audit columns included.
// It is meant for debugging.
func (t *Table[T]) SelectJSON(ctx context.Context, fn func(*Statement)) (string, error) {
	rows, err := t.SelectMaps(ctx, fn)
	if err != nil {
		return "", err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", alerr.Wrap(alerr.EInternalError, err, "failed to encode rows").WithTable(t.schema.Name)
	}
	return string(data), nil
}

// Count runs a SELECT COUNT configured by fn.
func (t *Table[T]) Count(ctx context.Context, fn func(*Statement)) (int64, error) {
	st := sqlgen.NewCount(t.schema.Name)
	if fn != nil {
		fn(st)
	}
	query, args, err := st.Render()
	if err != nil {
		return 0, err
	}
	if err := t.ensure(ctx); err != nil {
		return 0, err
	}

	var n int64
	err = t.db.handle.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return alerr.WrapEngine(err, "count rows", t.schema.Name, query)
		}
		return nil
	})
	return n, err
}

// -----------------------------------------------------------------------------
// Batches
// -----------------------------------------------------------------------------

// InsertAll inserts items in one transaction.
func (t *Table[T]) InsertAll(ctx context.Context, items []*T) error {
	return t.insertAll(ctx, items, false)
}

// InsertOrReplaceAll inserts or replaces items in one transaction.
func (t *Table[T]) InsertOrReplaceAll(ctx context.Context, items []*T) error {
	return t.insertAll(ctx, items, true)
}

func (t *Table[T]) insertAll(ctx context.Context, items []*T, replace bool) error {
	if len(items) == 0 {
		return nil
	}
	for i, v := range items {
		if v == nil {
			return alerr.New(alerr.EInternalError, "batch contains a nil model").
				WithTable(t.schema.Name).
				With("index", i)
		}
	}
	if err := t.ensure(ctx); err != nil {
		return err
	}

	ids := make([]int64, len(items))
	err := t.db.handle.Tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i, v := range items {
			query, args := t.insertStatement(v, replace)
			res, err := t.db.handle.ExecTx(ctx, tx, t.schema.Name, query, args...)
			if err != nil {
				return atIndex(err, i)
			}
			ids[i], _ = res.LastInsertId()
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i, v := range items {
		t.assignID(v, ids[i])
	}
	return nil
}

// UpdateAll updates items in one transaction. Every item needs a key.
func (t *Table[T]) UpdateAll(ctx context.Context, items []*T) error {
	keys, err := t.keysOf(items, "update all")
	if err != nil || len(keys) == 0 {
		return err
	}
	cols := t.valueColumns()
	if len(cols) == 0 {
		return alerr.New(alerr.ErrIncompleteStatement, "no columns to update").WithTable(t.schema.Name)
	}
	if err := t.ensure(ctx); err != nil {
		return err
	}

	return t.db.handle.Tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i, v := range items {
			query, args, err := t.updateStatement(v, cols, keys[i]).Render()
			if err != nil {
				return atIndex(err, i)
			}
			res, err := t.db.handle.ExecTx(ctx, tx, t.schema.Name, query, args...)
			if err != nil {
				return atIndex(err, i)
			}
			if err := t.expectRow(res, keys[i]); err != nil {
				return atIndex(err, i)
			}
		}
		return nil
	})
}

// DeleteAll deletes items in one statement. Every item needs a key.
func (t *Table[T]) DeleteAll(ctx context.Context, items []*T) error {
	keys, err := t.keysOf(items, "delete all")
	if err != nil {
		return err
	}
	_, err = t.DeleteByPrimaryKeys(ctx, keys...)
	return err
}

func (t *Table[T]) keysOf(items []*T, op string) ([]any, error) {
	keys := make([]any, len(items))
	for i, v := range items {
		k, err := t.keyOf(v, op)
		if err != nil {
			return nil, atIndex(err, i)
		}
		keys[i] = k
	}
	return keys, nil
}

// atIndex records the batch position of a failed item.
func atIndex(err error, i int) error {
	var e *alerr.Error
	if errors.As(err, &e) {
		return e.With("index", i)
	}
	return err
}

// -----------------------------------------------------------------------------
// Table maintenance
// -----------------------------------------------------------------------------

// ResetSequence sets the autoincrement counter, so the next key is value+1.
func (t *Table[T]) ResetSequence(ctx context.Context, value int64) error {
	if err := t.ensure(ctx); err != nil {
		return err
	}
	_, err := t.db.handle.ExecIn(ctx, t.schema.Name,
		"UPDATE sqlite_sequence SET seq = ? WHERE name = ?", value, t.schema.Name)
	return err
}

// DropTable drops the table and its version record. The next call creates it again.
func (t *Table[T]) DropTable(ctx context.Context) error {
	d := dialect.SQLite()
	err := t.db.handle.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		query := d.DropTableSQL(t.schema.Name)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return alerr.WrapEngine(err, "drop table", t.schema.Name, query)
		}
		v := engine.NewVersionManager(db, d)
		if err := v.EnsureTable(ctx); err != nil {
			return err
		}
		return v.Forget(ctx, t.schema.Name)
	})
	if err != nil {
		return err
	}
	t.db.reg.Reset(t.schema.Name)
	t.db.logger.Info("dropped table", "table", t.schema.Name)
	return nil
}

// DropIndexes drops every index created for the table's Index and UniqueIndex
// constraints. Indexes backing UNIQUE and PRIMARY KEY stay.
func (t *Table[T]) DropIndexes(ctx context.Context) error {
	d := dialect.SQLite()
	return t.db.handle.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		indexes, err := introspect.Indexes(ctx, db, t.schema.Name)
		if err != nil {
			return err
		}
		for _, idx := range indexes {
			if idx.Origin != "c" {
				continue
			}
			query := d.DropIndexSQL(idx.Name)
			if _, err := db.ExecContext(ctx, query); err != nil {
				return alerr.WrapEngine(err, "drop index", t.schema.Name, query)
			}
		}
		return nil
	})
}

// CreateTableSQL returns the DDL that creates the table and its indexes.
func (t *Table[T]) CreateTableSQL() (string, error) {
	stmts, err := dialect.SQLite().OperationSQL(&ast.CreateTable{
		TableName:   t.schema.Name,
		Columns:     t.schema.AllColumns(),
		IfNotExists: true,
	})
	if err != nil {
		return "", err
	}
	return strings.Join(stmts, ";\n") + ";", nil
}

// Columns returns the table's column list minus exclude, qualified with alias
// when it is not empty. The result drops into Statement.Select.
func (t *Table[T]) Columns(exclude []string, alias string) string {
	var names []string
	for _, c := range t.schema.AllColumns() {
		names = append(names, c.Name)
	}
	return strutil.QualifyList(alias, strutil.Without(names, exclude))
}
