package testutil

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"
)

var memSeq atomic.Int64

// SetupSQLite creates an in-memory SQLite database for testing.
// Each call gets its own database; the connection is closed when the test completes.
func SetupSQLite(t *testing.T) *sql.DB {
	t.Helper()

	// Named shared-cache memory database so every pooled connection sees the same data.
	dsn := fmt.Sprintf("file:litestore_test_%d?mode=memory&cache=shared", memSeq.Add(1))
	return open(t, dsn)
}

// SetupSQLiteFile creates a file-based SQLite database in a temporary directory.
// Returns the connection and the file path.
func SetupSQLiteFile(t *testing.T, name string) (*sql.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	return open(t, path), path
}

func open(t *testing.T, dsn string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite connection: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to ping sqlite: %v", err)
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// AssertTableExists checks that a table exists in the SQLite database.
func AssertTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	exists, err := tableExists(db, table)
	if err != nil {
		t.Fatalf("failed to check if table exists: %v", err)
	}
	if !exists {
		t.Errorf("expected table %q to exist, but it does not", table)
	}
}

// AssertTableNotExists checks that a table does not exist in the SQLite database.
func AssertTableNotExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	exists, err := tableExists(db, table)
	if err != nil {
		t.Fatalf("failed to check if table exists: %v", err)
	}
	if exists {
		t.Errorf("expected table %q to not exist, but it does", table)
	}
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Columns returns the column names of a table in declaration order.
func Columns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		t.Fatalf("failed to get table info: %v", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("failed to read column info: %v", err)
	}
	return cols
}

// AssertColumnExists checks that a column exists in a SQLite table.
func AssertColumnExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()

	for _, c := range Columns(t, db, table) {
		if c == column {
			return
		}
	}
	t.Errorf("expected column %q to exist in table %q, but it does not", column, table)
}

// AssertColumnNotExists checks that a column does not exist in a SQLite table.
func AssertColumnNotExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()

	for _, c := range Columns(t, db, table) {
		if c == column {
			t.Errorf("expected column %q to not exist in table %q, but it does", column, table)
			return
		}
	}
}

// AssertIndexExists checks that an index exists on a SQLite table.
func AssertIndexExists(t *testing.T, db *sql.DB, table, index string) {
	t.Helper()

	var name string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type = 'index' AND tbl_name = ? AND name = ?
	`, table, index).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected index %q to exist on table %q, but it does not", index, table)
		return
	}
	if err != nil {
		t.Fatalf("failed to check if index exists: %v", err)
	}
}

// ExecSQL executes a SQL statement and fails the test on error.
func ExecSQL(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()

	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("failed to execute SQL:\n%s\nerror: %v", query, err)
	}
}

// QuerySQL executes a query and returns the result rows.
// The rows are automatically closed when the test completes.
func QuerySQL(t *testing.T, db *sql.DB, query string, args ...any) *sql.Rows {
	t.Helper()

	rows, err := db.Query(query, args...)
	if err != nil {
		t.Fatalf("failed to query SQL:\n%s\nerror: %v", query, err)
	}

	t.Cleanup(func() {
		rows.Close()
	})

	return rows
}

// AssertRowCount checks that a table has the expected number of rows.
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	var count int
	q := `SELECT COUNT(*) FROM "` + strings.ReplaceAll(table, `"`, `""`) + `"`
	if err := db.QueryRow(q).Scan(&count); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}

	if count != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
}
