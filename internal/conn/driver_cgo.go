//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
package conn

import (
	"database/sql"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	driverName = "litestore_sqlite3"
	driverType = "cgo"
)

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{ConnectHook: connectHook})
}

// connectHook installs every registered extension on a new connection.
func connectHook(c *sqlite3.SQLiteConn) error {
	extensions.Lock()
	defer extensions.Unlock()

	for name, f := range extensions.funcs {
		if err := c.RegisterFunc(name, f.call, true); err != nil {
			return fmt.Errorf("register function %s: %w", name, err)
		}
	}
	for name, cmp := range extensions.collations {
		if err := c.RegisterCollation(name, cmp); err != nil {
			return fmt.Errorf("register collation %s: %w", name, err)
		}
	}
	return nil
}

// mattn/go-sqlite3 has no driver-wide registry; the connect hook reads extensions instead.
func registerFunction(string, function) error { return nil }

func registerCollation(string, Collation) error { return nil }

func buildDSN(target string, memory bool, busyMillis int64) string {
	params := fmt.Sprintf("_foreign_keys=1&_busy_timeout=%d", busyMillis)
	if memory {
		return "file:" + target + "?mode=memory&cache=shared&" + params
	}
	return "file:" + target + "?" + params
}
