//go:build !cgo_sqlite

package conn

import (
	"database/sql/driver"
	"fmt"

	"modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	driverType = "purego"
)

func registerFunction(name string, f function) error {
	return sqlite.RegisterDeterministicScalarFunction(name, int32(f.nArgs),
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			vals := make([]any, len(args))
			for i, a := range args {
				vals[i] = a
			}
			return f.call(vals...)
		})
}

func registerCollation(name string, cmp Collation) error {
	return sqlite.RegisterCollationUtf8(name, cmp)
}

func buildDSN(target string, memory bool, busyMillis int64) string {
	pragmas := fmt.Sprintf("_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", busyMillis)
	if memory {
		return "file:" + target + "?mode=memory&cache=shared&" + pragmas
	}
	return "file:" + target + "?" + pragmas
}
