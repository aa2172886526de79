package introspect

import (
	"strings"

	"github.com/hlop3z/litestore/internal/ast"
)

// MapSQLiteType maps a declared SQL type to a column type.
// Exact names written by the dialect map back to their type; anything else
// falls back to SQLite's column affinity rules.
func MapSQLiteType(sqlType string) ast.ColumnType {
	upper := strings.ToUpper(strings.TrimSpace(sqlType))

	switch upper {
	case "BOOLEAN", "BOOL":
		return ast.Boolean
	case "DATETIME", "DATE", "TIMESTAMP":
		return ast.DateTime
	}

	switch {
	case strings.Contains(upper, "INT"):
		return ast.Integer
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "CLOB"), strings.Contains(upper, "TEXT"):
		return ast.Text
	case upper == "", strings.Contains(upper, "BLOB"):
		return ast.Blob
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"), strings.Contains(upper, "DOUB"):
		return ast.Real
	default:
		return ast.Numeric
	}
}
