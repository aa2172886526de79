package conn

import (
	"database/sql"
	"slices"
)

// ScanMaps reads every row into a map keyed by result column name and closes rows.
// Byte slices are copied, since the driver may reuse them.
func ScanMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, vals, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for _, v := range vals {
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = v[i]
		}
		out = append(out, row)
	}
	return out, nil
}

// ScanRows reads every row in result column order and closes rows.
func ScanRows(rows *sql.Rows) ([]string, [][]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i := range vals {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = slices.Clone(b)
			}
		}
		out = append(out, vals)
	}
	return cols, out, rows.Err()
}
