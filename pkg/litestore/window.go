package litestore

import (
	"time"

	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/sqlgen"
)

// Time bucketing for Statement conditions and groupings.
type (
	Window = sqlgen.Window
	Unit   = sqlgen.Unit
)

// Bucket units.
const (
	Hour  = sqlgen.Hour
	Day   = sqlgen.Day
	Week  = sqlgen.Week
	Month = sqlgen.Month
	Year  = sqlgen.Year
)

// BucketLayout is the text form of bucket bounds produced by SQLite.
const BucketLayout = sqlgen.TimeLayout

// NewSelect starts a row query over a model's table, for use as a union
// operand or with Table.SelectMaps. model may be a model or table name.
func NewSelect(model string) *Statement {
	return sqlgen.NewSelect(ast.TableName(model))
}

// BucketStart returns the SQL expression for the start of col's bucket.
func BucketStart(col string, w Window) string { return sqlgen.BucketStart(col, w) }

// BucketEnd returns the SQL expression for the end of col's bucket.
func BucketEnd(col string, w Window) string { return sqlgen.BucketEnd(col, w) }

// BucketStartTime returns the start of the bucket at falls in.
func BucketStartTime(w Window, at time.Time) time.Time { return sqlgen.BucketStartTime(w, at) }

// InWindow returns a condition matching rows whose col shares at's bucket.
//
//	cond, arg := litestore.InWindow("born", litestore.Window{Unit: litestore.Month}, time.Now())
//	people.Select(ctx, func(st *litestore.Statement) { st.Where(cond, arg) })
func InWindow(col string, w Window, at time.Time) (string, any) {
	return sqlgen.InWindow(col, w, at)
}

// YearIs returns a condition on the calendar year of col.
func YearIs(col string, w Window, year int) (string, any) { return sqlgen.YearIs(col, w, year) }

// MonthIs returns a condition on the month of col, 1 through 12.
func MonthIs(col string, w Window, month int) (string, any) { return sqlgen.MonthIs(col, w, month) }

// DayIs returns a condition on the day of month of col.
func DayIs(col string, w Window, day int) (string, any) { return sqlgen.DayIs(col, w, day) }
