package sqlgen

import (
	"fmt"
	"strings"
	"time"
)

// Unit is the length of a time bucket.
type Unit int

const (
	Hour Unit = iota
	Day
	Week
	Month
	Year
)

// String returns the string representation of the unit.
func (u Unit) String() string {
	switch u {
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}

// TimeLayout is the text form SQLite date functions produce.
const TimeLayout = "2006-01-02 15:04:05"

// Window describes how a time column is cut into buckets.
//
// Unix marks integer columns holding seconds since the epoch. Local converts
// the value to local time before bucketing. WeekStart applies to Week and
// Hours, the bucket width in hours, to Hour.
type Window struct {
	Unit      Unit
	WeekStart time.Weekday
	Hours     int
	Unix      bool
	Local     bool
}

func (w Window) hours() int {
	if w.Hours < 1 {
		return 1
	}
	return w.Hours
}

// value returns the time-value arguments of a SQLite date function for col.
func (w Window) value(col string) string {
	var b strings.Builder
	b.WriteString(col)
	if w.Unix {
		b.WriteString(", 'unixepoch'")
	}
	if w.Local {
		b.WriteString(", 'localtime'")
	}
	return b.String()
}

// BucketStart returns an expression for the start of the bucket col falls in.
func BucketStart(col string, w Window) string {
	v := w.value(col)
	switch w.Unit {
	case Hour:
		return fmt.Sprintf(
			"datetime(%s, 'start of day', '+' || ((CAST(strftime('%%H', %s) AS INTEGER) / %d) * %d) || ' hours')",
			v, v, w.hours(), w.hours())
	case Week:
		return fmt.Sprintf(
			"datetime(%s, 'start of day', '-' || ((CAST(strftime('%%w', %s) AS INTEGER) - %d + 7) %% 7) || ' days')",
			v, v, int(w.WeekStart))
	case Month:
		return fmt.Sprintf("datetime(%s, 'start of month')", v)
	case Year:
		return fmt.Sprintf("datetime(%s, 'start of year')", v)
	default:
		return fmt.Sprintf("datetime(%s, 'start of day')", v)
	}
}

// BucketEnd returns an expression for the exclusive end of the bucket col falls in.
func BucketEnd(col string, w Window) string {
	return fmt.Sprintf("datetime(%s, '%s')", BucketStart(col, w), w.step())
}

func (w Window) step() string {
	switch w.Unit {
	case Hour:
		return fmt.Sprintf("+%d hours", w.hours())
	case Week:
		return "+7 days"
	case Month:
		return "+1 month"
	case Year:
		return "+1 year"
	default:
		return "+1 day"
	}
}

// InWindow returns a condition matching rows whose col falls in the same
// bucket as at. Pass the result straight to Statement.Where.
//
// at is read as wall-clock time in the zone the column is compared in: local
// time with Local, UTC for Unix columns, and its own zone otherwise.
func InWindow(col string, w Window, at time.Time) (string, any) {
	switch {
	case w.Local:
		at = at.In(time.Local)
	case w.Unix:
		at = at.UTC()
	}
	return BucketStart(col, w) + " = ?", BucketStartTime(w, at).Format(TimeLayout)
}

// BucketStartTime computes in Go the bucket start BucketStart computes in SQL.
func BucketStartTime(w Window, at time.Time) time.Time {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	switch w.Unit {
	case Hour:
		k := w.hours()
		return day.Add(time.Duration((at.Hour()/k)*k) * time.Hour)
	case Week:
		back := (int(at.Weekday()) - int(w.WeekStart) + 7) % 7
		return day.AddDate(0, 0, -back)
	case Month:
		return time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, at.Location())
	case Year:
		return time.Date(at.Year(), time.January, 1, 0, 0, 0, 0, at.Location())
	default:
		return day
	}
}

// YearIs returns a condition matching rows whose col falls in year.
func YearIs(col string, w Window, year int) (string, any) {
	return part(col, w, "%Y"), year
}

// MonthIs returns a condition matching rows whose col falls in month (1-12).
func MonthIs(col string, w Window, month int) (string, any) {
	return part(col, w, "%m"), month
}

// DayIs returns a condition matching rows whose col falls on day of month (1-31).
func DayIs(col string, w Window, day int) (string, any) {
	return part(col, w, "%d"), day
}

func part(col string, w Window, format string) string {
	return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER) = ?", format, w.value(col))
}
