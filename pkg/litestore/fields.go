package litestore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hlop3z/litestore/internal/ast"
)

// TimeLayout is how Time fields are stored. SQLite date functions accept it.
const TimeLayout = "2006-01-02 15:04:05.999999999Z07:00"

// Field declares one persistent property of T: its column name, storage type
// and how to read and write it on a *T.
type Field[T any] struct {
	name string
	typ  ast.ColumnType
	get  func(*T) any
	set  func(*T, any) error
}

// Name returns the column name.
func (f Field[T]) Name() string { return f.name }

// Type returns the storage type.
func (f Field[T]) Type() ast.ColumnType { return f.typ }

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32
}

type float interface {
	~float32 | ~float64
}

// Int declares an INTEGER column backed by an integer field.
//
//	litestore.Int("age", func(p *Person) *int { return &p.Age })
func Int[T any, N integer](name string, ptr func(*T) *N) Field[T] {
	return Field[T]{
		name: name,
		typ:  ast.Integer,
		get:  func(v *T) any { return int64(*ptr(v)) },
		set: func(v *T, raw any) error {
			n, err := toInt64(raw)
			if err != nil {
				return err
			}
			*ptr(v) = N(n)
			return nil
		},
	}
}

// Float declares a REAL column.
func Float[T any, F float](name string, ptr func(*T) *F) Field[T] {
	return Field[T]{
		name: name,
		typ:  ast.Real,
		get:  func(v *T) any { return float64(*ptr(v)) },
		set: func(v *T, raw any) error {
			f, err := toFloat64(raw)
			if err != nil {
				return err
			}
			*ptr(v) = F(f)
			return nil
		},
	}
}

// String declares a TEXT column.
func String[T any](name string, ptr func(*T) *string) Field[T] {
	return Field[T]{
		name: name,
		typ:  ast.Text,
		get:  func(v *T) any { return *ptr(v) },
		set: func(v *T, raw any) error {
			switch x := raw.(type) {
			case nil:
				*ptr(v) = ""
			case string:
				*ptr(v) = x
			case []byte:
				*ptr(v) = string(x)
			case time.Time:
				*ptr(v) = x.Format(TimeLayout)
			default:
				*ptr(v) = fmt.Sprint(x)
			}
			return nil
		},
	}
}

// Bool declares a BOOLEAN column, stored as 0 or 1.
func Bool[T any](name string, ptr func(*T) *bool) Field[T] {
	return Field[T]{
		name: name,
		typ:  ast.Boolean,
		get:  func(v *T) any { return *ptr(v) },
		set: func(v *T, raw any) error {
			if b, ok := raw.(bool); ok {
				*ptr(v) = b
				return nil
			}
			n, err := toInt64(raw)
			if err != nil {
				return err
			}
			*ptr(v) = n != 0
			return nil
		},
	}
}

// Bytes declares a BLOB column.
func Bytes[T any](name string, ptr func(*T) *[]byte) Field[T] {
	return Field[T]{
		name: name,
		typ:  ast.Blob,
		get:  func(v *T) any { return *ptr(v) },
		set: func(v *T, raw any) error {
			switch x := raw.(type) {
			case nil:
				*ptr(v) = nil
			case []byte:
				*ptr(v) = x
			case string:
				*ptr(v) = []byte(x)
			default:
				return fmt.Errorf("cannot store %T in a blob field", raw)
			}
			return nil
		},
	}
}

// Time declares a DATETIME column. Values are stored as text in TimeLayout;
// the zero time is stored as NULL.
func Time[T any](name string, ptr func(*T) *time.Time) Field[T] {
	return Field[T]{
		name: name,
		typ:  ast.DateTime,
		get: func(v *T) any {
			t := *ptr(v)
			if t.IsZero() {
				return nil
			}
			return t.Format(TimeLayout)
		},
		set: func(v *T, raw any) error {
			t, err := toTime(raw)
			if err != nil {
				return err
			}
			*ptr(v) = t
			return nil
		},
	}
}

// Col declares a column with explicit accessors, for types the typed
// constructors do not cover.
func Col[T any](name string, typ ast.ColumnType, get func(*T) any, set func(*T, any) error) Field[T] {
	return Field[T]{name: name, typ: typ, get: get, set: set}
}

func toInt64(raw any) (int64, error) {
	switch x := raw.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	case time.Time:
		return x.Unix(), nil
	}
	return 0, fmt.Errorf("cannot convert %T to an integer", raw)
}

func toFloat64(raw any) (float64, error) {
	switch x := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to a float", raw)
}

// timeLayouts are tried in order when a stored time arrives as text.
var timeLayouts = []string{TimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func toTime(raw any) (time.Time, error) {
	switch x := raw.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return x, nil
	case int64:
		return time.Unix(x, 0), nil
	case []byte:
		return parseTime(string(x))
	case string:
		return parseTime(x)
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to a time", raw)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
