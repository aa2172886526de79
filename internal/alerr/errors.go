// Package alerr provides the coded error type used across litestore.
// Every failure carries a stable code, structured context and an optional wrapped cause.
package alerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code represents a stable, machine-readable error code.
// Format: E{category}{number}.
type Code string

// Error codes organized by category.
const (
	// Declaration errors (E1xxx) - problems with a model's declared schema
	ErrSchemaDeclaration   Code = "E1001" // Invalid column or constraint declaration
	ErrDuplicatePrimaryKey Code = "E1002" // More than one primary key or autoincrement column
	ErrForeignKeyTarget    Code = "E1003" // Referenced column is neither unique nor a primary key

	// Migration errors (E3xxx) - problems reconciling declared and live schema
	ErrMigrationFailed Code = "E3001" // A migration step failed; earlier steps are not rolled back
	ErrAmbiguousRename Code = "E3002" // Rename map resolves one column two ways
	ErrSchemaNotReady  Code = "E3003" // Table has not been migrated successfully in this process

	// Engine errors (E4xxx) - problems reported by the SQL engine
	ErrEngineExecution Code = "E4001" // Statement failed to execute
	ErrConnection      Code = "E4002" // Database file could not be opened
	ErrHandleClosed    Code = "E4003" // Handle was closed before the unit ran

	// Statement builder errors (E5xxx)
	ErrInvalidClause       Code = "E5001" // Clause is not legal for the statement kind
	ErrIncompleteStatement Code = "E5002" // A mandatory clause is missing

	// Introspection errors (E6xxx)
	ErrIntrospection Code = "E6001" // Live schema could not be read

	// Persistence errors (E7xxx) - problems with CRUD calls
	ErrMissingPrimaryKey  Code = "E7001" // Model has no primary key value
	ErrHeterogeneousBatch Code = "E7002" // Batch mixes model types
	ErrRecordNotFound     Code = "E7003" // No row matched the primary key
	ErrUnknownModel       Code = "E7004" // Value's type was never bound to the store

	// Internal errors (E9xxx) - unexpected internal errors
	EInternalError Code = "E9001" // Internal error
)

// Error is the standard error type for litestore.
// It provides structured error information with codes, context, and wrapping support.
type Error struct {
	code    Code           // Machine-readable error code
	message string         // Human-readable error message
	context map[string]any // Structured context data
	cause   error          // Wrapped underlying error
}

// Error returns the formatted error string.
// Format:
//
//	[E7001] model has no primary key value
//	  table: t_Person
//	  column: c_no
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.code, e.message))

	// Context in sorted order for deterministic output
	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s: %v", k, e.context[k]))
		}
	}

	if e.cause != nil {
		b.WriteString(fmt.Sprintf("\n  cause: %v", e.cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause error for errors.Unwrap compatibility.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether the target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.code == targetErr.code
	}

	return false
}

// GetCode returns the error code.
func (e *Error) GetCode() Code {
	return e.code
}

// GetMessage returns the error message.
func (e *Error) GetMessage() string {
	return e.message
}

// GetContext returns the error context map.
func (e *Error) GetContext() map[string]any {
	return e.context
}

// GetCause returns the underlying cause error.
func (e *Error) GetCause() error {
	return e.cause
}

// With adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
	return e
}

// WithTable adds table context to the error.
func (e *Error) WithTable(table string) *Error {
	return e.With("table", table)
}

// WithColumn adds column context to the error.
func (e *Error) WithColumn(name string) *Error {
	return e.With("column", name)
}

// WithSQL adds SQL statement context to the error.
func (e *Error) WithSQL(sql string) *Error {
	return e.With("sql", sql)
}

// WithHelp adds a help suggestion to the error (displayed as "help: ...").
func (e *Error) WithHelp(help string) *Error {
	helps, _ := e.context["helps"].([]string)
	helps = append(helps, help)
	return e.With("helps", helps)
}

// Helps returns all help suggestions attached to this error.
func (e *Error) Helps() []string {
	helps, _ := e.context["helps"].([]string)
	return helps
}

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(code Code, err error, msg string) *Error {
	e := New(code, msg)
	e.cause = err
	return e
}

// Wrapf creates a new Error that wraps an existing error with a formatted message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

// GetErrorCode extracts the outermost error code from an error chain.
// Returns empty string if no code is found.
func GetErrorCode(err error) Code {
	if err == nil {
		return ""
	}

	var alerr *Error
	if errors.As(err, &alerr) {
		return alerr.code
	}

	return ""
}

// Is checks if an error, or any coded error it wraps, has the specified code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.code == code {
			return true
		}
		err = e.cause
	}
	return false
}

// Context returns the value stored under key by the first coded error in the chain that has it.
func Context(err error, key string) (any, bool) {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return nil, false
		}
		if v, ok := e.context[key]; ok {
			return v, true
		}
		err = e.cause
	}
	return nil, false
}

// WrapEngine creates an ErrEngineExecution error carrying the driver message and SQL.
// Example: WrapEngine(err, "insert row", "t_Person", sql)
func WrapEngine(err error, op, table, sql string) *Error {
	e := Wrap(ErrEngineExecution, err, "failed to "+op)
	if table != "" {
		e.WithTable(table)
	}
	if sql != "" {
		e.WithSQL(sql)
	}
	return e
}
