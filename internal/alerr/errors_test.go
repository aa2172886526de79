package alerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Constructor Tests
// -----------------------------------------------------------------------------

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    Code
		message string
	}{
		{"declaration", ErrSchemaDeclaration, "autoincrement requires an integer column"},
		{"migration", ErrMigrationFailed, "migration step failed"},
		{"engine", ErrEngineExecution, "statement failed"},
		{"builder", ErrInvalidClause, "GROUP BY is not valid for DELETE"},
		{"persistence", ErrMissingPrimaryKey, "model has no primary key value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)
			if err.GetCode() != tt.code {
				t.Errorf("code = %v, want %v", err.GetCode(), tt.code)
			}
			if err.GetMessage() != tt.message {
				t.Errorf("message = %v, want %v", err.GetMessage(), tt.message)
			}
			if err.GetCause() != nil {
				t.Error("expected nil cause for New()")
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("no such table: t_Person")
	err := Wrap(ErrEngineExecution, cause, "failed to insert row")

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap() did not return the cause")
	}
	if !strings.Contains(err.Error(), "cause: no such table") {
		t.Errorf("Error() = %q, want it to mention the cause", err.Error())
	}
}

func TestErrorFormat(t *testing.T) {
	err := New(ErrMissingPrimaryKey, "model has no primary key value").
		WithTable("t_Person").
		WithColumn("id")

	want := "[E7001] model has no primary key value\n  column: id\n  table: t_Person"
	if got := err.Error(); got != want {
		t.Errorf("Error() =\n%s\nwant\n%s", got, want)
	}
}

// -----------------------------------------------------------------------------
// Code Matching Tests
// -----------------------------------------------------------------------------

func TestErrorIs(t *testing.T) {
	err := New(ErrAmbiguousRename, "two renames")

	if !errors.Is(err, New(ErrAmbiguousRename, "other message")) {
		t.Error("errors.Is with same code should match")
	}
	if errors.Is(err, New(ErrMigrationFailed, "two renames")) {
		t.Error("errors.Is with different code should not match")
	}
}

func TestIsWalksChain(t *testing.T) {
	step := Wrap(ErrMigrationFailed, errors.New("duplicate column name: email"), "migration step failed").
		With("step", 2)
	notReady := Wrap(ErrSchemaNotReady, step, "table is not ready")
	wrapped := fmt.Errorf("insert: %w", notReady)

	if !Is(wrapped, ErrSchemaNotReady) {
		t.Error("Is(ErrSchemaNotReady) = false, want true")
	}
	if !Is(wrapped, ErrMigrationFailed) {
		t.Error("Is(ErrMigrationFailed) = false, want true for the wrapped cause")
	}
	if Is(wrapped, ErrEngineExecution) {
		t.Error("Is(ErrEngineExecution) = true, want false")
	}
	if got := GetErrorCode(wrapped); got != ErrSchemaNotReady {
		t.Errorf("GetErrorCode() = %s, want outermost %s", got, ErrSchemaNotReady)
	}

	v, ok := Context(wrapped, "step")
	if !ok || v != 2 {
		t.Errorf("Context(step) = %v, %v; want 2, true", v, ok)
	}
	if _, ok := Context(wrapped, "missing"); ok {
		t.Error("Context(missing) ok = true, want false")
	}
}

func TestGetErrorCodePlainError(t *testing.T) {
	if got := GetErrorCode(errors.New("plain")); got != "" {
		t.Errorf("GetErrorCode(plain) = %q, want empty", got)
	}
	if got := GetErrorCode(nil); got != "" {
		t.Errorf("GetErrorCode(nil) = %q, want empty", got)
	}
}

func TestWrapEngine(t *testing.T) {
	err := WrapEngine(errors.New("UNIQUE constraint failed"), "insert row", "t_Person", `INSERT INTO "t_Person"`)

	if err.GetCode() != ErrEngineExecution {
		t.Errorf("code = %s, want %s", err.GetCode(), ErrEngineExecution)
	}
	ctx := err.GetContext()
	if ctx["table"] != "t_Person" {
		t.Errorf("table = %v, want t_Person", ctx["table"])
	}
	if ctx["sql"] != `INSERT INTO "t_Person"` {
		t.Errorf("sql = %v", ctx["sql"])
	}
}
