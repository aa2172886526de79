package registry

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/engine"
	"github.com/hlop3z/litestore/internal/testutil"
)

func tableDef(name string) *ast.TableSchema {
	return &ast.TableSchema{
		Name:    name,
		Version: "0.0.1",
		Columns: []*ast.ColumnConstraint{{Name: "title", Type: ast.Text}},
	}
}

func TestNew(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("New() returned nil")
	}
	if len(r.Tables()) != 0 {
		t.Errorf("New registry should be empty, got %v", r.Tables())
	}
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	testutil.Must(t, r.Register(tableDef("t_B"), nil))
	testutil.Must(t, r.Register(tableDef("t_A"), engine.NewRenameMap()))

	if got := r.Tables(); !slices.Equal(got, []string{"t_A", "t_B"}) {
		t.Errorf("Tables() = %v", got)
	}
	if r.Schema("t_A") == nil || r.Schema("t_Missing") != nil {
		t.Error("Schema() lookup mismatch")
	}

	// Same schema again is fine.
	testutil.Must(t, r.Register(tableDef("t_A"), nil))

	changed := tableDef("t_A")
	changed.Columns = append(changed.Columns, &ast.ColumnConstraint{Name: "body", Type: ast.Text})
	testutil.AssertError(t, r.Register(changed, nil), alerr.ErrSchemaDeclaration)

	testutil.AssertError(t, r.Register(nil, nil), alerr.ErrSchemaDeclaration)
}

func TestRegistry_StateUnknown(t *testing.T) {
	r := New()
	_, err := r.State("t_Missing")
	testutil.AssertError(t, err, alerr.ErrUnknownModel)
	testutil.AssertError(t, r.Ensure(context.Background(), "t_Missing", nil), alerr.ErrUnknownModel)
}

func TestRegistry_EnsureRunsOnce(t *testing.T) {
	r := New()
	testutil.Must(t, r.Register(tableDef("t_A"), nil))

	var calls atomic.Int32
	migrate := func(ctx context.Context, s *ast.TableSchema, _ *engine.RenameMap) error {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Ensure(context.Background(), "t_A", migrate); err != nil {
				t.Errorf("Ensure() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("migrate ran %d times, want 1", got)
	}
	if state, _ := r.State("t_A"); state != Ready {
		t.Errorf("State() = %v, want ready", state)
	}
}

func TestRegistry_FailureIsRemembered(t *testing.T) {
	r := New()
	testutil.Must(t, r.Register(tableDef("t_A"), nil))
	ctx := context.Background()

	boom := alerr.New(alerr.ErrMigrationFailed, "migration step failed").With("step", 2)
	var calls int
	failing := func(context.Context, *ast.TableSchema, *engine.RenameMap) error {
		calls++
		return boom
	}

	err := r.Ensure(ctx, "t_A", failing)
	if !errors.Is(err, boom) {
		t.Fatalf("first Ensure() = %v, want migration error", err)
	}

	err = r.Ensure(ctx, "t_A", failing)
	testutil.AssertError(t, err, alerr.ErrSchemaNotReady)
	testutil.AssertErrorChain(t, err, alerr.ErrMigrationFailed)
	if step, _ := alerr.Context(err, "step"); step != 2 {
		t.Errorf("step = %v, want 2", step)
	}
	if calls != 1 {
		t.Errorf("migrate ran %d times, want no automatic retry", calls)
	}
	if state, _ := r.State("t_A"); state != Failed {
		t.Errorf("State() = %v, want failed", state)
	}

	// Explicit retry runs again and recovers.
	ok := func(context.Context, *ast.TableSchema, *engine.RenameMap) error { return nil }
	testutil.Must(t, r.Retry(ctx, "t_A", ok))
	testutil.Must(t, r.Ensure(ctx, "t_A", failing))
	if calls != 1 {
		t.Errorf("Ensure() on a ready table must not migrate")
	}
}

func TestRegistry_EnsureInlineSkipsFlight(t *testing.T) {
	r := New()
	testutil.Must(t, r.Register(tableDef("t_A"), nil))
	ctx := context.Background()

	// A shared run is parked until the inline caller finishes, the way a
	// queued migration waits behind the unit that holds the worker.
	release := make(chan struct{})
	started := make(chan struct{})
	flight := make(chan error, 1)
	go func() {
		flight <- r.Ensure(ctx, "t_A", func(context.Context, *ast.TableSchema, *engine.RenameMap) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	inline := make(chan error, 1)
	go func() {
		inline <- r.EnsureInline(ctx, "t_A", func(context.Context, *ast.TableSchema, *engine.RenameMap) error {
			return nil
		})
	}()
	select {
	case err := <-inline:
		testutil.Must(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("EnsureInline() waited on the shared run")
	}
	if state, _ := r.State("t_A"); state != Ready {
		t.Errorf("State() = %v, want ready", state)
	}

	close(release)
	testutil.Must(t, <-flight)
}

func TestRegistry_RetryInline(t *testing.T) {
	r := New()
	testutil.Must(t, r.Register(tableDef("t_A"), nil))
	ctx := context.Background()

	boom := errors.New("boom")
	err := r.EnsureInline(ctx, "t_A", func(context.Context, *ast.TableSchema, *engine.RenameMap) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("EnsureInline() = %v, want migration error", err)
	}
	err = r.EnsureInline(ctx, "t_A", nil)
	testutil.AssertError(t, err, alerr.ErrSchemaNotReady)

	testutil.Must(t, r.RetryInline(ctx, "t_A", func(context.Context, *ast.TableSchema, *engine.RenameMap) error { return nil }))
	testutil.AssertError(t, r.EnsureInline(ctx, "t_Missing", nil), alerr.ErrUnknownModel)
}

func TestRegistry_Reset(t *testing.T) {
	r := New()
	testutil.Must(t, r.Register(tableDef("t_A"), nil))
	ctx := context.Background()

	var calls int
	migrate := func(context.Context, *ast.TableSchema, *engine.RenameMap) error {
		calls++
		return nil
	}
	testutil.Must(t, r.Ensure(ctx, "t_A", migrate))
	r.Reset("t_A")
	testutil.Must(t, r.Ensure(ctx, "t_A", migrate))
	if calls != 2 {
		t.Errorf("migrate ran %d times after Reset, want 2", calls)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Pending, "pending"},
		{Ready, "ready"},
		{Failed, "failed"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
