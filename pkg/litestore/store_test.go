package litestore

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hlop3z/litestore/internal/testutil"
)

// ===========================================================================
// Store Tests
// ===========================================================================

func TestOpenCreatesDefaultDatabase(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(WithDir(dir), WithLogger(quietLogger()))
	testutil.Must(t, err)
	defer s.Close()

	db, err := s.Database(context.Background(), "")
	testutil.Must(t, err)
	testutil.AssertEqual(t, db.Path(), filepath.Join(dir, "common.sqlite"))
	testutil.AssertEqual(t, s.Config().DefaultIdentifier, DefaultIdentifier)
}

func TestWithFilePath(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "elsewhere", "people.db")
	s, err := Open(
		WithDir(dir),
		WithDefaultIdentifier("user42"),
		WithLogger(quietLogger()),
		WithFilePath(func(identifier, _ string) string {
			if identifier == "archive" {
				return custom
			}
			return ""
		}),
	)
	testutil.Must(t, err)
	defer s.Close()

	ctx := context.Background()
	def, err := s.Database(ctx, "")
	testutil.Must(t, err)
	testutil.AssertEqual(t, def.Identifier(), "user42")
	testutil.AssertEqual(t, def.Path(), filepath.Join(dir, "user42.sqlite"))

	archive, err := s.Database(ctx, "archive")
	testutil.Must(t, err)
	testutil.AssertEqual(t, archive.Path(), custom)
}

func TestIdentifiersAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)
	pets := bindPets(t, s)

	testutil.Must(t, people.Insert(ctx, &Person{Name: "ana", Email: "a@example.com"}))
	testutil.Must(t, pets.Insert(ctx, &Pet{Name: "rex"}))

	if got := s.Identifiers(); !slices.Equal(got, []string{"common", "pets"}) {
		t.Errorf("Identifiers() = %v", got)
	}
	testutil.AssertEqual(t, pets.Database().Identifier(), "pets")
	if !slices.Contains(pets.Database().Tables(), "t_Pet") {
		t.Errorf("pets database lacks t_Pet: %v", pets.Database().Tables())
	}
	if slices.Contains(people.Database().Tables(), "t_Pet") {
		t.Errorf("default database has t_Pet: %v", people.Database().Tables())
	}

	rows, err := s.Query(ctx, `SELECT name FROM sqlite_master WHERE name = 't_Pet'`)
	testutil.Must(t, err)
	testutil.AssertEqual(t, len(rows), 0)
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := Open(WithInMemory(), WithLogger(quietLogger()))
	testutil.Must(t, err)
	people := bindPeople(t, s)

	testutil.Must(t, s.Close())
	testutil.Must(t, s.Close())

	_, err = s.Database(context.Background(), "other")
	testutil.AssertError(t, err, ErrHandleClosed)
	testutil.AssertErrorChain(t, people.Insert(context.Background(), &Person{Name: "late"}), ErrHandleClosed)
}

// ===========================================================================
// Raw Access Tests
// ===========================================================================

func TestExecAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	testutil.Must(t, s.Exec(ctx, `CREATE TABLE notes (body TEXT)`))
	testutil.Must(t, s.Exec(ctx, `INSERT INTO notes (body) VALUES (?), (?)`, "a", "b"))

	rows, err := s.Query(ctx, `SELECT body FROM notes ORDER BY body`)
	testutil.Must(t, err)
	testutil.AssertEqual(t, len(rows), 2)
	testutil.AssertEqual(t, rows[1]["body"], any("b"))

	err = s.Exec(ctx, `INSERT INTO missing VALUES (1)`)
	testutil.AssertError(t, err, ErrEngineExecution)
	if !strings.Contains(s.LastError(), "no such table") {
		t.Errorf("LastError() = %q", s.LastError())
	}
}

func TestDoRunsTableCallsInline(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)

	// Migrate before queueing units that use the table.
	testutil.Must(t, people.Migrate(ctx))

	err := s.Do(ctx, func(ctx context.Context) error {
		if err := people.Insert(ctx, &Person{Name: "ana", Email: "a@example.com"}); err != nil {
			return err
		}
		n, err := people.Count(ctx, nil)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("count = %d inside unit", n)
		}
		return nil
	})
	testutil.Must(t, err)
}

func TestGoCallsDone(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)
	testutil.Must(t, people.Migrate(ctx))

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := range 10 {
		wg.Add(1)
		err := s.Go(ctx, func(ctx context.Context) error {
			return people.Insert(ctx, &Person{Name: fmt.Sprint(i), Email: fmt.Sprintf("%d@example.com", i)})
		}, func(err error) {
			if err != nil {
				failures.Add(1)
			}
			wg.Done()
		})
		testutil.Must(t, err)
	}
	wg.Wait()

	testutil.AssertEqual(t, failures.Load(), int32(0))
	n, err := people.Count(ctx, nil)
	testutil.Must(t, err)
	testutil.AssertEqual(t, n, int64(10))
}

func TestConcurrentFirstUseMigratesOnce(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = people.Insert(ctx, &Person{Name: "p", Email: fmt.Sprintf("%d@example.com", i)})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("insert %d: %v", i, err)
		}
	}
	versions, err := people.Database().Versions(ctx)
	testutil.Must(t, err)
	testutil.AssertEqual(t, len(versions), 1)
}

func TestFirstUseInsideUnitWhileMigrationQueued(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)

	// The unit holds the worker while an outside caller starts the table's
	// first migration, which has to queue behind it.
	holding := make(chan struct{})
	unitDone := make(chan error, 1)
	testutil.Must(t, s.Go(ctx, func(ctx context.Context) error {
		close(holding)
		time.Sleep(200 * time.Millisecond)
		return people.Insert(ctx, &Person{Name: "inner", Email: "inner@example.com"})
	}, func(err error) { unitDone <- err }))

	<-holding
	outerDone := make(chan error, 1)
	go func() {
		outerDone <- people.Insert(ctx, &Person{Name: "outer", Email: "outer@example.com"})
	}()

	timeout := time.After(5 * time.Second)
	for range 2 {
		select {
		case err := <-unitDone:
			testutil.Must(t, err)
		case err := <-outerDone:
			testutil.Must(t, err)
		case <-timeout:
			t.Fatal("first use from a queued unit deadlocked with a queued migration")
		}
	}

	n, err := people.Count(ctx, nil)
	testutil.Must(t, err)
	testutil.AssertEqual(t, n, int64(2))
	versions, err := people.Database().Versions(ctx)
	testutil.Must(t, err)
	testutil.AssertEqual(t, len(versions), 1)
}

var extensionSeq atomic.Int64

func TestRegisterFunctionReachesEveryDatabase(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	pets := bindPets(t, s)
	testutil.Must(t, pets.Insert(ctx, &Pet{Name: "rex", Owner: 4}))

	name := fmt.Sprintf("ls_triple_%d", extensionSeq.Add(1))
	err := s.RegisterFunction(ctx, name, 1, func(args ...any) (any, error) {
		n, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("want an integer, got %T", args[0])
		}
		return n * 3, nil
	})
	testutil.Must(t, err)

	rows, err := s.Query(ctx, "SELECT "+name+"(3) AS v")
	testutil.Must(t, err)
	testutil.AssertEqual(t, fmt.Sprint(rows[0]["v"]), "9")

	got, err := pets.SelectMaps(ctx, func(st *Statement) {
		st.Select(name + "(owner) AS tripled")
	})
	testutil.Must(t, err)
	testutil.AssertEqual(t, fmt.Sprint(got[0]["tripled"]), "12")
}

func TestRegisterCollation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)
	seedPeople(t, people)

	name := fmt.Sprintf("ls_reverse_%d", extensionSeq.Add(1))
	testutil.Must(t, s.RegisterCollation(ctx, name, func(a, b string) int {
		return strings.Compare(b, a)
	}))

	got, err := people.Select(ctx, func(st *Statement) {
		st.OrderBy("name COLLATE " + name)
	})
	testutil.Must(t, err)
	names := make([]string, len(got))
	for i, p := range got {
		names[i] = p.Name
	}
	if !slices.Equal(names, []string{"cy", "bo", "ana"}) {
		t.Errorf("order = %v", names)
	}
}

// ===========================================================================
// Store Batch Tests
// ===========================================================================

func TestStoreBatches(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)

	a := &Person{Name: "a", Email: "a@example.com"}
	b := &Person{Name: "b", Email: "b@example.com"}
	testutil.Must(t, s.InsertBatch(ctx, []any{a, b}))
	if a.ID == 0 || b.ID == 0 {
		t.Fatalf("InsertBatch() did not assign keys: %d %d", a.ID, b.ID)
	}

	a.Age, b.Age = 7, 8
	testutil.Must(t, s.UpdateBatch(ctx, []any{a, b}))
	got, err := people.SelectByPrimaryKey(ctx, b.ID)
	testutil.Must(t, err)
	testutil.AssertEqual(t, got.Age, 8)

	a.Name = "A"
	testutil.Must(t, s.InsertOrReplaceBatch(ctx, []any{a}))
	testutil.Must(t, s.DeleteBatch(ctx, []any{b}))

	rows, err := people.Select(ctx, nil)
	testutil.Must(t, err)
	if len(rows) != 1 || rows[0].Name != "A" {
		t.Errorf("rows after batches = %+v", rows)
	}

	testutil.Must(t, s.InsertBatch(ctx, nil))
}

func TestStoreBatchRejectsMixedTypes(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	people := bindPeople(t, s)
	bindPets(t, s)

	tests := []struct {
		name  string
		items []any
		code  Code
	}{
		{"mixed", []any{&Person{Name: "a"}, &Pet{Name: "rex"}}, ErrHeterogeneousBatch},
		{"value not pointer", []any{Person{Name: "a"}}, ErrHeterogeneousBatch},
		{"nil item", []any{&Person{Name: "a"}, nil}, ErrHeterogeneousBatch},
		{"unbound type", []any{&Adoption{}}, ErrUnknownModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertError(t, s.InsertBatch(ctx, tt.items), tt.code)
		})
	}

	// Nothing reached the engine, so the table was never created.
	rows, err := s.Query(ctx, `SELECT name FROM sqlite_master WHERE name = ?`, people.Name())
	testutil.Must(t, err)
	testutil.AssertEqual(t, len(rows), 0)
}
