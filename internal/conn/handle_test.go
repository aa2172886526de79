package conn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/testutil"
)

var nameSeq atomic.Int64

func openMemory(t *testing.T) *Handle {
	t.Helper()
	h, err := Open(context.Background(), Config{Identifier: "common", InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func count(t *testing.T, h *Handle, table string) int64 {
	t.Helper()
	rows, err := h.Query(context.Background(), "SELECT COUNT(*) AS n FROM "+table)
	testutil.Must(t, err)
	return rows[0]["n"].(int64)
}

func mustExec(t *testing.T, h *Handle, query string, args ...any) {
	t.Helper()
	if _, err := h.Exec(context.Background(), query, args...); err != nil {
		t.Fatalf("Exec(%q) error = %v", query, err)
	}
}

func TestOpenValidation(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{})
	testutil.AssertError(t, err, alerr.ErrConnection)

	_, err = Open(ctx, Config{Identifier: "common"})
	testutil.AssertError(t, err, alerr.ErrConnection)
}

func TestOpenCreatesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "common.sqlite")

	h, err := Open(ctx, Config{Identifier: "common", Path: path})
	testutil.Must(t, err)
	mustExec(t, h, "CREATE TABLE t_Note (body TEXT)")
	testutil.Must(t, h.Close())

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	testutil.AssertEqual(t, h.Path(), path)
	testutil.AssertEqual(t, h.Identifier(), "common")

	// A second handle on the same file sees the table.
	h2, err := Open(ctx, Config{Identifier: "common", Path: path})
	testutil.Must(t, err)
	defer h2.Close()
	testutil.AssertEqual(t, count(t, h2, "t_Note"), int64(0))
}

func TestForeignKeysEnabled(t *testing.T) {
	h := openMemory(t)
	rows, err := h.Query(context.Background(), "PRAGMA foreign_keys")
	testutil.Must(t, err)
	if len(rows) != 1 || rows[0]["foreign_keys"] != int64(1) {
		t.Errorf("foreign_keys = %v, want 1", rows)
	}
}

func TestDoSerializes(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.Do(ctx, func(ctx context.Context, db *sql.DB) error {
				n := active.Add(1)
				defer active.Add(-1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				_, err := db.ExecContext(ctx, "SELECT 1")
				return err
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent units = %d, want 1", got)
	}
}

func TestNestedDoRunsInline(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	var inner bool
	err := h.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return h.Do(ctx, func(context.Context, *sql.DB) error {
			inner = true
			return nil
		})
	})
	testutil.Must(t, err)
	if !inner {
		t.Error("nested unit did not run")
	}
}

func TestGoRunsInOrder(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		err := h.Go(ctx, func(context.Context, *sql.DB) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}, nil)
		testutil.Must(t, err)
	}

	var result error
	done := make(chan struct{})
	testutil.Must(t, h.Go(ctx, func(context.Context, *sql.DB) error {
		return errors.New("boom")
	}, func(err error) {
		result = err
		close(done)
	}))
	<-done

	if result == nil || result.Error() != "boom" {
		t.Errorf("done received %v, want boom", result)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(order, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Errorf("units ran in order %v", order)
	}
}

func TestGoFromInsideUnit(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	done := make(chan error, 1)
	testutil.Must(t, h.Do(ctx, func(ctx context.Context, _ *sql.DB) error {
		return h.Go(ctx, func(context.Context, *sql.DB) error { return nil }, func(err error) { done <- err })
	}))
	if err := <-done; err != nil {
		t.Errorf("async unit error = %v", err)
	}
}

func TestLastErrorAndInsertID(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	testutil.AssertEqual(t, h.LastError(), "")
	mustExec(t, h, "CREATE TABLE t_Item (c_no INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)")
	mustExec(t, h, "INSERT INTO t_Item (name) VALUES (?)", "a")
	mustExec(t, h, "INSERT INTO t_Item (name) VALUES (?)", "b")
	testutil.AssertEqual(t, h.LastInsertID(), int64(2))

	_, err := h.Exec(ctx, "INSERT INTO t_Missing (name) VALUES (1)")
	testutil.AssertError(t, err, alerr.ErrEngineExecution)
	if sqlText, _ := alerr.Context(err, "sql"); sqlText != "INSERT INTO t_Missing (name) VALUES (1)" {
		t.Errorf("sql context = %v", sqlText)
	}
	if !strings.Contains(h.LastError(), "t_Missing") {
		t.Errorf("LastError() = %q, want the engine message", h.LastError())
	}
}

func TestQueryRowsKeepsColumnOrder(t *testing.T) {
	h := openMemory(t)
	mustExec(t, h, "CREATE TABLE t_Item (z TEXT, a BLOB, m INTEGER)")
	mustExec(t, h, "INSERT INTO t_Item VALUES ('x', x'0102', NULL)")

	cols, vals, err := h.QueryRows(context.Background(), "SELECT z, a, m FROM t_Item")
	testutil.Must(t, err)
	if !slices.Equal(cols, []string{"z", "a", "m"}) {
		t.Errorf("columns = %v", cols)
	}
	if len(vals) != 1 || vals[0][0] != "x" || vals[0][2] != nil {
		t.Fatalf("rows = %v", vals)
	}
	if b, ok := vals[0][1].([]byte); !ok || !slices.Equal(b, []byte{1, 2}) {
		t.Errorf("blob = %#v", vals[0][1])
	}

	_, _, err = h.QueryRows(context.Background(), "SELECT nope FROM t_Item")
	testutil.AssertError(t, err, alerr.ErrEngineExecution)
}

func TestPanicIsRecovered(t *testing.T) {
	h := openMemory(t)
	err := h.Do(context.Background(), func(context.Context, *sql.DB) error {
		panic("bad unit")
	})
	testutil.AssertError(t, err, alerr.EInternalError)

	// The worker survives.
	testutil.Must(t, h.Do(context.Background(), func(context.Context, *sql.DB) error { return nil }))
}

func TestTx(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()
	mustExec(t, h, "CREATE TABLE t_Item (name TEXT)")

	err := h.Tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := h.ExecTx(ctx, tx, "t_Item", "INSERT INTO t_Item (name) VALUES ('a')"); err != nil {
			return err
		}
		_, err := h.ExecTx(ctx, tx, "t_Item", "INSERT INTO t_Item (nope) VALUES ('b')")
		return err
	})
	testutil.AssertError(t, err, alerr.ErrEngineExecution)
	testutil.AssertEqual(t, count(t, h, "t_Item"), int64(0))

	testutil.Must(t, h.Tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := h.ExecTx(ctx, tx, "t_Item", "INSERT INTO t_Item (name) VALUES ('a')")
		return err
	}))
	testutil.AssertEqual(t, count(t, h, "t_Item"), int64(1))
}

func TestCloseDrainsQueue(t *testing.T) {
	h, err := Open(context.Background(), Config{Identifier: "common", InMemory: true})
	testutil.Must(t, err)
	ctx := context.Background()

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		testutil.Must(t, h.Go(ctx, func(context.Context, *sql.DB) error {
			ran.Add(1)
			return nil
		}, nil))
	}
	testutil.Must(t, h.Close())
	testutil.AssertEqual(t, ran.Load(), int32(20))

	err = h.Do(ctx, func(context.Context, *sql.DB) error { return nil })
	testutil.AssertError(t, err, alerr.ErrHandleClosed)
	testutil.AssertError(t, h.Go(ctx, func(context.Context, *sql.DB) error { return nil }, nil), alerr.ErrHandleClosed)
	testutil.Must(t, h.Close())
}

func TestSubmitLaterReportsClosed(t *testing.T) {
	h, err := Open(context.Background(), Config{Identifier: "common", InMemory: true})
	testutil.Must(t, err)
	testutil.Must(t, h.Close())

	done := make(chan error, 1)
	ran := false
	h.submitLater(context.Background(), job{
		ctx:  context.Background(),
		unit: func(context.Context, *sql.DB) error { ran = true; return nil },
		done: func(err error) { done <- err },
	})
	select {
	case err := <-done:
		testutil.AssertError(t, err, alerr.ErrHandleClosed)
	default:
		t.Fatal("done was not called for a job the closed handle refused")
	}
	if ran {
		t.Error("unit ran on a closed handle")
	}
}

func TestOwns(t *testing.T) {
	h := openMemory(t)
	other := openMemory(t)
	ctx := context.Background()
	if h.Owns(ctx) {
		t.Error("Owns(background) = true")
	}
	testutil.Must(t, h.Do(ctx, func(ctx context.Context, _ *sql.DB) error {
		if !h.Owns(ctx) {
			t.Error("Owns(unit ctx) = false")
		}
		if other.Owns(ctx) {
			t.Error("another handle owns the unit ctx")
		}
		return nil
	}))
}

func TestRegisterFunction(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()
	mustExec(t, h, "CREATE TABLE t_Item (n INTEGER)")
	mustExec(t, h, "INSERT INTO t_Item (n) VALUES (21)")

	name := fmt.Sprintf("ls_double_%d", nameSeq.Add(1))
	double := func(args ...any) (any, error) {
		n, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("want integer, got %T", args[0])
		}
		return n * 2, nil
	}
	testutil.Must(t, h.RegisterFunction(ctx, name, 1, double))

	// The reconnect keeps the in-memory data.
	rows, err := h.Query(ctx, "SELECT "+name+"(n) AS v FROM t_Item")
	testutil.Must(t, err)
	if len(rows) != 1 || rows[0]["v"] != int64(42) {
		t.Errorf("rows = %v, want v=42", rows)
	}

	err := h.RegisterFunction(ctx, name, 1, double)
	testutil.AssertError(t, err, alerr.ErrEngineExecution)
	testutil.AssertError(t, h.RegisterFunction(ctx, "bad name", 1, double), alerr.ErrSchemaDeclaration)
}

func TestRegisterCollation(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()
	mustExec(t, h, "CREATE TABLE t_Item (name TEXT)")
	for _, n := range []string{"b", "c", "a"} {
		mustExec(t, h, "INSERT INTO t_Item (name) VALUES (?)", n)
	}

	name := fmt.Sprintf("ls_reverse_%d", nameSeq.Add(1))
	testutil.Must(t, h.RegisterCollation(ctx, name, func(a, b string) int { return strings.Compare(b, a) }))

	rows, err := h.Query(ctx, "SELECT name FROM t_Item ORDER BY name COLLATE "+name)
	testutil.Must(t, err)
	var got []string
	for _, r := range rows {
		got = append(got, r["name"].(string))
	}
	if !slices.Equal(got, []string{"c", "b", "a"}) {
		t.Errorf("order = %v, want [c b a]", got)
	}
}

func TestDriverInfo(t *testing.T) {
	if DriverName() == "" || DriverType() == "" {
		t.Error("driver info must not be empty")
	}
}
