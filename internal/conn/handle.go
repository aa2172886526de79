// Package conn owns the database handle behind a store identifier.
//
// A Handle wraps one SQLite connection and one worker goroutine. Units of work
// submitted with Do or Go run strictly one at a time in submission order, so
// callers from any goroutine see a single serialized writer.
package conn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hlop3z/litestore/internal/alerr"
)

// DefaultBusyTimeout is how long the engine waits on a locked database file.
const DefaultBusyTimeout = 5 * time.Second

const queueSize = 128

// Unit is one piece of work run on the handle's worker.
// db is limited to a single connection. Nested Do calls must pass the unit's
// ctx, or they wait for the unit that is running them.
type Unit func(ctx context.Context, db *sql.DB) error

// Config describes the database a handle opens.
type Config struct {
	Identifier  string
	Path        string // database file; ignored when InMemory
	InMemory    bool
	BusyTimeout time.Duration
	Logger      *slog.Logger
	ErrorLog    bool // log failed units at Error level
}

// Handle serializes all access to one SQLite database.
type Handle struct {
	id       string
	path     string
	dsn      string
	logger   *slog.Logger
	errorLog bool

	db *sql.DB // owned by the worker once started

	mu      sync.RWMutex // guards closed against submissions
	closed  bool
	jobs    chan job
	quit    chan struct{}
	stopped chan struct{}

	lastErr atomic.Pointer[string]
	lastID  atomic.Int64
}

type job struct {
	ctx  context.Context
	unit Unit
	done func(error)
}

type tokenKey struct{}

// Open opens the database described by cfg and starts the worker.
func Open(ctx context.Context, cfg Config) (*Handle, error) {
	if cfg.Identifier == "" {
		return nil, alerr.New(alerr.ErrConnection, "identifier is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}

	var dsn string
	if cfg.InMemory {
		dsn = buildDSN("litestore_"+cfg.Identifier+"_"+uuid.NewString(), true, busy.Milliseconds())
	} else {
		if cfg.Path == "" {
			return nil, alerr.New(alerr.ErrConnection, "database path is required").With("identifier", cfg.Identifier)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, alerr.Wrap(alerr.ErrConnection, err, "failed to create database directory").
				With("identifier", cfg.Identifier).
				With("path", cfg.Path)
		}
		dsn = buildDSN(cfg.Path, false, busy.Milliseconds())
	}

	db, err := connect(ctx, dsn)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrConnection, err, "failed to open database").
			With("identifier", cfg.Identifier).
			With("path", cfg.Path)
	}

	h := &Handle{
		id:       cfg.Identifier,
		path:     cfg.Path,
		dsn:      dsn,
		logger:   logger.With("identifier", cfg.Identifier),
		errorLog: cfg.ErrorLog,
		db:       db,
		jobs:     make(chan job, queueSize),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if cfg.InMemory {
		h.path = ""
	}
	go h.loop()

	h.logger.Debug("opened database", "driver", driverType, "path", h.path)
	return h, nil
}

func connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Identifier returns the store identifier this handle serves.
func (h *Handle) Identifier() string { return h.id }

// Path returns the database file path, or "" for an in-memory database.
func (h *Handle) Path() string { return h.path }

// LastError returns the engine message of the most recent failed unit.
func (h *Handle) LastError() string {
	if p := h.lastErr.Load(); p != nil {
		return *p
	}
	return ""
}

// LastInsertID returns the row id of the most recent insert run through Exec.
func (h *Handle) LastInsertID() int64 {
	return h.lastID.Load()
}

// Do runs unit on the worker and waits for it.
//
// ctx only bounds the wait for a queue slot; once the unit is queued it runs
// to completion. Calling Do with the ctx a unit received runs the nested unit
// inline.
func (h *Handle) Do(ctx context.Context, unit Unit) error {
	if h.inside(ctx) {
		return h.note(h.call(ctx, unit))
	}

	result := make(chan error, 1)
	if err := h.submit(ctx, job{ctx: ctx, unit: unit, done: func(err error) { result <- err }}); err != nil {
		return err
	}
	return <-result
}

// Go queues unit and returns at once. done, if not nil, receives the unit's
// result on the worker goroutine after the unit finishes.
func (h *Handle) Go(ctx context.Context, unit Unit, done func(error)) error {
	id := uuid.NewString()
	h.logger.Debug("queued async unit", "unit", id)

	j := job{ctx: ctx, unit: unit, done: func(err error) {
		h.logger.Debug("finished async unit", "unit", id, "error", err)
		if done != nil {
			done(err)
		}
	}}
	if h.inside(ctx) {
		// The worker is busy running the caller; a full queue must not block it.
		select {
		case h.jobs <- j:
			return nil
		default:
			go h.submitLater(context.WithoutCancel(ctx), j)
			return nil
		}
	}
	return h.submit(ctx, j)
}

// Owns reports whether ctx is the context of a unit running on this handle's
// worker. Work that would queue behind the caller must run inline instead.
func (h *Handle) Owns(ctx context.Context) bool {
	return h.inside(ctx)
}

func (h *Handle) inside(ctx context.Context) bool {
	owner, _ := ctx.Value(tokenKey{}).(*Handle)
	return owner == h
}

// submitLater queues j off the caller's goroutine. A job that never reaches
// the queue still reports to its done callback.
func (h *Handle) submitLater(ctx context.Context, j job) {
	if err := h.submit(ctx, j); err != nil && j.done != nil {
		j.done(err)
	}
}

func (h *Handle) submit(ctx context.Context, j job) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return h.closedError()
	}
	select {
	case h.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) closedError() error {
	return alerr.New(alerr.ErrHandleClosed, "database handle is closed").With("identifier", h.id)
}

func (h *Handle) loop() {
	defer close(h.stopped)
	for {
		select {
		case j := <-h.jobs:
			h.run(j)
		case <-h.quit:
			for {
				select {
				case j := <-h.jobs:
					h.run(j)
				default:
					return
				}
			}
		}
	}
}

func (h *Handle) run(j job) {
	ctx := context.WithValue(context.WithoutCancel(j.ctx), tokenKey{}, h)
	err := h.note(h.call(ctx, j.unit))
	if j.done != nil {
		j.done(err)
	}
}

func (h *Handle) call(ctx context.Context, unit Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = alerr.Newf(alerr.EInternalError, "unit panicked: %v", r).With("identifier", h.id)
		}
	}()
	return unit(ctx, h.db)
}

// note records a failed unit's engine message.
func (h *Handle) note(err error) error {
	if err == nil {
		return nil
	}
	msg := rootMessage(err)
	h.lastErr.Store(&msg)
	if h.errorLog {
		h.logger.Error("database unit failed", "error", err)
	}
	return err
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// Exec runs one statement on the worker.
func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.ExecIn(ctx, "", query, args...)
}

// ExecIn is Exec for a statement that targets table, which failures record.
func (h *Handle) ExecIn(ctx context.Context, table, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := h.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		r, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return alerr.WrapEngine(err, "execute statement", table, query)
		}
		h.trackInsert(r)
		res = r
		return nil
	})
	return res, err
}

// ExecTx runs one statement inside a transaction a unit began.
func (h *Handle) ExecTx(ctx context.Context, tx *sql.Tx, table, query string, args ...any) (sql.Result, error) {
	r, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, alerr.WrapEngine(err, "execute statement", table, query)
	}
	h.trackInsert(r)
	return r, nil
}

func (h *Handle) trackInsert(r sql.Result) {
	if id, err := r.LastInsertId(); err == nil && id != 0 {
		h.lastID.Store(id)
	}
}

// Query runs a query on the worker and returns every row as a column map.
func (h *Handle) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	var out []map[string]any
	err := h.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return alerr.WrapEngine(err, "run query", "", query)
		}
		out, err = ScanMaps(rows)
		if err != nil {
			return alerr.WrapEngine(err, "read rows", "", query)
		}
		return nil
	})
	return out, err
}

// QueryRows is Query with the result column order kept.
func (h *Handle) QueryRows(ctx context.Context, query string, args ...any) (cols []string, vals [][]any, err error) {
	err = h.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return alerr.WrapEngine(err, "run query", "", query)
		}
		cols, vals, err = ScanRows(rows)
		if err != nil {
			return alerr.WrapEngine(err, "read rows", "", query)
		}
		return nil
	})
	return cols, vals, err
}

// Tx runs fn inside one transaction on the worker. The transaction commits
// when fn returns nil and rolls back otherwise.
func (h *Handle) Tx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return h.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return alerr.WrapEngine(err, "begin transaction", "", "")
		}
		if err := fn(ctx, tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				h.logger.Warn("rollback failed", "error", rbErr)
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return alerr.WrapEngine(err, "commit transaction", "", "")
		}
		return nil
	})
}

// RegisterFunction makes fn callable from SQL as name. nArgs < 0 accepts any
// number of arguments.
func (h *Handle) RegisterFunction(ctx context.Context, name string, nArgs int, fn Func) error {
	if err := registerFunc(name, nArgs, fn); err != nil {
		return err
	}
	return h.Reconnect(ctx)
}

// RegisterCollation makes cmp usable in COLLATE clauses as name.
func (h *Handle) RegisterCollation(ctx context.Context, name string, cmp Collation) error {
	if err := registerColl(name, cmp); err != nil {
		return err
	}
	return h.Reconnect(ctx)
}

// Reconnect replaces the connection so driver extensions registered since it
// was opened become visible. The new connection is opened before the old one
// closes, which keeps a shared in-memory database alive.
func (h *Handle) Reconnect(ctx context.Context) error {
	return h.Do(ctx, func(ctx context.Context, _ *sql.DB) error {
		db, err := connect(ctx, h.dsn)
		if err != nil {
			return alerr.Wrap(alerr.ErrConnection, err, "failed to reopen database").With("identifier", h.id)
		}
		old := h.db
		h.db = db
		if err := old.Close(); err != nil {
			h.logger.Warn("failed to close replaced connection", "error", err)
		}
		return nil
	})
}

// Close runs every queued unit, stops the worker and closes the connection.
// Units submitted afterwards fail with ErrHandleClosed. Close must not be
// called from inside a unit.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.quit)
	h.mu.Unlock()

	<-h.stopped
	if err := h.db.Close(); err != nil {
		return alerr.Wrap(alerr.ErrConnection, err, "failed to close database").With("identifier", h.id)
	}
	h.logger.Debug("closed database")
	return nil
}

// String implements fmt.Stringer.
func (h *Handle) String() string {
	if h.path == "" {
		return fmt.Sprintf("%s (memory)", h.id)
	}
	return fmt.Sprintf("%s (%s)", h.id, h.path)
}
