package conn

import (
	"fmt"
	"sync"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
)

// Func is a custom scalar SQL function. Arguments arrive as int64, float64,
// string, []byte or nil, and the result must be one of those types.
type Func func(args ...any) (any, error)

// Collation orders two strings the way strings.Compare does.
type Collation func(a, b string) int

type function struct {
	nArgs int
	fn    Func
}

// call enforces the declared arity; nArgs < 0 accepts any count.
func (f function) call(args ...any) (any, error) {
	if f.nArgs >= 0 && len(args) != f.nArgs {
		return nil, fmt.Errorf("expected %d arguments, got %d", f.nArgs, len(args))
	}
	return f.fn(args...)
}

// Extensions are registered with the driver, so every connection opened
// afterwards sees them.
var extensions = struct {
	sync.Mutex
	funcs      map[string]function
	collations map[string]Collation
}{
	funcs:      make(map[string]function),
	collations: make(map[string]Collation),
}

// DriverName returns the database/sql driver name handles open with.
func DriverName() string {
	return driverName
}

// DriverType returns "purego" for modernc.org/sqlite and "cgo" for mattn/go-sqlite3.
func DriverType() string {
	return driverType
}

func registerFunc(name string, nArgs int, fn Func) error {
	if err := ast.ValidateIdentifier(name); err != nil {
		return err
	}
	if fn == nil {
		return alerr.New(alerr.EInternalError, "function implementation is nil").With("function", name)
	}

	extensions.Lock()
	defer extensions.Unlock()
	if _, ok := extensions.funcs[name]; ok {
		return alerr.New(alerr.ErrEngineExecution, "function already registered").
			With("function", name).
			WithHelp("functions are registered once per process")
	}
	f := function{nArgs: nArgs, fn: fn}
	if err := registerFunction(name, f); err != nil {
		return alerr.WrapEngine(err, "register function "+name, "", "")
	}
	extensions.funcs[name] = f
	return nil
}

func registerColl(name string, cmp Collation) error {
	if err := ast.ValidateIdentifier(name); err != nil {
		return err
	}
	if cmp == nil {
		return alerr.New(alerr.EInternalError, "collation implementation is nil").With("collation", name)
	}

	extensions.Lock()
	defer extensions.Unlock()
	if _, ok := extensions.collations[name]; ok {
		return alerr.New(alerr.ErrEngineExecution, "collation already registered").
			With("collation", name).
			WithHelp("collations are registered once per process")
	}
	if err := registerCollation(name, cmp); err != nil {
		return alerr.WrapEngine(err, "register collation "+name, "", "")
	}
	extensions.collations[name] = cmp
	return nil
}
