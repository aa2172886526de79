package dialect

import (
	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/strutil"
)

// sqlite implements the Dialect interface for SQLite.
type sqlite struct{}

// SQLite returns the SQLite dialect.
func SQLite() Dialect {
	return &sqlite{}
}

func (d *sqlite) Name() string {
	return "sqlite"
}

func (d *sqlite) QuoteIdent(name string) string {
	return strutil.QuoteSQL(name)
}

func (d *sqlite) TypeSQL(t ast.ColumnType) string {
	return t.SQLType()
}

func (d *sqlite) DefaultSQL(value any) string {
	return buildDefaultValueSQL(value)
}

func (d *sqlite) config(inlineUnique bool) ColumnDefConfig {
	return ColumnDefConfig{
		QuoteIdent:   d.QuoteIdent,
		TypeSQL:      d.TypeSQL,
		DefaultSQL:   d.DefaultSQL,
		InlineUnique: inlineUnique,
	}
}

// -----------------------------------------------------------------------------
// SQL generation
// -----------------------------------------------------------------------------

func (d *sqlite) CreateTableSQL(op *ast.CreateTable) (string, error) {
	return buildCreateTableSQL(op, d.config(true))
}

func (d *sqlite) AddColumnSQL(op *ast.AddColumn) (string, error) {
	// SQLite rejects UNIQUE in ADD COLUMN; IndexesSQL adds a unique index instead.
	return buildAddColumnSQL(op, d.config(false))
}

func (d *sqlite) RenameColumnSQL(op *ast.RenameColumn) (string, error) {
	// SQLite 3.25.0+ supports RENAME COLUMN
	return buildRenameColumnSQL(op, d.QuoteIdent)
}

func (d *sqlite) IndexesSQL(table string, col *ast.ColumnConstraint) []string {
	var stmts []string
	if col.UniqueIndexed {
		stmts = append(stmts, buildCreateIndexSQL(table, strutil.UniqueIndexName(table, col.Name), true, []string{col.Name}, d.QuoteIdent))
	}
	if col.Indexed {
		stmts = append(stmts, buildCreateIndexSQL(table, strutil.IndexName(table, col.Name), false, []string{col.Name}, d.QuoteIdent))
	}
	return stmts
}

func (d *sqlite) OperationSQL(op ast.Operation) ([]string, error) {
	switch op := op.(type) {
	case *ast.CreateTable:
		create, err := d.CreateTableSQL(op)
		if err != nil {
			return nil, err
		}
		stmts := []string{create}
		for _, col := range op.Columns {
			stmts = append(stmts, d.IndexesSQL(op.TableName, col)...)
		}
		return stmts, nil

	case *ast.AddColumn:
		if err := op.Validate(); err != nil {
			return nil, err
		}
		// An expression default cannot be evaluated for existing rows, so the
		// column is added bare and backfilled.
		expr := op.Column.DefaultExpr()
		target := op
		if expr != nil {
			bare := *op.Column
			bare.Default, bare.HasDefault = nil, false
			target = &ast.AddColumn{TableName: op.TableName, Column: &bare}
		}
		add, err := d.AddColumnSQL(target)
		if err != nil {
			return nil, err
		}
		stmts := []string{add}
		if expr != nil {
			stmts = append(stmts, "UPDATE "+d.QuoteIdent(op.TableName)+
				" SET "+d.QuoteIdent(op.Column.Name)+" = "+d.DefaultSQL(expr))
		}
		col := *op.Column
		if col.Unique {
			col.UniqueIndexed = true
		}
		return append(stmts, d.IndexesSQL(op.TableName, &col)...), nil

	case *ast.RenameColumn:
		rename, err := d.RenameColumnSQL(op)
		if err != nil {
			return nil, err
		}
		return []string{rename}, nil

	default:
		return nil, alerr.Newf(alerr.EInternalError, "unsupported operation %T", op)
	}
}

func (d *sqlite) DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func (d *sqlite) DropIndexSQL(index string) string {
	return "DROP INDEX IF EXISTS " + d.QuoteIdent(index)
}
