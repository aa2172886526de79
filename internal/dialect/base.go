package dialect

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hlop3z/litestore/internal/ast"
	"github.com/hlop3z/litestore/internal/strutil"
)

// QuoteIdentFunc quotes a SQL identifier.
type QuoteIdentFunc func(string) string

// writeQuotedList writes a comma-separated list of quoted identifiers.
func writeQuotedList(b *strings.Builder, items []string, quote QuoteIdentFunc) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(item))
	}
}

// buildDefaultValueSQL renders a Go value as a SQL literal, or a raw expression in parentheses.
func buildDefaultValueSQL(value any) string {
	switch v := value.(type) {
	case *ast.SQLExpr:
		return "(" + v.Expr + ")"
	case ast.SQLExpr:
		return "(" + v.Expr + ")"
	case nil:
		return "NULL"
	case string:
		return strutil.QuoteLiteral(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(v)) + "'"
	case time.Time:
		return strutil.QuoteLiteral(v.UTC().Format("2006-01-02 15:04:05"))
	default:
		return strutil.QuoteLiteral(fmt.Sprint(v))
	}
}

// ColumnDefConfig configures column definition rendering.
type ColumnDefConfig struct {
	QuoteIdent QuoteIdentFunc
	TypeSQL    func(ast.ColumnType) string
	DefaultSQL func(any) string
	// InlineUnique renders UNIQUE in the column definition. ALTER TABLE ADD COLUMN
	// cannot carry it, so added columns get a unique index instead.
	InlineUnique bool
}

// buildColumnDefSQL generates the SQL for a column definition.
// Order: type, PRIMARY KEY [AUTOINCREMENT], NOT NULL, UNIQUE, DEFAULT, REFERENCES.
func buildColumnDefSQL(col *ast.ColumnConstraint, cfg ColumnDefConfig) string {
	var b strings.Builder

	b.WriteString(cfg.QuoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(cfg.TypeSQL(col.Type))

	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
		if col.Autoincrement {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	if col.NotNull && !col.PrimaryKey {
		b.WriteString(" NOT NULL")
	}
	if col.Unique && !col.PrimaryKey && cfg.InlineUnique {
		b.WriteString(" UNIQUE")
	}
	if col.HasDefault {
		b.WriteString(" DEFAULT ")
		b.WriteString(cfg.DefaultSQL(col.Default))
	}
	if fk := col.ForeignKey; fk != nil {
		b.WriteString(" REFERENCES ")
		b.WriteString(cfg.QuoteIdent(fk.Table))
		b.WriteString(" (")
		b.WriteString(cfg.QuoteIdent(fk.Column))
		b.WriteString(")")
		if fk.OnDelete != ast.Nothing {
			b.WriteString(" ON DELETE ")
			b.WriteString(fk.OnDelete.SQL())
		}
		if fk.OnUpdate != ast.Nothing {
			b.WriteString(" ON UPDATE ")
			b.WriteString(fk.OnUpdate.SQL())
		}
	}

	return b.String()
}

// buildCreateTableSQL generates CREATE TABLE SQL.
func buildCreateTableSQL(op *ast.CreateTable, cfg ColumnDefConfig) (string, error) {
	if err := op.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if op.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(cfg.QuoteIdent(op.TableName))
	b.WriteString(" (\n")

	for i, col := range op.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(buildColumnDefSQL(col, cfg))
	}

	b.WriteString("\n)")
	return b.String(), nil
}

// buildAddColumnSQL generates ALTER TABLE ADD COLUMN SQL.
func buildAddColumnSQL(op *ast.AddColumn, cfg ColumnDefConfig) (string, error) {
	if err := op.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(cfg.QuoteIdent(op.TableName))
	b.WriteString(" ADD COLUMN ")
	b.WriteString(buildColumnDefSQL(op.Column, cfg))
	return b.String(), nil
}

// buildRenameColumnSQL generates ALTER TABLE RENAME COLUMN SQL.
func buildRenameColumnSQL(op *ast.RenameColumn, quoteIdent QuoteIdentFunc) (string, error) {
	if err := op.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(quoteIdent(op.TableName))
	b.WriteString(" RENAME COLUMN ")
	b.WriteString(quoteIdent(op.OldName))
	b.WriteString(" TO ")
	b.WriteString(quoteIdent(op.NewName))
	return b.String(), nil
}

// buildCreateIndexSQL generates CREATE [UNIQUE] INDEX IF NOT EXISTS SQL.
func buildCreateIndexSQL(table, name string, unique bool, cols []string, quoteIdent QuoteIdentFunc) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX IF NOT EXISTS ")
	b.WriteString(quoteIdent(name))
	b.WriteString(" ON ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	writeQuotedList(&b, cols, quoteIdent)
	b.WriteString(")")
	return b.String()
}
