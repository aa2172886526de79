package ast

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hlop3z/litestore/internal/alerr"
)

// Reserved names. Every managed table carries the two audit columns, and a table
// that declares no primary key receives the synthetic key column.
const (
	TablePrefix           = "t_"
	ColumnInsertTimestamp = "c_insertTimestamp"
	ColumnInsertTime      = "c_insertTime"
	ColumnDefaultPK       = "c_no"
)

// DefaultVersion is the schema version assumed when a model declares none.
const DefaultVersion = "0.0.1"

// Validation messages shared by ColumnConstraint, TableSchema and the Operation types.
const (
	msgTableNameRequired  = "table name is required"
	msgColumnNameRequired = "column name is required"
	msgTableNeedsColumn   = "table must have at least one column"
	msgFKNeedsRefTable    = "foreign key must reference a table"
	msgFKNeedsRefColumn   = "foreign key must reference a column"
)

var validIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier checks that a name is a plain SQL identifier.
func ValidateIdentifier(name string) error {
	if !validIdentifierPattern.MatchString(name) {
		return alerr.New(alerr.ErrSchemaDeclaration,
			fmt.Sprintf("invalid identifier %q; must match [A-Za-z_][A-Za-z0-9_]*", name))
	}
	return nil
}

// IsReserved reports whether a column name is owned by litestore.
func IsReserved(name string) bool {
	switch name {
	case ColumnInsertTimestamp, ColumnInsertTime, ColumnDefaultPK:
		return true
	}
	return false
}

// TableName returns the managed table name for a model name.
func TableName(model string) string {
	if strings.HasPrefix(model, TablePrefix) {
		return model
	}
	return TablePrefix + model
}

// ForeignKey declares a reference from one column to a column of another table.
type ForeignKey struct {
	Table    string // referenced table, already prefixed
	Column   string
	OnDelete FKAction
	OnUpdate FKAction
}

// Validate checks that the reference names both ends.
func (fk *ForeignKey) Validate() error {
	if fk.Table == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, msgFKNeedsRefTable)
	}
	if fk.Column == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, msgFKNeedsRefColumn).
			WithTable(fk.Table)
	}
	return nil
}

// ColumnConstraint is the declared shape of one column.
type ColumnConstraint struct {
	Name          string
	Type          ColumnType
	NotNull       bool
	PrimaryKey    bool
	Autoincrement bool
	Unique        bool

	// Default is either a Go literal or a *SQLExpr. Only meaningful when HasDefault is set.
	Default    any
	HasDefault bool

	ForeignKey    *ForeignKey
	Indexed       bool
	UniqueIndexed bool
}

// Validate checks the column in isolation. Cross-column rules live in dsl.Build.
func (c *ColumnConstraint) Validate() error {
	if c.Name == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, msgColumnNameRequired)
	}
	if err := ValidateIdentifier(c.Name); err != nil {
		return err
	}
	if c.Autoincrement {
		if !c.PrimaryKey {
			return alerr.New(alerr.ErrSchemaDeclaration, "autoincrement requires a primary key").
				WithColumn(c.Name)
		}
		if !c.Type.IsIntegerCompatible() {
			return alerr.New(alerr.ErrSchemaDeclaration, "autoincrement requires an integer column").
				WithColumn(c.Name).
				With("type", c.Type.String())
		}
	}
	if c.ForeignKey != nil {
		if err := c.ForeignKey.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Nullable reports whether the column accepts NULL.
func (c *ColumnConstraint) Nullable() bool {
	return !c.NotNull && !c.PrimaryKey
}

// DefaultExpr returns the default as a SQL expression, or nil when the
// column has no default or a literal one.
func (c *ColumnConstraint) DefaultExpr() *SQLExpr {
	if !c.HasDefault {
		return nil
	}
	switch v := c.Default.(type) {
	case *SQLExpr:
		return v
	case SQLExpr:
		return &v
	}
	return nil
}

// SyntheticKeyColumn returns the column added to tables that declare no primary key.
func SyntheticKeyColumn() *ColumnConstraint {
	return &ColumnConstraint{
		Name:          ColumnDefaultPK,
		Type:          Integer,
		PrimaryKey:    true,
		Autoincrement: true,
	}
}

// AuditColumns returns the two reserved columns populated by column defaults on insert.
func AuditColumns() []*ColumnConstraint {
	return []*ColumnConstraint{
		{
			Name:       ColumnInsertTimestamp,
			Type:       Integer,
			Default:    Expr("strftime('%s','now')"),
			HasDefault: true,
		},
		{
			Name:       ColumnInsertTime,
			Type:       Text,
			Default:    Expr("datetime('now','localtime')"),
			HasDefault: true,
		},
	}
}

// TableSchema is the declared shape of one managed table.
type TableSchema struct {
	Name    string
	Version string
	Columns []*ColumnConstraint
}

// Validate checks the table name and every column.
func (t *TableSchema) Validate() error {
	if t.Name == "" {
		return alerr.New(alerr.ErrSchemaDeclaration, msgTableNameRequired)
	}
	if len(t.Columns) == 0 {
		return alerr.New(alerr.ErrSchemaDeclaration, msgTableNeedsColumn).WithTable(t.Name)
	}
	for _, col := range t.Columns {
		if err := col.Validate(); err != nil {
			return alerr.Wrap(alerr.ErrSchemaDeclaration, err, "invalid column").
				WithTable(t.Name).
				WithColumn(col.Name)
		}
	}
	return nil
}

// PrimaryKey returns the declared primary key column, or nil.
func (t *TableSchema) PrimaryKey() *ColumnConstraint {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c
		}
	}
	return nil
}

// HasSyntheticKey reports whether the table relies on the reserved c_no key.
func (t *TableSchema) HasSyntheticKey() bool {
	return t.PrimaryKey() == nil
}

// KeyColumn returns the name of the column rows are addressed by.
func (t *TableSchema) KeyColumn() string {
	if pk := t.PrimaryKey(); pk != nil {
		return pk.Name
	}
	return ColumnDefaultPK
}

// Column looks up a declared column by name.
func (t *TableSchema) Column(name string) *ColumnConstraint {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns the declared column names in declaration order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// AllColumns returns the physical column list: synthetic key (if any), declared columns,
// then the audit columns.
func (t *TableSchema) AllColumns() []*ColumnConstraint {
	cols := make([]*ColumnConstraint, 0, len(t.Columns)+3)
	if t.HasSyntheticKey() {
		cols = append(cols, SyntheticKeyColumn())
	}
	cols = append(cols, t.Columns...)
	return append(cols, AuditColumns()...)
}

// IsUniqueOrKey reports whether the declared column can be a foreign key target.
func (t *TableSchema) IsUniqueOrKey(column string) bool {
	if column == ColumnDefaultPK && t.HasSyntheticKey() {
		return true
	}
	c := t.Column(column)
	return c != nil && (c.PrimaryKey || c.Unique || c.UniqueIndexed)
}

// References returns the distinct tables this schema points at, sorted.
func (t *TableSchema) References() []string {
	var refs []string
	for _, c := range t.Columns {
		if c.ForeignKey != nil && !slices.Contains(refs, c.ForeignKey.Table) {
			refs = append(refs, c.ForeignKey.Table)
		}
	}
	slices.Sort(refs)
	return refs
}
