// Package sqlgen builds SELECT, COUNT, UPDATE and DELETE statements for SQLite.
//
// A Statement collects clause fragments in any call order and renders them in
// grammar order. Fragments are SQL text; values are always passed separately
// and bound as ? parameters.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/strutil"
)

// Kind is the statement kind. It decides which clauses are legal.
type Kind int

const (
	// SelectRows selects rows.
	SelectRows Kind = iota
	// SelectCount counts rows.
	SelectCount
	// Update updates rows.
	Update
	// Delete deletes rows.
	Delete
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case SelectRows:
		return "SelectRows"
	case SelectCount:
		return "SelectCount"
	case Update:
		return "Update"
	case Delete:
		return "Delete"
	default:
		return "Unknown"
	}
}

type clause int

const (
	clauseSelect clause = iota
	clauseSelectCount
	clauseFrom
	clauseJoin
	clauseOn
	clauseWhere
	clauseGroupBy
	clauseHaving
	clauseOrderBy
	clauseLimit
	clauseUnion
	clauseSet
	clauseModel
)

var clauseNames = map[clause]string{
	clauseSelect:      "select",
	clauseSelectCount: "selectCount",
	clauseFrom:        "from",
	clauseJoin:        "join",
	clauseOn:          "on",
	clauseWhere:       "where",
	clauseGroupBy:     "groupBy",
	clauseHaving:      "having",
	clauseOrderBy:     "orderBy",
	clauseLimit:       "limit",
	clauseUnion:       "union",
	clauseSet:         "set",
	clauseModel:       "toModel",
}

// legal lists the clauses each kind accepts.
var legal = map[Kind][]clause{
	SelectRows:  {clauseSelect, clauseFrom, clauseJoin, clauseOn, clauseWhere, clauseGroupBy, clauseHaving, clauseOrderBy, clauseLimit, clauseUnion, clauseModel},
	SelectCount: {clauseSelectCount, clauseFrom, clauseJoin, clauseOn, clauseWhere},
	Update:      {clauseFrom, clauseSet, clauseWhere},
	Delete:      {clauseFrom, clauseWhere},
}

type fragment struct {
	sql  string
	args []any
}

type join struct {
	keyword string
	table   string
	on      []fragment
}

type union struct {
	all  bool
	stmt *Statement
}

// Statement is a statement under construction.
// It is not safe for concurrent use.
type Statement struct {
	kind         Kind
	defaultTable string
	model        string

	columns   []string
	countCols []string
	from      []string
	joins     []*join
	pendingOn []fragment
	where     []fragment
	groupBy   []string
	having    []fragment
	orderBy   []string
	limit     *[2]int // offset, count
	unions    []union
	sets      []fragment

	err error
}

// New creates a statement of the given kind. defaultTable is used when From
// is never called; it is quoted on render.
func New(kind Kind, defaultTable string) *Statement {
	s := &Statement{kind: kind, defaultTable: defaultTable}
	if _, ok := legal[kind]; !ok {
		s.err = alerr.Newf(alerr.ErrInvalidClause, "unknown statement kind %d", int(kind))
	}
	return s
}

// NewSelect creates a SelectRows statement.
func NewSelect(defaultTable string) *Statement { return New(SelectRows, defaultTable) }

// NewCount creates a SelectCount statement.
func NewCount(defaultTable string) *Statement { return New(SelectCount, defaultTable) }

// NewUpdate creates an Update statement.
func NewUpdate(defaultTable string) *Statement { return New(Update, defaultTable) }

// NewDelete creates a Delete statement.
func NewDelete(defaultTable string) *Statement { return New(Delete, defaultTable) }

// Kind returns the statement kind.
func (s *Statement) Kind() Kind { return s.kind }

// Err returns the first error recorded by a mutator.
func (s *Statement) Err() error { return s.err }

// Model returns the name recorded by ToModel.
func (s *Statement) Model() string { return s.model }

// allow records an error when c is not legal for the statement kind.
// It returns false once the statement carries an error.
func (s *Statement) allow(c clause) bool {
	if s.err != nil {
		return false
	}
	for _, ok := range legal[s.kind] {
		if ok == c {
			return true
		}
	}
	s.err = alerr.Newf(alerr.ErrInvalidClause, "%s is not valid for a %s statement", clauseNames[c], s.kind).
		With("clause", clauseNames[c]).
		With("kind", s.kind.String())
	return false
}

// -----------------------------------------------------------------------------
// Mutators
// -----------------------------------------------------------------------------

// Select appends result columns or expressions.
func (s *Statement) Select(cols ...string) *Statement {
	if s.allow(clauseSelect) {
		s.columns = append(s.columns, cols...)
	}
	return s
}

// SelectCount sets the columns counted distinctly. With no columns the
// statement counts every row.
func (s *Statement) SelectCount(cols ...string) *Statement {
	if s.allow(clauseSelectCount) {
		s.countCols = append(s.countCols, cols...)
	}
	return s
}

// From appends source tables. Update and Delete take exactly one.
func (s *Statement) From(tables ...string) *Statement {
	if !s.allow(clauseFrom) {
		return s
	}
	if (s.kind == Update || s.kind == Delete) && len(s.from)+len(tables) > 1 {
		s.err = alerr.Newf(alerr.ErrInvalidClause, "a %s statement takes one table", s.kind).
			With("clause", clauseNames[clauseFrom]).
			With("kind", s.kind.String())
		return s
	}
	s.from = append(s.from, tables...)
	return s
}

// Join appends an inner join.
func (s *Statement) Join(table string) *Statement {
	return s.addJoin("JOIN", table)
}

// LeftJoin appends a left outer join.
func (s *Statement) LeftJoin(table string) *Statement {
	return s.addJoin("LEFT JOIN", table)
}

func (s *Statement) addJoin(keyword, table string) *Statement {
	if !s.allow(clauseJoin) {
		return s
	}
	j := &join{keyword: keyword, table: table, on: s.pendingOn}
	s.pendingOn = nil
	s.joins = append(s.joins, j)
	return s
}

// On adds a join condition to the most recent join. Conditions given before
// any join are held until the next one.
func (s *Statement) On(expr string, args ...any) *Statement {
	if !s.allow(clauseOn) {
		return s
	}
	f := fragment{sql: expr, args: args}
	if len(s.joins) == 0 {
		s.pendingOn = append(s.pendingOn, f)
		return s
	}
	last := s.joins[len(s.joins)-1]
	last.on = append(last.on, f)
	return s
}

// Where adds a condition. Conditions are joined with AND.
func (s *Statement) Where(expr string, args ...any) *Statement {
	if s.allow(clauseWhere) {
		s.where = append(s.where, fragment{sql: expr, args: args})
	}
	return s
}

// WhereIn adds `column IN (?, ...)` for values. An empty list matches nothing.
func (s *Statement) WhereIn(column string, values ...any) *Statement {
	if len(values) == 0 {
		return s.Where("0")
	}
	return s.Where(strutil.QuoteSQL(column)+" IN ("+strutil.Placeholders(len(values))+")", values...)
}

// GroupBy appends grouping terms.
func (s *Statement) GroupBy(cols ...string) *Statement {
	if s.allow(clauseGroupBy) {
		s.groupBy = append(s.groupBy, cols...)
	}
	return s
}

// Having adds a group condition. Conditions are joined with AND.
func (s *Statement) Having(expr string, args ...any) *Statement {
	if s.allow(clauseHaving) {
		s.having = append(s.having, fragment{sql: expr, args: args})
	}
	return s
}

// OrderBy appends ordering terms such as "age DESC".
func (s *Statement) OrderBy(terms ...string) *Statement {
	if s.allow(clauseOrderBy) {
		s.orderBy = append(s.orderBy, terms...)
	}
	return s
}

// Limit sets the row window. The last call wins.
func (s *Statement) Limit(offset, count int) *Statement {
	if !s.allow(clauseLimit) {
		return s
	}
	if offset < 0 || count < 0 {
		s.err = alerr.Newf(alerr.ErrInvalidClause, "limit takes non-negative values, got offset %d count %d", offset, count).
			With("clause", clauseNames[clauseLimit])
		return s
	}
	s.limit = &[2]int{offset, count}
	return s
}

// Union appends a UNION with other, which must be a SelectRows statement.
func (s *Statement) Union(other *Statement) *Statement {
	return s.addUnion(false, other)
}

// UnionAll appends a UNION ALL with other.
func (s *Statement) UnionAll(other *Statement) *Statement {
	return s.addUnion(true, other)
}

func (s *Statement) addUnion(all bool, other *Statement) *Statement {
	if !s.allow(clauseUnion) {
		return s
	}
	if other == nil || other.kind != SelectRows {
		s.err = alerr.New(alerr.ErrInvalidClause, "union takes a SelectRows statement").
			With("clause", clauseNames[clauseUnion])
		return s
	}
	if other.reaches(s) {
		s.err = alerr.New(alerr.ErrInvalidClause, "union operand refers back to the statement").
			With("clause", clauseNames[clauseUnion])
		return s
	}
	if len(other.orderBy) > 0 || other.limit != nil {
		s.err = alerr.New(alerr.ErrInvalidClause, "union operand cannot carry ORDER BY or LIMIT").
			With("clause", clauseNames[clauseUnion]).
			WithHelp("order and limit the outer statement instead")
		return s
	}
	s.unions = append(s.unions, union{all: all, stmt: other})
	return s
}

// reaches reports whether target is s or one of its union operands.
func (s *Statement) reaches(target *Statement) bool {
	if s == target {
		return true
	}
	for _, u := range s.unions {
		if u.stmt.reaches(target) {
			return true
		}
	}
	return false
}

// Set assigns value to column.
func (s *Statement) Set(column string, value any) *Statement {
	if s.allow(clauseSet) {
		s.sets = append(s.sets, fragment{sql: strutil.QuoteSQL(column) + " = ?", args: []any{value}})
	}
	return s
}

// SetExpr appends a raw assignment such as `"hits" = "hits" + ?`.
func (s *Statement) SetExpr(expr string, args ...any) *Statement {
	if s.allow(clauseSet) {
		s.sets = append(s.sets, fragment{sql: expr, args: args})
	}
	return s
}

// ToModel records the model rows are converted to.
func (s *Statement) ToModel(name string) *Statement {
	if s.allow(clauseModel) {
		s.model = name
	}
	return s
}

// -----------------------------------------------------------------------------
// Rendering
// -----------------------------------------------------------------------------

// Render returns the SQL text and its bound arguments. It does not modify the
// statement and may be called any number of times.
func (s *Statement) Render() (string, []any, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	if len(s.pendingOn) > 0 {
		return "", nil, s.incomplete("on condition without a join")
	}

	r := &renderer{}
	var err error
	switch s.kind {
	case SelectRows:
		err = s.renderSelect(r)
	case SelectCount:
		err = s.renderCount(r)
	case Update:
		err = s.renderUpdate(r)
	case Delete:
		err = s.renderDelete(r)
	}
	if err != nil {
		return "", nil, err
	}
	return r.String(), r.args, nil
}

// String renders the statement for debugging.
func (s *Statement) String() string {
	sql, args, err := s.Render()
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	if len(args) == 0 {
		return sql
	}
	return fmt.Sprintf("%s %v", sql, args)
}

func (s *Statement) incomplete(msg string) error {
	return alerr.New(alerr.ErrIncompleteStatement, msg).With("kind", s.kind.String())
}

func (s *Statement) tables() (string, error) {
	if len(s.from) > 0 {
		return strings.Join(s.from, ", "), nil
	}
	if s.defaultTable != "" {
		return strutil.QuoteSQL(s.defaultTable), nil
	}
	return "", s.incomplete("statement has no table")
}

// renderSource writes FROM, the joins and WHERE.
func (s *Statement) renderSource(r *renderer) error {
	tables, err := s.tables()
	if err != nil {
		return err
	}
	r.keyword("FROM", tables)
	for _, j := range s.joins {
		r.keyword(j.keyword, j.table)
		if len(j.on) > 0 {
			r.conditions("ON", j.on)
		}
	}
	r.conditions("WHERE", s.where)
	return nil
}

func (s *Statement) renderSelect(r *renderer) error {
	cols := "*"
	if len(s.columns) > 0 {
		cols = strings.Join(s.columns, ", ")
	}
	r.keyword("SELECT", cols)
	if err := s.renderSource(r); err != nil {
		return err
	}
	if len(s.groupBy) > 0 {
		r.keyword("GROUP BY", strings.Join(s.groupBy, ", "))
	}
	r.conditions("HAVING", s.having)

	for _, u := range s.unions {
		sub, args, err := u.stmt.Render()
		if err != nil {
			return err
		}
		if u.all {
			r.keyword("UNION ALL", sub)
		} else {
			r.keyword("UNION", sub)
		}
		r.args = append(r.args, args...)
	}

	if len(s.orderBy) > 0 {
		r.keyword("ORDER BY", strings.Join(s.orderBy, ", "))
	}
	if s.limit != nil {
		r.keyword("LIMIT", strconv.Itoa(s.limit[1]))
		if s.limit[0] > 0 {
			r.keyword("OFFSET", strconv.Itoa(s.limit[0]))
		}
	}
	return nil
}

func (s *Statement) renderCount(r *renderer) error {
	switch len(s.countCols) {
	case 0:
		r.keyword("SELECT", "COUNT(*)")
		return s.renderSource(r)
	case 1:
		r.keyword("SELECT", "COUNT(DISTINCT "+s.countCols[0]+")")
		return s.renderSource(r)
	default:
		// COUNT(DISTINCT ...) takes one argument in SQLite.
		inner := &renderer{}
		inner.keyword("SELECT DISTINCT", strings.Join(s.countCols, ", "))
		if err := s.renderSource(inner); err != nil {
			return err
		}
		r.keyword("SELECT", "COUNT(*) FROM ("+inner.String()+")")
		r.args = append(r.args, inner.args...)
		return nil
	}
}

func (s *Statement) renderUpdate(r *renderer) error {
	if len(s.sets) == 0 {
		return s.incomplete("update has no assignments")
	}
	table, err := s.tables()
	if err != nil {
		return err
	}
	r.keyword("UPDATE", table)
	r.list("SET", s.sets)
	r.conditions("WHERE", s.where)
	return nil
}

func (s *Statement) renderDelete(r *renderer) error {
	table, err := s.tables()
	if err != nil {
		return err
	}
	r.keyword("DELETE FROM", table)
	r.conditions("WHERE", s.where)
	return nil
}

// renderer accumulates SQL text and arguments in placeholder order.
type renderer struct {
	buf  strings.Builder
	args []any
}

func (r *renderer) keyword(kw, body string) {
	if r.buf.Len() > 0 {
		r.buf.WriteString(" ")
	}
	r.buf.WriteString(kw)
	r.buf.WriteString(" ")
	r.buf.WriteString(body)
}

// conditions writes kw followed by the fragments joined with AND. Fragments
// are parenthesized when there is more than one.
func (r *renderer) conditions(kw string, frags []fragment) {
	if len(frags) == 0 {
		return
	}
	parts := make([]string, len(frags))
	for i, f := range frags {
		if len(frags) > 1 {
			parts[i] = "(" + f.sql + ")"
		} else {
			parts[i] = f.sql
		}
		r.args = append(r.args, f.args...)
	}
	r.keyword(kw, strings.Join(parts, " AND "))
}

func (r *renderer) list(kw string, frags []fragment) {
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.sql
		r.args = append(r.args, f.args...)
	}
	r.keyword(kw, strings.Join(parts, ", "))
}

func (r *renderer) String() string {
	return r.buf.String()
}
