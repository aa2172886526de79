// Package strutil provides identifier and list helpers shared by the SQL generators.
package strutil

import (
	"strings"
)

// -----------------------------------------------------------------------------
// Quoting
// -----------------------------------------------------------------------------

// QuoteSQL quotes a SQL identifier with double quotes, escaping embedded quotes.
func QuoteSQL(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// QuoteList returns a comma-separated list of quoted identifiers.
// Example: QuoteList([]string{"a", "b"}) -> `"a", "b"`
func QuoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteSQL(n)
	}
	return strings.Join(quoted, ", ")
}

// QuoteLiteral quotes a string as a SQL text literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Placeholders returns n comma-separated bind placeholders.
// Example: Placeholders(3) -> "?, ?, ?"
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// -----------------------------------------------------------------------------
// Naming
// -----------------------------------------------------------------------------

// IndexName returns the index name for a table and columns.
// Example: IndexName("t_Person", "email") -> "idx_t_Person_email"
func IndexName(table string, cols ...string) string {
	parts := []string{"idx", table}
	parts = append(parts, cols...)
	return strings.Join(parts, "_")
}

// UniqueIndexName returns the unique index name for a table and columns.
// Example: UniqueIndexName("t_Person", "email") -> "uidx_t_Person_email"
func UniqueIndexName(table string, cols ...string) string {
	parts := []string{"uidx", table}
	parts = append(parts, cols...)
	return strings.Join(parts, "_")
}

// -----------------------------------------------------------------------------
// Column Lists
// -----------------------------------------------------------------------------

// Qualify prefixes a column with a table alias. An empty alias returns the quoted column.
// Example: Qualify("p", "name") -> `p."name"`
func Qualify(alias, column string) string {
	if alias == "" {
		return QuoteSQL(column)
	}
	return alias + "." + QuoteSQL(column)
}

// QualifyList qualifies every column with alias and joins them with commas.
func QualifyList(alias string, columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = Qualify(alias, c)
	}
	return strings.Join(parts, ", ")
}

// SplitList splits a comma-separated name list, trimming blanks and dropping empty entries.
// Example: SplitList("name, age,,") -> ["name", "age"]
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Without returns names minus every entry of exclude, preserving order.
func Without(names, exclude []string) []string {
	if len(exclude) == 0 {
		return names
	}
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !skip[n] {
			out = append(out, n)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Formatting
// -----------------------------------------------------------------------------

// Indent indents each non-empty line of text with the given number of spaces.
func Indent(text string, spaces int) string {
	prefix := strings.Repeat(" ", spaces)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
