package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Table provides formatted table output.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	return &Table{
		headers: headers,
		widths:  widths,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	// Pad with empty strings if needed
	for len(cells) < len(t.headers) {
		cells = append(cells, "")
	}
	for i, cell := range cells {
		if n := utf8.RuneCountInString(cell); i < len(t.widths) && n > t.widths[i] {
			t.widths[i] = n
		}
	}
	t.rows = append(t.rows, cells)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// String renders the table as a string.
func (t *Table) String() string {
	if len(t.headers) == 0 {
		return ""
	}

	var b strings.Builder

	for i, h := range t.headers {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(Header(padRight(h, t.widths[i])))
	}
	b.WriteString("\n")

	for i, w := range t.widths {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(Dim(strings.Repeat("─", w)))
	}
	b.WriteString("\n")

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(t.widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(padRight(cell, t.widths[i]))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// Cell renders a scanned SQL value for a table cell.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("x'%X'", x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// List provides formatted list output.
type List struct {
	items  []listItem
	indent int
}

type listItem struct {
	marker  string
	content string
	style   func(string) string
}

// NewList creates a new list.
func NewList() *List {
	return &List{indent: 2}
}

// Add adds a plain item.
func (l *List) Add(content string) {
	l.items = append(l.items, listItem{marker: "•", content: content})
}

// AddSuccess adds a success item.
func (l *List) AddSuccess(content string) {
	l.items = append(l.items, listItem{marker: "✓", content: content, style: Success})
}

// AddWarning adds a warning item.
func (l *List) AddWarning(content string) {
	l.items = append(l.items, listItem{marker: "!", content: content, style: Warning})
}

// AddInfo adds an info item.
func (l *List) AddInfo(content string) {
	l.items = append(l.items, listItem{marker: "→", content: content, style: Note})
}

// String renders the list as a string.
func (l *List) String() string {
	var b strings.Builder
	indent := strings.Repeat(" ", l.indent)

	for _, item := range l.items {
		b.WriteString(indent)
		if item.style != nil {
			b.WriteString(item.style(item.marker))
		} else {
			b.WriteString(item.marker)
		}
		b.WriteString(" ")
		b.WriteString(item.content)
		b.WriteString("\n")
	}

	return b.String()
}

// FormatKeyValue formats a key-value pair.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("%s: %s", Dim(key), value)
}

// FormatCount formats a count with singular/plural form.
func FormatCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
