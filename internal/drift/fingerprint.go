// Package drift fingerprints declared table schemas with a merkle tree.
// The migration runner stores the root next to the version so a schema that
// changed without a version bump can be reported.
package drift

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cbergoon/merkletree"
	"github.com/zeebo/xxh3"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/ast"
)

// TableHash is the merkle fingerprint of one declared table.
type TableHash struct {
	Name    string
	Root    string            // hex merkle root over the column leaves
	Columns map[string]string // column name -> leaf hash
}

// columnContent implements merkletree.Content for one column definition.
type columnContent struct {
	name string
	data string
}

func (c columnContent) CalculateHash() ([]byte, error) {
	return binary.BigEndian.AppendUint64(nil, xxh3.HashString(c.data)), nil
}

func (c columnContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(columnContent)
	if !ok {
		return false, nil
	}
	return c.data == o.data, nil
}

// ComputeTableHash builds the merkle tree over every physical column of
// schema, in name order, and returns its root.
func ComputeTableHash(schema *ast.TableSchema) (*TableHash, error) {
	result := &TableHash{Columns: make(map[string]string)}
	if schema == nil {
		result.Root = emptyHash()
		return result, nil
	}
	result.Name = schema.Name

	cols := schema.AllColumns()
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })

	contents := make([]merkletree.Content, 0, len(cols)+1)
	contents = append(contents, columnContent{name: "", data: "table:" + schema.Name})
	for _, col := range cols {
		leaf := columnContent{name: col.Name, data: columnData(col)}
		sum, _ := leaf.CalculateHash()
		result.Columns[col.Name] = hex.EncodeToString(sum)
		contents = append(contents, leaf)
	}

	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return nil, alerr.Wrap(alerr.EInternalError, err, "failed to build merkle tree").
			WithTable(schema.Name)
	}
	result.Root = hex.EncodeToString(tree.MerkleRoot())
	return result, nil
}

// Fingerprint returns the merkle root of schema.
func Fingerprint(schema *ast.TableSchema) (string, error) {
	h, err := ComputeTableHash(schema)
	if err != nil {
		return "", err
	}
	return h.Root, nil
}

// ChangedColumns lists the columns whose definition differs between a and b,
// including columns present on one side only. Sorted.
func ChangedColumns(a, b *TableHash) []string {
	var changed []string
	for name, hash := range a.Columns {
		if other, ok := b.Columns[name]; !ok || other != hash {
			changed = append(changed, name)
		}
	}
	for name := range b.Columns {
		if _, ok := a.Columns[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// columnData is the canonical text a column leaf hashes.
func columnData(col *ast.ColumnConstraint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name:%s|type:%s|notnull:%v|pk:%v|autoinc:%v|unique:%v|index:%v|uindex:%v",
		col.Name,
		col.Type.SQLType(),
		col.NotNull,
		col.PrimaryKey,
		col.Autoincrement,
		col.Unique,
		col.Indexed,
		col.UniqueIndexed,
	)
	if col.HasDefault {
		fmt.Fprintf(&b, "|default:%T:%v", col.Default, defaultText(col.Default))
	}
	if fk := col.ForeignKey; fk != nil {
		fmt.Fprintf(&b, "|ref:%s.%s|on_delete:%s|on_update:%s", fk.Table, fk.Column, fk.OnDelete, fk.OnUpdate)
	}
	return b.String()
}

func defaultText(v any) any {
	if e, ok := v.(*ast.SQLExpr); ok && e != nil {
		return e.Expr
	}
	return v
}

// emptyHash returns a consistent hash for a missing schema.
func emptyHash() string {
	return hex.EncodeToString(binary.BigEndian.AppendUint64(nil, xxh3.HashString("empty_schema")))
}
