// Package engine plans and applies additive schema migrations.
//
// A migration compares a declared ast.TableSchema with the live table read by
// internal/introspect and emits CreateTable, RenameColumn and AddColumn
// operations. Nothing is ever dropped.
package engine

import (
	"slices"

	"github.com/hlop3z/litestore/internal/alerr"
)

// RenameEntry records that column New used to be called Old, starting at Version.
type RenameEntry struct {
	Version string
	New     string
	Old     string
}

// RenameMap is the ordered rename history a model supplies.
type RenameMap struct {
	entries []RenameEntry
}

// NewRenameMap creates an empty rename map.
func NewRenameMap() *RenameMap {
	return &RenameMap{}
}

// Add registers a rename from oldName to newName introduced at version.
func (m *RenameMap) Add(version, newName, oldName string) *RenameMap {
	m.entries = append(m.entries, RenameEntry{Version: version, New: newName, Old: oldName})
	return m
}

// Entries returns a copy of the registered entries in insertion order.
func (m *RenameMap) Entries() []RenameEntry {
	if m == nil {
		return nil
	}
	return slices.Clone(m.entries)
}

// Len returns the number of entries.
func (m *RenameMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// latest returns the entry renaming into name with the highest version not
// above limit. Two entries at that version naming different old columns are
// ambiguous.
func (m *RenameMap) latest(table, name, limit string) (*RenameEntry, error) {
	if m == nil {
		return nil, nil
	}

	var best *RenameEntry
	for i := range m.entries {
		e := &m.entries[i]
		if e.New != name || CompareVersions(e.Version, limit) > 0 {
			continue
		}
		if best == nil {
			best = e
			continue
		}
		switch c := CompareVersions(e.Version, best.Version); {
		case c > 0:
			best = e
		case c == 0 && e.Old != best.Old:
			return nil, alerr.Newf(alerr.ErrAmbiguousRename,
				"column %q is renamed from both %q and %q at version %s", name, best.Old, e.Old, e.Version).
				WithTable(table).
				WithColumn(name).
				With("version", e.Version)
		}
	}
	return best, nil
}

// check rejects every tie in the history up to limit: two entries at the same
// version renaming different old columns into one name. latest only sees the
// ties on the path it walks, so a plan runs check first.
func (m *RenameMap) check(table, limit string) error {
	if m == nil {
		return nil
	}
	for i := range m.entries {
		a := &m.entries[i]
		if CompareVersions(a.Version, limit) > 0 {
			continue
		}
		for j := i + 1; j < len(m.entries); j++ {
			b := &m.entries[j]
			if b.New != a.New || b.Old == a.Old || CompareVersions(a.Version, b.Version) != 0 {
				continue
			}
			return alerr.Newf(alerr.ErrAmbiguousRename,
				"column %q is renamed from both %q and %q at version %s", a.New, a.Old, b.Old, a.Version).
				WithTable(table).
				WithColumn(a.New).
				With("version", a.Version)
		}
	}
	return nil
}

// resolve walks the rename history backwards from name and returns the first
// ancestor name accepted by present. Chains like a->b at 0.0.2 then b->c at
// 0.0.3 resolve c to a when only a exists on disk.
func (m *RenameMap) resolve(table, name, limit string, present func(string) bool) (string, error) {
	seen := map[string]bool{name: true}
	current, version := name, limit

	for {
		e, err := m.latest(table, current, version)
		if err != nil {
			return "", err
		}
		if e == nil || seen[e.Old] {
			return "", nil
		}
		if present(e.Old) {
			return e.Old, nil
		}
		seen[e.Old] = true
		current, version = e.Old, e.Version
	}
}
