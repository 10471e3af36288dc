// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import "sync"

// StringTable is a Tree's interning dictionary for DML
// identifiers and values (spec §4.A "Strings"): every distinct string
// is stored once, with a reference count tracking how many nodes
// point at it. Duplicate keys/values across a large topology file
// share one allocation.
//
// A Tree owns its own StringTable rather than reaching for a package
// global, per Design Note 9.
type StringTable struct {
	mu      sync.Mutex
	byValue map[string]int
	entries []stringEntry
}

type stringEntry struct {
	value    string
	refCount int
}

// NewStringTable creates an empty interning table.
func NewStringTable() *StringTable {
	return &StringTable{byValue: make(map[string]int)}
}

// Intern returns s, storing it on first occurrence and bumping the
// refcount on every subsequent call. The returned string always
// aliases the table's single copy.
func (st *StringTable) Intern(s string) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	if id, ok := st.byValue[s]; ok {
		st.entries[id].refCount++
		return st.entries[id].value
	}
	id := len(st.entries)
	st.entries = append(st.entries, stringEntry{value: s, refCount: 1})
	st.byValue[s] = id
	return st.entries[id].value
}

// Release decrements s's refcount. It does not reclaim storage —
// entries stay resident for the Tree's lifetime, matching how the
// original table never frees strings mid-run; Release exists so
// callers (e.g. node removal) can keep an accurate count.
func (st *StringTable) Release(s string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	id, ok := st.byValue[s]
	if !ok {
		return
	}
	if st.entries[id].refCount > 0 {
		st.entries[id].refCount--
	}
}

// RefCount returns how many live references s has, or 0 if s was
// never interned through this table.
func (st *StringTable) RefCount(s string) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	id, ok := st.byValue[s]
	if !ok {
		return 0
	}
	return st.entries[id].refCount
}
