// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import "strings"

// FindSingle returns the first node matching keypath, descending from
// the root (spec §4.A findSingle). Extends nodes are searched
// transparently at every segment; Find nodes are consulted, searching
// their target at any depth, only for the keypath's final segment.
func (t *Tree) FindSingle(keypath string) (Index, bool) {
	return matchPath(t, t.Root(), splitKeypath(keypath), true)
}

// Find returns every node matching keypath, in document order. '*'
// matches any single segment; '?' matches any single character within
// a segment.
func (t *Tree) Find(keypath string) []Index {
	segments := splitKeypath(keypath)
	frontier := []Index{t.Root()}
	for i, seg := range segments {
		isLast := i == len(segments)-1
		var next []Index
		for _, cur := range frontier {
			next = append(next, matchChildren(t, cur, seg, isLast, false)...)
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return frontier
}

func splitKeypath(keypath string) []string {
	keypath = strings.TrimPrefix(keypath, ".")
	if keypath == "" {
		return nil
	}
	return strings.Split(keypath, ".")
}

func matchPath(t *Tree, start Index, segments []string, firstOnly bool) (Index, bool) {
	cur := start
	for i, seg := range segments {
		isLast := i == len(segments)-1
		matches := matchChildren(t, cur, seg, isLast, firstOnly)
		if len(matches) == 0 {
			return NilIndex, false
		}
		cur = matches[0]
	}
	return cur, true
}

// matchChildren returns listIdx's children whose key matches seg,
// honoring Extends transparency and (on the final segment only) Find
// any-depth search. A single pass over n's children in document order
// means an _extends alias contributes its matches at the position the
// _extends attribute itself occupies, same as if its target's children
// had been spliced in right there. firstOnly stops at the first hit,
// for FindSingle's benefit.
func matchChildren(t *Tree, listIdx Index, seg string, isLast, firstOnly bool) []Index {
	n := t.Node(listIdx)
	if n == nil || n.Kind != KindList {
		return nil
	}

	var out []Index
	for _, c := range n.Children {
		cn := t.Node(c)
		switch {
		case globMatch(cn.Key, seg):
			out = append(out, c)
		case cn.KeyTag == KeyExtends && cn.ExpansionLink != NilIndex:
			out = append(out, matchChildren(t, cn.ExpansionLink, seg, isLast, firstOnly)...)
		case isLast && cn.KeyTag == KeyFind && cn.ExpansionLink != NilIndex:
			out = append(out, findAnyDepth(t, cn.ExpansionLink, seg, firstOnly)...)
		}
		if firstOnly && len(out) > 0 {
			return out
		}
	}

	return out
}

// findAnyDepth implements a Find node's "locate any subtree of this
// name under the referenced list" semantics: a breadth-first search
// over the target's entire descendant set, not just its direct
// children.
func findAnyDepth(t *Tree, root Index, name string, firstOnly bool) []Index {
	var out []Index
	queue := []Index{root}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		n := t.Node(idx)
		if n == nil || n.Kind != KindList {
			continue
		}
		for _, c := range n.Children {
			cn := t.Node(c)
			if globMatch(cn.Key, name) {
				out = append(out, c)
				if firstOnly {
					return out
				}
			}
			if cn.Kind == KindList {
				queue = append(queue, c)
			}
		}
	}
	return out
}

// globMatch reports whether key matches pattern, where '*' matches an
// entire segment and '?' matches exactly one character.
func globMatch(key, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.ContainsRune(pattern, '?') {
		return key == pattern
	}
	if len(key) != len(pattern) {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '?' {
			continue
		}
		if pattern[i] != key[i] {
			return false
		}
	}
	return true
}

// StringValue returns idx's value if it is a KindString node.
func (t *Tree) StringValue(idx Index) (string, bool) {
	n := t.Node(idx)
	if n == nil || n.Kind != KindString {
		return "", false
	}
	return n.Value, true
}

// IsConfiguration reports whether idx names a nested list (a
// "configuration" subtree) as opposed to a singleton string value.
// The original represents this distinction by packing
// `value_bytes\0key_bytes` into a shared buffer so a bare string
// result still carries its key; Go's multi-value returns make that
// packing unnecessary; callers needing the key already have idx's Key
// field.
func (t *Tree) IsConfiguration(idx Index) bool {
	n := t.Node(idx)
	return n != nil && n.Kind == KindList
}
