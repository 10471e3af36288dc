// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import (
	"fmt"
	"strings"

	"github.com/grimmlab/chronoswitch/internal/errors"
)

// Expand resolves every _extends/_find node's keypath to its target
// subtree, then walks the result looking for a reference cycle (spec
// §4.A "Expansion algorithm", property 8). It runs as the two passes
// spec.md describes:
//
//  1. resolve: set every Extends/Find node's ExpansionLink.
//  2. detect: walk the tree again, this time virtually inlining each
//     Extends/Find node's target; Node.Expanding (Design Note 9's
//     per-node bit) marks a target currently being inlined higher up
//     the call stack, so re-entering it is a cycle.
//
// Pass 1 also needs its own, narrower recursion guard: resolving one
// node's keypath can walk transparently through another still-
// unresolved Extends node (resolveKeypath below), and a pathological
// input can make that walk come back to the node it started from.
// That is a bug in the resolution order, not yet the semantic cycle
// pass 2 looks for, so it is tracked separately in resolver.resolving
// and never touches Node.Expanding.
func Expand(t *Tree) error {
	r := &resolver{t: t, resolving: make(map[Index]bool)}
	if err := r.resolveSubtree(t.Root()); err != nil {
		return err
	}
	return detectCycles(t, t.Root())
}

type resolver struct {
	t         *Tree
	resolving map[Index]bool
}

func (r *resolver) resolveSubtree(idx Index) error {
	n := r.t.Node(idx)
	if n.Kind != KindList {
		return nil
	}
	for _, c := range n.Children {
		cn := r.t.Node(c)
		if cn.KeyTag == KeyExtends || cn.KeyTag == KeyFind {
			if err := r.ensureResolved(c); err != nil {
				return err
			}
		}
		if err := r.resolveSubtree(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) ensureResolved(idx Index) error {
	n := r.t.Node(idx)
	if n.KeyTag != KeyExtends && n.KeyTag != KeyFind {
		return nil
	}
	if n.ExpansionLink != NilIndex {
		return nil
	}
	if r.resolving[idx] {
		return locErr(n.Location, errors.RecursiveExpansion,
			"recursive DML expansion resolving %s %q", n.KeyTag, n.Value)
	}
	r.resolving[idx] = true
	defer delete(r.resolving, idx)

	target, err := r.resolveKeypath(n.Parent, n.Value)
	if err != nil {
		return locErr(n.Location, errors.MissingAttachment,
			"resolve %s %q: %v", n.KeyTag, n.Value, err)
	}
	if n.KeyTag == KeyExtends && r.t.Node(target).Kind != KindList {
		return locErr(n.Location, errors.NonListAttachment,
			"_extends %q does not resolve to a list", n.Value)
	}
	n.ExpansionLink = target
	return nil
}

// resolveKeypath walks path's '.'-separated segments starting from
// contextParent (or the tree root, for a leading-'.' absolute path),
// transparently stepping through any Extends/Find node it lands on so
// a path may cross an alias boundary mid-walk.
func (r *resolver) resolveKeypath(contextParent Index, path string) (Index, error) {
	path = strings.TrimSpace(path)
	absolute := strings.HasPrefix(path, ".")
	if absolute {
		path = path[1:]
	}
	cur := contextParent
	if absolute {
		cur = r.t.Root()
	}
	if path == "" {
		return cur, nil
	}

	for _, seg := range strings.Split(path, ".") {
		if err := r.ensureResolved(cur); err != nil {
			return NilIndex, err
		}
		container := cur
		if cn := r.t.Node(cur); cn.KeyTag == KeyExtends || cn.KeyTag == KeyFind {
			container = cn.ExpansionLink
		}
		list := r.t.Node(container)
		if list.Kind != KindList {
			return NilIndex, fmt.Errorf("segment %q: %q is not a list", seg, list.Key)
		}
		next := NilIndex
		for _, c := range list.Children {
			if r.t.Node(c).Key == seg {
				next = c
				break
			}
		}
		if next == NilIndex {
			return NilIndex, fmt.Errorf("no child named %q", seg)
		}
		cur = next
	}
	if err := r.ensureResolved(cur); err != nil {
		return NilIndex, err
	}
	return cur, nil
}

// detectCycles walks idx's subtree, and for every Extends/Find child
// it finds, virtually inlines the target: it marks the target
// Expanding, recurses into it as if its children were spliced in
// place, then clears the mark on the way back out. Re-entering a
// target that is still marked Expanding means the chain of aliases
// loops back on itself.
func detectCycles(t *Tree, idx Index) error {
	n := t.Node(idx)
	if n.Kind != KindList {
		return nil
	}
	for _, c := range n.Children {
		cn := t.Node(c)
		if cn.KeyTag != KeyExtends && cn.KeyTag != KeyFind {
			if err := detectCycles(t, c); err != nil {
				return err
			}
			continue
		}
		target := cn.ExpansionLink
		if target == NilIndex {
			continue
		}
		tn := t.Node(target)
		if tn.Expanding {
			return locErr(cn.Location, errors.RecursiveExpansion,
				"recursive DML expansion through %s %q", cn.KeyTag, cn.Value)
		}
		tn.Expanding = true
		err := detectCycles(t, target)
		tn.Expanding = false
		if err != nil {
			return err
		}
	}
	return nil
}
