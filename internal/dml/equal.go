// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

// StructurallyEqual compares the subtrees rooted at ai (in a) and bi
// (in b) ignoring Location and ExpansionLink — used by the
// parse→serialize→parse round-trip check (spec §8 property 7).
func StructurallyEqual(a *Tree, ai Index, b *Tree, bi Index) bool {
	an, bn := a.Node(ai), b.Node(bi)
	if an.Kind != bn.Kind || an.KeyTag != bn.KeyTag || an.Key != bn.Key {
		return false
	}
	if an.Kind == KindString {
		return an.Value == bn.Value
	}
	if len(an.Children) != len(bn.Children) {
		return false
	}
	for i := range an.Children {
		if !StructurallyEqual(a, an.Children[i], b, bn.Children[i]) {
			return false
		}
	}
	return true
}
