// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import (
	"fmt"
	"strings"
)

// Serialize renders root's children back to DML source text (spec §8
// property 7: parse→serialize→parse must round-trip for any file that
// uses no _extends/_find). Keys and values that would otherwise be
// ambiguous as barewords are quoted.
func Serialize(t *Tree, root Index) string {
	var b strings.Builder
	writeChildren(t, &b, root, 0)
	return b.String()
}

func writeChildren(t *Tree, b *strings.Builder, idx Index, depth int) {
	n := t.Node(idx)
	indent := strings.Repeat("  ", depth)
	for _, c := range n.Children {
		cn := t.Node(c)
		b.WriteString(indent)
		b.WriteString(writeToken(cn.Key))
		b.WriteByte(' ')
		switch cn.Kind {
		case KindList:
			b.WriteString("[\n")
			writeChildren(t, b, c, depth+1)
			b.WriteString(indent)
			b.WriteString("]\n")
		case KindString:
			b.WriteString(writeToken(cn.Value))
			b.WriteByte('\n')
		}
	}
}

// writeToken quotes s if it would not scan back as a single bareword.
func writeToken(s string) string {
	if s == "" {
		return `""`
	}
	plain := true
	for i := 0; i < len(s); i++ {
		b := s[i]
		if isSpace(b) || isDelim(b) || b == '#' {
			plain = false
			break
		}
	}
	if plain {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
