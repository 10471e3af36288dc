// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmlerrors "github.com/grimmlab/chronoswitch/internal/errors"
)

// TestParseBasicAttributes is spec §8 scenario S1.
func TestParseBasicAttributes(t *testing.T) {
	tree, err := ParseString("s1", `a 1 a 2 b [ c "x" ]`)
	require.NoError(t, err)

	root := tree.Node(tree.Root())
	require.Len(t, root.Children, 3)

	first := tree.Node(root.Children[0])
	assert.Equal(t, KindString, first.Kind)
	assert.Equal(t, "a", first.Key)
	assert.Equal(t, "1", first.Value)

	second := tree.Node(root.Children[1])
	assert.Equal(t, "a", second.Key)
	assert.Equal(t, "2", second.Value)

	third := tree.Node(root.Children[2])
	assert.Equal(t, KindList, third.Kind)
	assert.Equal(t, "b", third.Key)
	require.Len(t, third.Children, 1)

	c := tree.Node(third.Children[0])
	assert.Equal(t, "c", c.Key)
	assert.Equal(t, "x", c.Value)
}

func TestParseRejectsUnterminatedList(t *testing.T) {
	_, err := ParseString("bad", `a [ b 1`)
	assert.Error(t, err)
	assert.Equal(t, "parse_error", errKind(err))
}

func TestParseRejectsQuotedKey(t *testing.T) {
	_, err := ParseString("bad", `"a" 1`)
	assert.Error(t, err)
	assert.Equal(t, "illegal_attribute_key", errKind(err))
}

func TestParseRejectsStrayCloseBracket(t *testing.T) {
	_, err := ParseString("bad", `a 1 ]`)
	assert.Error(t, err)
}

func TestParseCStyleEscapes(t *testing.T) {
	tree, err := ParseString("escapes", `a "line1\nline2\t\x41\060"`)
	require.NoError(t, err)
	root := tree.Node(tree.Root())
	v := tree.Node(root.Children[0])
	assert.Equal(t, "line1\nline2\tA0", v.Value)
}

func TestParseLineComments(t *testing.T) {
	tree, err := ParseString("comment", "# a top comment\na 1 # trailing\nb 2")
	require.NoError(t, err)
	root := tree.Node(tree.Root())
	require.Len(t, root.Children, 2)
}

func errKind(err error) string {
	return dmlerrors.GetKind(err).String()
}
