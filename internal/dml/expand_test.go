// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmlerrors "github.com/grimmlab/chronoswitch/internal/errors"
)

// TestExpansionAliasesTarget is spec §8 scenario S2.
func TestExpansionAliasesTarget(t *testing.T) {
	tree, err := ParseString("s2", `x [ y "1" ] z [ _extends .x ]`)
	require.NoError(t, err)
	require.NoError(t, Expand(tree))

	idx, ok := tree.FindSingle("z.y")
	require.True(t, ok)
	v, ok := tree.StringValue(idx)
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

// TestExpansionDetectsCycle is spec §8 property 8.
func TestExpansionDetectsCycle(t *testing.T) {
	tree, err := ParseString("cycle", `a [ _extends .b ] b [ _extends .a ]`)
	require.NoError(t, err)

	err = Expand(tree)
	require.Error(t, err)
	assert.Equal(t, "recursive_expansion", dmlerrors.GetKind(err).String())
}

func TestExpansionRejectsNonListTarget(t *testing.T) {
	tree, err := ParseString("bad-extends", `x "1" z [ _extends .x ]`)
	require.NoError(t, err)

	err = Expand(tree)
	require.Error(t, err)
	assert.Equal(t, "non_list_attachment", dmlerrors.GetKind(err).String())
}

func TestExpansionRejectsMissingTarget(t *testing.T) {
	tree, err := ParseString("bad-missing", `z [ _extends .nope ]`)
	require.NoError(t, err)

	err = Expand(tree)
	require.Error(t, err)
	assert.Equal(t, "missing_attachment", dmlerrors.GetKind(err).String())
}

func TestFindTransparentThroughExtends(t *testing.T) {
	tree, err := ParseString("find-extends", `
base [ host "h1" host "h2" ]
derived [ _extends .base host "h3" ]
`)
	require.NoError(t, err)
	require.NoError(t, Expand(tree))

	matches := tree.Find("derived.host")
	require.Len(t, matches, 3)
	var values []string
	for _, m := range matches {
		v, _ := tree.StringValue(m)
		values = append(values, v)
	}
	assert.Equal(t, []string{"h1", "h2", "h3"}, values)
}

func TestFindNodeLocatesAnyDepthOnFinalSegment(t *testing.T) {
	tree, err := ParseString("find-node", `
topology [ site [ rack [ host "deep" ] ] ]
lookup [ _find .topology ]
`)
	require.NoError(t, err)
	require.NoError(t, Expand(tree))

	idx, ok := tree.FindSingle("lookup.host")
	require.True(t, ok)
	v, _ := tree.StringValue(idx)
	assert.Equal(t, "deep", v)
}

func TestIsConfigurationDistinguishesListFromString(t *testing.T) {
	tree, err := ParseString("disc", `a 1 b [ c 2 ]`)
	require.NoError(t, err)

	str, ok := tree.FindSingle("a")
	require.True(t, ok)
	assert.False(t, tree.IsConfiguration(str))

	list, ok := tree.FindSingle("b")
	require.True(t, ok)
	assert.True(t, tree.IsConfiguration(list))
}
