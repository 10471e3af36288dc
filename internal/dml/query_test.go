// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindWildcardSegment(t *testing.T) {
	tree, err := ParseString("wild", `net [ host "a" host "b" router "c" ]`)
	require.NoError(t, err)

	matches := tree.Find("net.*")
	require.Len(t, matches, 3)
}

func TestFindSingleCharWildcard(t *testing.T) {
	tree, err := ParseString("wild-char", `h1 "one" h2 "two" x9 "three"`)
	require.NoError(t, err)

	matches := tree.Find("h?")
	require.Len(t, matches, 2)
}

func TestFindSingleReturnsFirstMatchOnly(t *testing.T) {
	tree, err := ParseString("first", `a 1 a 2`)
	require.NoError(t, err)

	idx, ok := tree.FindSingle("a")
	require.True(t, ok)
	v, _ := tree.StringValue(idx)
	assert.Equal(t, "1", v)
}

func TestFindSingleMissingReturnsFalse(t *testing.T) {
	tree, err := ParseString("missing", `a 1`)
	require.NoError(t, err)

	_, ok := tree.FindSingle("nope")
	assert.False(t, ok)
}
