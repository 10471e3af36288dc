// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesTopLevelChildrenOfEachFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.dml")
	b := filepath.Join(dir, "b.dml")
	require.NoError(t, os.WriteFile(a, []byte(`net [ host "1" ]`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`net [ host "2" ]`), 0o644))

	tree, err := Load(a, b)
	require.NoError(t, err)

	root := tree.Node(tree.Root())
	require.Len(t, root.Children, 2)

	matches := tree.Find("net.host")
	require.Len(t, matches, 2)
}

func TestLoadMissingFileReturnsOpenDMLFileError(t *testing.T) {
	_, err := Load("/nonexistent/path.dml")
	require.Error(t, err)
}

func TestStringTableInterning(t *testing.T) {
	st := NewStringTable()
	a := st.Intern("router")
	b := st.Intern("router")
	assert.Equal(t, a, b)
	assert.Equal(t, 2, st.RefCount("router"))

	st.Release("router")
	assert.Equal(t, 1, st.RefCount("router"))
}
