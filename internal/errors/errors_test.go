// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageChaining(t *testing.T) {
	err := New(ConfigInvalid, "missing attribute")
	require.EqualError(t, err, "missing attribute")

	wrapped := Wrap(err, KindInternal, "load failed")
	assert.EqualError(t, wrapped, "load failed: missing attribute")
}

func TestGetKind(t *testing.T) {
	err := New(RecursiveExpansion, "cycle in _extends")
	assert.Equal(t, RecursiveExpansion, GetKind(err))

	wrapped := Wrap(err, KindInternal, "load failed")
	assert.Equal(t, KindInternal, GetKind(wrapped))

	assert.Equal(t, KindUnknown, GetKind(stderrors.New("plain")))
}

func TestAttributes(t *testing.T) {
	err := New(ConfigInvalid, "bad route")
	err = Attr(err, "file", "topo.dml")
	err = Attr(err, "line", 12)

	attrs := GetAttributes(err)
	assert.Equal(t, "topo.dml", attrs["file"])
	assert.Equal(t, 12, attrs["line"])
}

func TestRecoverablePolicy(t *testing.T) {
	assert.True(t, RouteUnresolvable.Recoverable())
	assert.True(t, EmulationDrift.Recoverable())
	assert.False(t, ConfigInvalid.Recoverable())
	assert.False(t, RecursiveExpansion.Recoverable())
}
