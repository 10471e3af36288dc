// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package protograph

import (
	"testing"

	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSessionLifecycleOrder(t *testing.T) {
	b := NewBaseSession("ip", "ip", 1, UniqueInstance)
	assert.Equal(t, StageCreated, b.Stage())

	require.NoError(t, b.Configure())
	assert.Equal(t, StageConfigured, b.Stage())

	require.NoError(t, b.Init())
	assert.Equal(t, StageInitialized, b.Stage())

	require.NoError(t, b.WrapUp())
	assert.Equal(t, StageWrappedUp, b.Stage())
}

func TestBaseSessionRejectsOutOfOrderTransition(t *testing.T) {
	b := NewBaseSession("ip", "ip", 1, UniqueInstance)
	err := b.Init()
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.ConfigInvalid, e.Kind)
}

func TestBaseSessionWrapUpRequiresInitialized(t *testing.T) {
	b := NewBaseSession("ip", "ip", 1, UniqueInstance)
	require.NoError(t, b.Configure())
	err := b.WrapUp()
	require.Error(t, err)
}

func TestBaseControlUnknownTypeIsFatal(t *testing.T) {
	b := NewBaseSession("ip", "ip", 1, UniqueInstance)
	_, err := b.BaseControl(ControlType("frobnicate"), nil, nil)
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.ConfigInvalid, e.Kind)
}

func TestBaseControlIsLowestLayerDefaultsFalse(t *testing.T) {
	b := NewBaseSession("ip", "ip", 1, UniqueInstance)
	v, err := b.BaseControl(ControlIsLowestLayer, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}
