// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimmlab/chronoswitch/internal/logging"
	"github.com/grimmlab/chronoswitch/internal/procconfig"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Options{Format: logging.FormatConsole, Level: slog.LevelError})
}

func TestBuildEngineSimDilationDefault(t *testing.T) {
	spec := &ExperimentSpec{Dilation: "sim"}
	engine, err := BuildEngine(spec, procconfig.Default(), testLogger())
	require.NoError(t, err)
	assert.NotNil(t, engine.manager)
	assert.NotNil(t, engine.dilation)
}

func TestBuildEngineUnknownDilationErrors(t *testing.T) {
	spec := &ExperimentSpec{Dilation: "nonsense"}
	_, err := BuildEngine(spec, procconfig.Default(), testLogger())
	require.Error(t, err)
}

func TestBuildEngineStrictSocketHookMissingFileErrors(t *testing.T) {
	spec := &ExperimentSpec{Dilation: "sim", SocketHookFile: "/nonexistent/hook/path"}
	cfg := procconfig.Default()
	cfg.SocketHookStrict = true

	_, err := BuildEngine(spec, cfg, testLogger())
	require.Error(t, err)
}

func TestBuildEngineNonStrictSocketHookMissingFileDegradesQuietly(t *testing.T) {
	spec := &ExperimentSpec{Dilation: "sim", SocketHookFile: "/nonexistent/hook/path"}
	engine, err := BuildEngine(spec, procconfig.Default(), testLogger())
	require.NoError(t, err)
	assert.Nil(t, engine.hooks)
}
