// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sim

import (
	"testing"
	"time"

	"github.com/grimmlab/chronoswitch/internal/dilation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronizeAndFreezeRecordsSameInstantForEveryProcess(t *testing.T) {
	s := NewService()
	require.NoError(t, s.AddToExperiment(100, "t1"))
	require.NoError(t, s.AddToExperiment(200, "t1"))

	snap, err := s.SynchronizeAndFreeze()
	require.NoError(t, err)

	t1, err := s.GettimePID(100)
	require.NoError(t, err)
	t2, err := s.GettimePID(200)
	require.NoError(t, err)
	assert.True(t, t1.Equal(snap))
	assert.True(t, t2.Equal(snap))
	assert.True(t, t1.Equal(t2), "all Proxies must record the same start instant")
}

func TestSetIntervalAppliesOnlyOnProgress(t *testing.T) {
	s := NewService()
	require.NoError(t, s.AddToExperiment(1, "t1"))
	require.NoError(t, s.DilateAll(1, 2.0))
	start, err := s.SynchronizeAndFreeze()
	require.NoError(t, err)

	require.NoError(t, s.SetInterval(1, 10*time.Millisecond, "t1"))
	before, err := s.GettimePID(1)
	require.NoError(t, err)
	assert.True(t, before.Equal(start), "queued interval must not apply before Progress")

	require.NoError(t, s.Progress("t1", dilation.NoForce))
	after, err := s.GettimePID(1)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, after.Sub(start), "tdf=2.0 doubles the 10ms interval")
}

func TestDilateAllTreatsZeroTdfAsOne(t *testing.T) {
	s := NewService()
	require.NoError(t, s.AddToExperiment(1, "t1"))
	require.NoError(t, s.DilateAll(1, 0))
	start, _ := s.SynchronizeAndFreeze()
	require.NoError(t, s.SetInterval(1, 5*time.Millisecond, "t1"))
	require.NoError(t, s.Progress("t1", dilation.Force))
	after, _ := s.GettimePID(1)
	assert.Equal(t, 5*time.Millisecond, after.Sub(start))
}

func TestSetIntervalOnUnregisteredPidErrors(t *testing.T) {
	s := NewService()
	err := s.SetInterval(999, time.Millisecond, "t1")
	require.Error(t, err)
}

func TestStopExperimentClearsState(t *testing.T) {
	s := NewService()
	require.NoError(t, s.AddToExperiment(1, "t1"))
	require.NoError(t, s.StopExperiment())
	_, err := s.GettimePID(1)
	require.Error(t, err)
}
