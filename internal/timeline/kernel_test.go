// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package timeline

import (
	"testing"

	"github.com/grimmlab/chronoswitch/internal/vtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelProgressComputesHorizonFromInboundMinCrossDelay(t *testing.T) {
	k := NewKernel()
	t1 := NewTimeline("t1")
	t2 := NewTimeline("t2")
	k.AddTimeline(t1)
	k.AddTimeline(t2)

	e1 := NewEntity("e1", t1)
	e2 := NewEntity("e2", t2)
	out := e1.NewOutChannel("out", 10)
	var arrived []vtime.Time
	in := e2.NewInChannel("in")
	in.Deliver = func(dst *Timeline, _ any) { arrived = append(arrived, dst.Now()) }
	Connect(out, in, 10, false)

	require.True(t, out.Write(10, "pkt")) // floor honored: always legal

	advanced, err := k.Progress("t2", ProgressNormal)
	require.NoError(t, err)
	assert.True(t, advanced)
	// min_cross_delay = min_write_delay(10) + transfer_delay(10) = 20
	assert.Equal(t, vtime.Time(20), t2.Horizon())
	assert.Equal(t, []vtime.Time{20}, arrived)
}

func TestKernelProgressNormalSkipsIdleTimelineWithNoCrossChannel(t *testing.T) {
	k := NewKernel()
	tl := NewTimeline("solo")
	k.AddTimeline(tl)

	advanced, err := k.Progress("solo", ProgressNormal)
	require.NoError(t, err)
	assert.False(t, advanced)
}

func TestKernelProgressForceRunsEvenWhenIdle(t *testing.T) {
	k := NewKernel()
	tl := NewTimeline("solo")
	k.AddTimeline(tl)
	var ran bool
	tl.ScheduleAt(vtime.Time(0), 0, func(*Timeline) { ran = true })

	advanced, err := k.Progress("solo", ProgressForce)
	require.NoError(t, err)
	assert.True(t, advanced || ran)
	assert.True(t, ran)
}

func TestKernelProgressUnknownTimelineErrors(t *testing.T) {
	k := NewKernel()
	_, err := k.Progress("nope", ProgressNormal)
	assert.Error(t, err)
}

func TestKernelFixTimeline(t *testing.T) {
	k := NewKernel()
	tl := NewTimeline("t")
	k.AddTimeline(tl)
	var ran bool
	tl.ScheduleAt(vtime.Time(5), 0, func(*Timeline) { ran = true })

	require.NoError(t, k.FixTimeline("t", vtime.Time(50)))
	assert.Equal(t, vtime.Time(50), tl.Now())
	assert.Equal(t, 0, tl.PendingCount())
	assert.False(t, ran, "a stale event dropped by fix_timeline must never run")
}

// TestCrossTimelineSafety covers property 5: no event arrives at a
// Timeline with arrival ≤ T.now at the moment of scheduling.
func TestCrossTimelineSafety(t *testing.T) {
	k := NewKernel()
	t1 := NewTimeline("t1")
	t2 := NewTimeline("t2")
	k.AddTimeline(t1)
	k.AddTimeline(t2)
	e1 := NewEntity("e1", t1)
	e2 := NewEntity("e2", t2)
	out := e1.NewOutChannel("out", 10)
	in := e2.NewInChannel("in")
	Connect(out, in, 5, false)

	// Advance t2's own clock past the arrival the about-to-be-refused
	// write would otherwise target.
	t2.ScheduleAt(vtime.Time(100), 0, func(*Timeline) {})
	t2.RunTo(vtime.Time(100))

	// Sub-floor write (delay 0 < min_write_delay 10), arrival = 5.
	// T1's own horizon has already advanced to 100, so "arrival >
	// source.horizon" fails: the horizon protocol refuses the
	// delivery rather than letting it land at arrival(5) <= t2.Now()(100).
	t1.SetHorizon(vtime.Time(100))
	ok := out.Write(0, "pkt")
	assert.False(t, ok)
}
