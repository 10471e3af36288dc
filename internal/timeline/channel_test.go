// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package timeline

import (
	"testing"

	"github.com/grimmlab/chronoswitch/internal/vtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTimelines(t *testing.T) (t1, t2 *Timeline, e1, e2 *Entity) {
	t.Helper()
	t1 = NewTimeline("t1")
	t2 = NewTimeline("t2")
	e1 = NewEntity("e1", t1)
	e2 = NewEntity("e2", t2)
	return
}

// TestChannelWriteSameTimelineAlwaysSucceeds covers spec §4.D's
// same-Timeline write branch.
func TestChannelWriteSameTimelineAlwaysSucceeds(t *testing.T) {
	tl := NewTimeline("t1")
	a := NewEntity("a", tl)
	b := NewEntity("b", tl)
	out := a.NewOutChannel("out", 0)
	var received []any
	in := b.NewInChannel("in")
	in.Deliver = func(_ *Timeline, activation any) { received = append(received, activation) }
	Connect(out, in, 5, false)

	ok := out.Write(0, "hello")
	assert.True(t, ok)
	tl.RunTo(vtime.Time(5))
	assert.Equal(t, []any{"hello"}, received)
}

// TestChannelWriteScenarioS4Window implements scenario S4: T1's
// OutChannel (min_write_delay=10) maps to T2's InChannel with
// transfer_delay=10; writing at T1.now=0 with delay=0 succeeds (the
// default horizon of 0 still permits it — arrival 10 > horizon 0) and
// the event only actually fires on T2 once T2's own clock reaches 10.
func TestChannelWriteScenarioS4Window(t *testing.T) {
	t1, t2, e1, e2 := twoTimelines(t)
	out := e1.NewOutChannel("out", 10)
	var arrivedAt vtime.Time
	in := e2.NewInChannel("in")
	in.Deliver = func(dst *Timeline, _ any) { arrivedAt = dst.Now() }
	Connect(out, in, 10, false)

	ok := out.Write(0, "pkt")
	require.True(t, ok, "sub-floor write must still be legal while T1's horizon (0) is behind the arrival time (10)")
	assert.Equal(t, vtime.Time(0), t1.Horizon(), "T1 never had to advance its own horizon to make this write legal")

	t2.SetHorizon(vtime.Time(10))
	t2.RunTo(vtime.Time(10))
	assert.Equal(t, vtime.Time(10), arrivedAt)
}

// TestChannelWriteScenarioS5CrossDeliveryDropped implements scenario
// S5: the same mapping, but now driven purely by T1.horizon's value
// against a fixed arrival of 10.
func TestChannelWriteScenarioS5CrossDeliveryDropped(t *testing.T) {
	t1, _, e1, e2 := twoTimelines(t)
	out := e1.NewOutChannel("out", 10)
	in := e2.NewInChannel("in")
	Connect(out, in, 10, false)

	t1.SetHorizon(vtime.Time(5))
	assert.True(t, out.Write(0, "pkt"), "arrival 10 > horizon 5: legal")

	t1.SetHorizon(vtime.Time(15))
	assert.False(t, out.Write(0, "pkt"), "arrival 10 is not > horizon 15: illegal, partial write")
}

// TestChannelWriteHonoringFloorIsAlwaysLegal covers the first branch:
// d ≥ min_write_delay is legal regardless of horizon.
func TestChannelWriteHonoringFloorIsAlwaysLegal(t *testing.T) {
	t1, _, e1, e2 := twoTimelines(t)
	out := e1.NewOutChannel("out", 10)
	in := e2.NewInChannel("in")
	Connect(out, in, 10, false)

	t1.SetHorizon(vtime.Time(100)) // would fail the "arrival > horizon" branch
	assert.True(t, out.Write(10, "pkt"))
}

// TestChannelFairnessWriteOrderPreserved covers property 6: messages
// written to the same mapping arrive in write order.
func TestChannelFairnessWriteOrderPreserved(t *testing.T) {
	_, t2, e1, e2 := twoTimelines(t)
	out := e1.NewOutChannel("out", 0)
	var received []int
	in := e2.NewInChannel("in")
	in.Deliver = func(_ *Timeline, activation any) { received = append(received, activation.(int)) }
	Connect(out, in, 5, false)

	t2.SetHorizon(vtime.Time(1000))
	for i := 0; i < 5; i++ {
		require.True(t, out.Write(vtime.Duration(i), i))
	}
	t2.RunTo(vtime.Time(1000))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, received)
}
