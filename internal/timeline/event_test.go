// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package timeline

import (
	"testing"

	"github.com/grimmlab/chronoswitch/internal/vtime"
	"github.com/stretchr/testify/assert"
)

// TestEventListOrdering exercises spec §4.D's "event list ordered by
// (fire_time, priority, sequence_number)".
func TestEventListOrdering(t *testing.T) {
	tl := NewTimeline("t")
	var order []string

	tl.ScheduleAt(vtime.Time(10), 1, func(*Timeline) { order = append(order, "b") })
	tl.ScheduleAt(vtime.Time(5), 0, func(*Timeline) { order = append(order, "a") })
	tl.ScheduleAt(vtime.Time(10), 0, func(*Timeline) { order = append(order, "c") })
	tl.ScheduleAt(vtime.Time(10), 0, func(*Timeline) { order = append(order, "d") }) // same time+priority: FIFO

	tl.RunTo(vtime.Time(100))
	assert.Equal(t, []string{"a", "c", "d", "b"}, order)
}

func TestCancelledEventIsSkippedNotExecuted(t *testing.T) {
	tl := NewTimeline("t")
	ran := false
	cancel := tl.ScheduleAt(vtime.Time(5), 0, func(*Timeline) { ran = true })
	cancel.Cancel()
	tl.RunTo(vtime.Time(10))
	assert.False(t, ran)
}
