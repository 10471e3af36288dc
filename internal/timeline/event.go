// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package timeline

import "github.com/grimmlab/chronoswitch/internal/vtime"

// Handler is a Process/Activation callback (spec §9 "Process/Activation
// callbacks... model a Process as a closure stored inside the event").
// It runs on its Timeline's own goroutine; tl is that Timeline, so a
// handler may itself call tl.ScheduleLocal to implement waitFor(Δ).
type Handler func(tl *Timeline)

// cancelFlag is the lazy-cancellation marker shared between a
// scheduled event and the Cancellation handle returned to its caller
// (spec §4.D "Cancellation... taking effect the next time the
// scheduler dequeues a cancelled entry").
type cancelFlag struct {
	cancelled bool
}

// Cancellation lets the Entity that scheduled an event cancel it.
type Cancellation struct {
	flag *cancelFlag
}

// Cancel marks the event cancelled. The scheduler skips it, silently,
// the next time it would otherwise fire.
func (c Cancellation) Cancel() {
	if c.flag != nil {
		c.flag.cancelled = true
	}
}

// event is one entry in a Timeline's event list, ordered by
// (fireTime, priority, seq) per spec §4.D.
type event struct {
	fireTime vtime.Time
	priority int
	seq      int64
	flag     *cancelFlag
	handler  Handler
}

// eventHeap implements container/heap.Interface, grounded on the
// pack's inference-sim event-heap shape (timestamp, then priority,
// then a monotonic sequence id as the deterministic FIFO tiebreak).
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].fireTime != h[j].fireTime {
		return h[i].fireTime < h[j].fireTime
	}
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
