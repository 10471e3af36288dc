// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package timeline

import (
	"container/heap"
	"sync"

	"github.com/grimmlab/chronoswitch/internal/vtime"
)

// Timeline is a scheduling domain with its own clock and event list
// (spec §3 "Timeline"). Its event heap, now, and horizon are touched
// only by the goroutine running Timeline.Run — the one exception is
// the inbound mailbox, which deliverCrossTimeline appends to under a
// mutex from a peer Timeline's goroutine, and which Run drains into
// the local heap at a point where it alone is active.
type Timeline struct {
	ID string

	events eventHeap
	now    vtime.Time
	horizon vtime.Time
	seq    int64

	entities map[string]*Entity

	inboundMu sync.Mutex
	inbound   []*event

	// inboundMappings lists Mappings whose target is this Timeline
	// from a different Timeline; minCrossDelay is derived from it and
	// used to compute the next barrier horizon (spec §4.D
	// "Synchronization window").
	inboundMappings []*Mapping
}

// NewTimeline creates an empty Timeline. Its horizon starts at its
// current time, the conservative default spec §4.D implies for any
// Timeline not yet participating in a barrier: a Timeline gains a
// wider window only by running Kernel.Progress (which, for a Timeline
// with no inbound cross-Timeline mapping, runs it unbounded, since
// there is no peer to synchronize with) or by a test pinning it
// directly via SetHorizon.
func NewTimeline(id string) *Timeline {
	tl := &Timeline{
		ID:       id,
		entities: make(map[string]*Entity),
	}
	heap.Init(&tl.events)
	return tl
}

func (tl *Timeline) registerEntity(e *Entity) { tl.entities[e.Name] = e }

func (tl *Timeline) registerInboundMapping(m *Mapping) {
	tl.inboundMappings = append(tl.inboundMappings, m)
}

// Now returns the Timeline's current simulated time.
func (tl *Timeline) Now() vtime.Time { return tl.now }

// Horizon returns the current synchronization window's upper bound.
func (tl *Timeline) Horizon() vtime.Time { return tl.horizon }

// HasCrossChannel reports whether any Mapping delivers into this
// Timeline from a different one.
func (tl *Timeline) HasCrossChannel() bool { return len(tl.inboundMappings) > 0 }

// MinCrossDelay returns the minimum `min_write_delay + transfer_delay`
// over every inbound cross-Timeline Mapping (spec §4.D). The spec
// qualifies this with "delay ≥ threshold" without naming the
// threshold; absent a documented value, every inbound mapping
// participates — see DESIGN.md.
func (tl *Timeline) MinCrossDelay() (vtime.Duration, bool) {
	if len(tl.inboundMappings) == 0 {
		return 0, false
	}
	min := tl.inboundMappings[0].Out.MinWriteDelay + tl.inboundMappings[0].TransferDelay
	for _, m := range tl.inboundMappings[1:] {
		d := m.Out.MinWriteDelay + m.TransferDelay
		if d < min {
			min = d
		}
	}
	return min, true
}

// ScheduleLocal schedules handler to run at tl.Now()+delay. Must only
// be called from code running on tl's own goroutine (an Entity's
// Handler, or a test driving a Timeline directly and synchronously).
func (tl *Timeline) ScheduleLocal(delay vtime.Duration, priority int, handler Handler) Cancellation {
	return tl.ScheduleAt(tl.now.Add(delay), priority, handler)
}

// ScheduleAt schedules handler to run at the given absolute fire time.
// fireTime must be ≥ tl.Now() (spec §3's vtime invariant).
func (tl *Timeline) ScheduleAt(fireTime vtime.Time, priority int, handler Handler) Cancellation {
	flag := &cancelFlag{}
	tl.seq++
	heap.Push(&tl.events, &event{
		fireTime: fireTime,
		priority: priority,
		seq:      tl.seq,
		flag:     flag,
		handler:  handler,
	})
	return Cancellation{flag: flag}
}

// deliverCrossTimeline is the thread-safe side of cross-Timeline
// delivery: a peer Timeline's goroutine calls this to hand off an
// event for this Timeline to merge into its own heap. It never
// touches tl.events directly.
func (tl *Timeline) deliverCrossTimeline(fireTime vtime.Time, priority int, handler Handler) {
	tl.inboundMu.Lock()
	defer tl.inboundMu.Unlock()
	tl.inbound = append(tl.inbound, &event{
		fireTime: fireTime,
		priority: priority,
		flag:     &cancelFlag{},
		handler:  handler,
	})
}

// drainInbound merges any mailbox deliveries into the local heap,
// assigning them sequence numbers in mailbox arrival order. Must be
// called only from tl's own goroutine.
func (tl *Timeline) drainInbound() {
	tl.inboundMu.Lock()
	pending := tl.inbound
	tl.inbound = nil
	tl.inboundMu.Unlock()

	for _, ev := range pending {
		tl.seq++
		ev.seq = tl.seq
		heap.Push(&tl.events, ev)
	}
}

// RunTo executes every event with fire_time ≤ horizon in the local
// heap (first draining any cross-Timeline mailbox deliveries),
// advancing tl.now as it goes, and returns once the heap is empty or
// its next event is beyond horizon. Cancelled events are skipped
// without running their handler (spec §4.D "lazy deletion").
func (tl *Timeline) RunTo(horizon vtime.Time) {
	tl.drainInbound()
	for tl.events.Len() > 0 {
		next := tl.events[0]
		if next.fireTime > horizon {
			break
		}
		heap.Pop(&tl.events)
		if next.flag.cancelled {
			continue
		}
		if next.fireTime > tl.now {
			tl.now = next.fireTime
		}
		next.handler(tl)
		tl.drainInbound()
	}
	if horizon > tl.now {
		tl.now = horizon
	}
}

// DrainLocal executes every locally pending event regardless of any
// horizon bound. Kernel.Progress uses this for a Timeline with no
// inbound cross-Timeline mapping, since the spec treats such a
// Timeline's horizon as unbounded — there is no peer to synchronize
// against, so tl.now only ever advances to its last executed event,
// never to an arbitrary placeholder value.
func (tl *Timeline) DrainLocal() {
	tl.drainInbound()
	for tl.events.Len() > 0 {
		next := heap.Pop(&tl.events).(*event)
		if next.flag.cancelled {
			continue
		}
		if next.fireTime > tl.now {
			tl.now = next.fireTime
		}
		next.handler(tl)
		tl.drainInbound()
	}
}

// PendingCount reports how many events remain in the local heap,
// without draining the cross-Timeline mailbox. Test/diagnostic use.
func (tl *Timeline) PendingCount() int { return tl.events.Len() }

// SetHorizon pins the Timeline's synchronization window directly.
// Production code reaches the horizon only through Kernel.Progress;
// this exists for tests that exercise §4.D's channel-write legality
// rules against a specific horizon value (scenarios S4/S5).
func (tl *Timeline) SetHorizon(h vtime.Time) { tl.horizon = h }

// fixClock resynchronizes the Timeline's clock to resolvedNow after
// emulation drift detected upstream (spec §4.G step 4: "if any
// exceeds 1000 µs, call fix_timeline(tid)"). Events that would now
// fire in the past are dropped rather than dispatched out of causal
// order; the horizon is pulled forward if it had fallen behind.
func (tl *Timeline) fixClock(resolvedNow vtime.Time) {
	tl.drainInbound()
	var kept eventHeap
	for _, ev := range tl.events {
		if ev.fireTime >= resolvedNow && !ev.flag.cancelled {
			kept = append(kept, ev)
		}
	}
	tl.events = kept
	heap.Init(&tl.events)
	tl.now = resolvedNow
	if tl.horizon < resolvedNow {
		tl.horizon = resolvedNow
	}
}
