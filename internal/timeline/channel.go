// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package timeline

import "github.com/grimmlab/chronoswitch/internal/vtime"

// OutChannel is an Entity's outbound endpoint (spec §3 "OutChannel /
// InChannel / Mapping"). MinWriteDelay is the floor every write on
// this channel promises to honor.
type OutChannel struct {
	Name          string
	Owner         *Entity
	MinWriteDelay vtime.Duration
	Mappings      []*Mapping
}

// InChannel is an Entity's inbound endpoint. Its Deliver handler runs
// on the owning Entity's Timeline when a mapped write arrives.
type InChannel struct {
	Name    string
	Owner   *Entity
	Deliver func(tl *Timeline, activation any)
}

// Mapping records a connection from one OutChannel to one InChannel
// (spec §3): `effective_delay = per_write_delay + transfer_delay ≥
// min_write_delay` is an invariant of the OutChannel the mapping
// belongs to, not of the Mapping itself.
type Mapping struct {
	Out           *OutChannel
	In            *InChannel
	TransferDelay vtime.Duration
	SameTimeline  bool
	Asynchronous  bool
}

// Connect wires out to in with the given transfer delay, inferring
// SameTimeline from whether the two Entities share a Timeline.
func Connect(out *OutChannel, in *InChannel, transferDelay vtime.Duration, asynchronous bool) *Mapping {
	m := &Mapping{
		Out:           out,
		In:            in,
		TransferDelay: transferDelay,
		SameTimeline:  out.Owner.Timeline == in.Owner.Timeline,
		Asynchronous:  asynchronous,
	}
	out.Mappings = append(out.Mappings, m)
	if !m.SameTimeline {
		in.Owner.Timeline.registerInboundMapping(m)
	}
	return m
}

// Write implements spec §4.D's "Channel write" algorithm: for each of
// out's Mappings, compute the arrival time and either schedule it
// (same-Timeline, or cross-Timeline when legal) or drop it. Write
// returns false if any mapping's delivery was dropped as partial.
func (out *OutChannel) Write(perWriteDelay vtime.Duration, activation any) bool {
	tl := out.Owner.Timeline
	now := tl.Now()
	ok := true

	for _, m := range out.Mappings {
		arrival := now.Add(perWriteDelay).Add(m.TransferDelay)
		handler := deliveryHandler(m, activation)

		if m.SameTimeline {
			// The calling goroutine already owns this Timeline's
			// event list; schedule directly, no mailbox needed.
			tl.ScheduleAt(arrival, priorityChannelDelivery, handler)
			continue
		}

		switch {
		case perWriteDelay >= out.MinWriteDelay:
			// Floor honored: delivery is always legal.
			m.In.Owner.Timeline.deliverCrossTimeline(arrival, priorityChannelDelivery, handler)
		case arrival.After(tl.Horizon()):
			// The receiver cannot yet have executed past arrival.
			m.In.Owner.Timeline.deliverCrossTimeline(arrival, priorityChannelDelivery, handler)
		default:
			ok = false
		}
	}
	return ok
}

// deliveryHandler closes over the Mapping and its payload so the
// scheduled event, whenever it fires, calls the target InChannel's
// Deliver with that payload.
func deliveryHandler(m *Mapping, activation any) Handler {
	return func(dst *Timeline) {
		if m.In.Deliver != nil {
			m.In.Deliver(dst, activation)
		}
	}
}

// priorityChannelDelivery is the priority band channel deliveries use,
// distinct from locally-scheduled Process continuations so that, at
// equal fire_time, wakeups and arrivals interleave in a fixed order
// rather than by accidental insertion sequence.
const priorityChannelDelivery = 1
