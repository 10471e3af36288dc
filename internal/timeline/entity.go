// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package timeline

import "github.com/grimmlab/chronoswitch/internal/vtime"

// Entity is a simulation object owned by exactly one Timeline (spec
// §3 "Entity... an Entity's state is mutated only by code running on
// its owning Timeline"). Callers never reach into an Entity from
// another goroutine; all mutation happens inside Handlers run by the
// owning Timeline's event loop.
type Entity struct {
	Name     string
	Timeline *Timeline

	outChannels map[string]*OutChannel
	inChannels  map[string]*InChannel
	processes   map[string]*Process
}

// NewEntity creates an Entity and registers it with its owner.
func NewEntity(name string, owner *Timeline) *Entity {
	e := &Entity{
		Name:        name,
		Timeline:    owner,
		outChannels: make(map[string]*OutChannel),
		inChannels:  make(map[string]*InChannel),
		processes:   make(map[string]*Process),
	}
	owner.registerEntity(e)
	return e
}

// NewOutChannel creates and registers a named OutChannel owned by e.
func (e *Entity) NewOutChannel(name string, minWriteDelay vtime.Duration) *OutChannel {
	oc := &OutChannel{Name: name, Owner: e, MinWriteDelay: minWriteDelay}
	e.outChannels[name] = oc
	return oc
}

// NewInChannel creates and registers a named InChannel owned by e.
func (e *Entity) NewInChannel(name string) *InChannel {
	ic := &InChannel{Name: name, Owner: e}
	e.inChannels[name] = ic
	return ic
}

// NewProcess registers a named Process (a resumable Handler) on e.
func (e *Entity) NewProcess(name string, run Handler) *Process {
	p := &Process{Name: name, Owner: e, Run: run}
	e.processes[name] = p
	return p
}

// Process models a Process/Activation callback as a closure stored
// inside the scheduled event (spec §9 "Process/Activation callbacks").
// waitFor(Δ) is expressed by the Handler itself calling
// tl.ScheduleLocal to schedule its own continuation.
type Process struct {
	Name  string
	Owner *Entity
	Run   Handler
}

// Start schedules p's Run as a same-Timeline event at now+delay,
// priority 0.
func (p *Process) Start(delay vtime.Duration) Cancellation {
	return p.Owner.Timeline.ScheduleLocal(delay, 0, p.Run)
}
