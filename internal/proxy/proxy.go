// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package proxy implements the Container Proxy (spec §4.F): the
// per-container state machine that binds one lightweight OS container
// to one Timeline through the kernel time-dilation service.
package proxy

import (
	"sync"
	"time"

	"github.com/grimmlab/chronoswitch/internal/vtime"
)

// State is the Proxy's lifecycle stage. Modeled as a small set of
// named states behind a plain field, in the kernel.FlowState idiom,
// rather than a boolean or a class hierarchy — Launch/Attach/Freeze
// each assert their expected starting state so a partial failure is
// visible instead of silently leaving the Proxy unusable; Teardown
// accepts any state.
type State string

const (
	StatePending  State = "pending"
	StateCreated  State = "created"
	StateAttached State = "attached"
	StateFrozen   State = "frozen"
	StateRunning  State = "running"
	StateTornDown State = "torn_down"
)

// Stats accumulates per-Proxy packet counters (spec §4.F).
type Stats struct {
	Sent             uint64
	Late             uint64
	Early            uint64
	OnTime           uint64
	InjectedPast     uint64
	InjectedFuture   uint64
	InjectedOnTime   uint64
	ErrorTotals      uint64
}

// Proxy is one container's binding into the experiment.
type Proxy struct {
	NHI           string
	IP            string
	TapName       string
	BridgeName    string
	ContainerName string

	TapFD         int
	ContainerPID  int
	TDF           float64
	TimelineID    string

	SimStartWallclock time.Time
	CommandSent       bool
	LastArrivalVTime  vtime.Time

	mu    sync.Mutex
	state State
	Stats Stats
}

// New creates a Proxy in StatePending for the given NHI/IP/container
// identity. TDF defaults to 1.0 (real time) per spec §6's "0 treated
// as 1" rule, applied here so a zero-value Proxy is never silently
// frozen-forever.
func New(nhi, ip, containerName string) *Proxy {
	return &Proxy{
		NHI:           nhi,
		IP:            ip,
		ContainerName: containerName,
		TDF:           1.0,
		state:         StatePending,
	}
}

// State reports the Proxy's current lifecycle stage.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Proxy) transition(from []State, to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok := false
	for _, f := range from {
		if p.state == f {
			ok = true
			break
		}
	}
	if !ok {
		return transitionError(p.ContainerName, p.state, to)
	}
	p.state = to
	return nil
}
