// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/vtime"
)

func transitionError(name string, from, to State) error {
	return errors.Errorf(errors.ConfigInvalid, "proxy %q: illegal transition from %q to %q", name, from, to)
}

// Launch creates the bridge, the tap device, and the container itself
// (spec §4.F step 1), via the fixed create script. It only ever moves
// Pending → Created, so a failed Launch leaves the Proxy retriable
// from Pending rather than wedged in a half-built state.
func (p *Proxy) Launch(ctx context.Context, deps Deps, createScript string) error {
	if err := p.transition([]State{StatePending}, StateCreated); err != nil {
		return err
	}
	if err := deps.Links.EnsureBridge(p.BridgeName); err != nil {
		p.revertTo(StatePending)
		return fmt.Errorf("proxy %q: ensure bridge %q: %w", p.ContainerName, p.BridgeName, err)
	}
	fd, err := deps.Links.EnsureTap(p.TapName, p.BridgeName)
	if err != nil {
		p.revertTo(StatePending)
		return fmt.Errorf("proxy %q: ensure tap %q: %w", p.ContainerName, p.TapName, err)
	}
	if err := deps.Scripts.Run(ctx, createScript, p.ContainerName, p.NHI, p.IP); err != nil {
		p.revertTo(StatePending)
		return fmt.Errorf("proxy %q: create script: %w", p.ContainerName, err)
	}
	p.mu.Lock()
	p.TapFD = fd
	p.mu.Unlock()
	return nil
}

func (p *Proxy) revertTo(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Attach records containerPID and timelineID, registers (pid, tdf)
// with the dilation service, and declares the process's participation
// in the experiment on timelineID (spec §4.F step 2). It opens no tap
// fd: the Proxy keeps the fd Launch obtained from EnsureTap.
func (p *Proxy) Attach(deps Deps, containerPID int, timelineID string) error {
	if err := p.transition([]State{StateCreated}, StateAttached); err != nil {
		return err
	}
	p.mu.Lock()
	p.ContainerPID = containerPID
	p.TimelineID = timelineID
	tdf := p.TDF
	p.mu.Unlock()

	if err := deps.Dilation.DilateAll(containerPID, tdf); err != nil {
		p.revertTo(StateCreated)
		return fmt.Errorf("proxy %q: dilate_all: %w", p.ContainerName, err)
	}
	if err := deps.Dilation.AddToExperiment(containerPID, timelineID); err != nil {
		p.revertTo(StateCreated)
		return fmt.Errorf("proxy %q: add_to_experiment: %w", p.ContainerName, err)
	}
	return nil
}

// Freeze snapshots the container's wall-clock start instant via the
// dilation service's synchronize_and_freeze (spec §4.F step 3). The
// caller is responsible for asserting, across every attached Proxy,
// that the returned instants are identical — Freeze itself only
// records what it is given.
func (p *Proxy) Freeze(deps Deps) error {
	if err := p.transition([]State{StateAttached}, StateFrozen); err != nil {
		return err
	}
	start, err := deps.Dilation.SynchronizeAndFreeze()
	if err != nil {
		p.revertTo(StateAttached)
		return fmt.Errorf("proxy %q: synchronize_and_freeze: %w", p.ContainerName, err)
	}
	p.mu.Lock()
	p.SimStartWallclock = start
	p.mu.Unlock()
	return nil
}

// MarkRunning transitions Frozen → Running once the experiment's first
// advance has begun. Separated from Freeze so a Manager can freeze
// every Proxy first and only then start advancing any of them.
func (p *Proxy) MarkRunning() error {
	return p.transition([]State{StateFrozen, StateRunning}, StateRunning)
}

// minUsefulAdvance is the Δ*tdf floor below which advance_by is
// skipped as not worth a dilation-service round trip (spec §4.F:
// "Advance requests with Δ*tdf < 10 are skipped").
const minUsefulAdvance = 10 * time.Microsecond

// AdvanceBy issues set_interval(pid, delta, timeline_id) unless
// delta*tdf falls below minUsefulAdvance, in which case it is skipped
// entirely and AdvanceBy reports skipped=true.
func (p *Proxy) AdvanceBy(deps Deps, delta time.Duration) (skipped bool, err error) {
	p.mu.Lock()
	tdf := p.TDF
	pid := p.ContainerPID
	timelineID := p.TimelineID
	state := p.state
	p.mu.Unlock()

	if state != StateRunning && state != StateFrozen {
		return false, errors.Errorf(errors.ConfigInvalid, "proxy %q: advance_by called from state %q", p.ContainerName, state)
	}

	scaled := time.Duration(float64(delta) * tdf)
	if scaled < minUsefulAdvance {
		return true, nil
	}
	if err := deps.Dilation.SetInterval(pid, delta, timelineID); err != nil {
		return false, fmt.Errorf("proxy %q: set_interval: %w", p.ContainerName, err)
	}
	_ = p.MarkRunning()
	return false, nil
}

// ElapsedVirtualTime reads the container's dilated clock and returns
// elapsed = dilated_clock(pid) - sim_start_wallclock (spec §4.F).
// Monotonic per container by construction of the dilation service.
func (p *Proxy) ElapsedVirtualTime(deps Deps) (vtime.Duration, error) {
	p.mu.Lock()
	pid := p.ContainerPID
	start := p.SimStartWallclock
	p.mu.Unlock()

	dilated, err := deps.Dilation.GettimePID(pid)
	if err != nil {
		return 0, fmt.Errorf("proxy %q: gettime_pid: %w", p.ContainerName, err)
	}
	elapsed := dilated.Sub(start)
	p.mu.Lock()
	p.LastArrivalVTime = vtime.Time(elapsed.Microseconds())
	p.mu.Unlock()
	return vtime.Duration(elapsed.Microseconds()), nil
}

// Teardown runs the destroy script for the container, deletes the tap
// device, and resets the dilation service's bookkeeping for the
// Proxy's Timeline (spec §4.F step 4). The tap fd recorded by Launch
// is not closed. It is idempotent from
// any state: a Proxy that never made it past Pending tears down as a
// cheap no-op instead of erroring, since a caller cleaning up after a
// partial Launch shouldn't need to know how far it got.
func (p *Proxy) Teardown(ctx context.Context, deps Deps, destroyScript string) error {
	p.mu.Lock()
	prev := p.state
	p.state = StateTornDown
	p.mu.Unlock()

	if prev == StatePending || prev == StateTornDown {
		return nil
	}

	var firstErr error
	if err := deps.Scripts.Run(ctx, destroyScript, p.ContainerName); err != nil {
		firstErr = fmt.Errorf("proxy %q: destroy script: %w", p.ContainerName, err)
	}
	if err := deps.Links.DeleteLink(p.TapName); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("proxy %q: delete tap %q: %w", p.ContainerName, p.TapName, err)
	}
	if deps.Dilation != nil {
		_ = deps.Dilation.Reset(p.TimelineID)
	}
	return firstErr
}

// assertSameFreezeInstant is a package-level helper a Manager calls
// after freezing every Proxy, to enforce spec §4.F's "all Proxies
// must record the same start instant" invariant explicitly rather
// than trusting it implicitly.
func assertSameFreezeInstant(proxies []*Proxy) error {
	if len(proxies) == 0 {
		return nil
	}
	want := proxies[0].SimStartWallclock
	for _, p := range proxies[1:] {
		if !p.SimStartWallclock.Equal(want) {
			return errors.Errorf(errors.KindInternal, "proxy %q recorded freeze instant %v, want %v (same as proxy %q)",
				p.ContainerName, p.SimStartWallclock, want, proxies[0].ContainerName)
		}
	}
	return nil
}

// AssertSameFreezeInstant enforces that every Proxy in proxies
// recorded the identical synchronize_and_freeze instant.
func AssertSameFreezeInstant(proxies []*Proxy) error {
	return assertSameFreezeInstant(proxies)
}
