// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package timeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/vtime"
)

// ProgressFlag selects progress's barrier behavior (spec §4.D
// "progress(timeline, flag)").
type ProgressFlag int

const (
	// ProgressNormal skips the call entirely when the Timeline has
	// nothing pending and no cross-Timeline channel to maintain a
	// barrier for.
	ProgressNormal ProgressFlag = iota
	// ProgressForce always recomputes the horizon and runs to it,
	// even when Normal mode would have skipped — the documented
	// escape hatch for "an otherwise-skippable barrier."
	ProgressForce
)

// Kernel owns the set of Timelines in one experiment and coordinates
// their barriers (spec §4.D). Kernel itself holds no Entity state; it
// only arbitrates horizons and dispatches progress/fix_timeline calls,
// so its own bookkeeping can be protected by a plain mutex without
// violating "Entity state touched only by its owning Timeline."
type Kernel struct {
	mu        sync.Mutex
	timelines map[string]*Timeline
	order     []string
}

// NewKernel creates an empty Kernel.
func NewKernel() *Kernel {
	return &Kernel{timelines: make(map[string]*Timeline)}
}

// AddTimeline registers tl with the Kernel.
func (k *Kernel) AddTimeline(tl *Timeline) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.timelines[tl.ID] = tl
	k.order = append(k.order, tl.ID)
}

func (k *Kernel) lookup(id string) (*Timeline, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	tl, ok := k.timelines[id]
	if !ok {
		return nil, errors.Errorf(errors.ConfigInvalid, "timeline kernel: unknown timeline %q", id)
	}
	return tl, nil
}

// Progress implements spec §4.D's progress(timeline, flag): advance
// tid's horizon to current_time + its inbound min_cross_delay (or
// leave it unbounded if tid has no cross-Timeline inbound mapping),
// then run every local event up to that horizon. Returns whether the
// Timeline's clock actually moved.
func (k *Kernel) Progress(tid string, flag ProgressFlag) (bool, error) {
	tl, err := k.lookup(tid)
	if err != nil {
		return false, err
	}

	if flag != ProgressForce && tl.PendingCount() == 0 && !tl.HasCrossChannel() {
		return false, nil
	}

	before := tl.now
	if minDelay, hasCross := tl.MinCrossDelay(); hasCross {
		tl.horizon = tl.now.Add(minDelay)
		tl.RunTo(tl.horizon)
	} else {
		tl.DrainLocal()
	}
	return tl.now > before, nil
}

// FixTimeline resynchronizes tid's clock to resolvedNow after
// emulation drift (spec §4.G step 4), dropping any now-stale pending
// events rather than firing them out of order.
func (k *Kernel) FixTimeline(tid string, resolvedNow vtime.Time) error {
	tl, err := k.lookup(tid)
	if err != nil {
		return err
	}
	tl.fixClock(resolvedNow)
	return nil
}

// DeliverExternal schedules handler on tid at fireTime from outside
// any Timeline's owning goroutine — the entry point the emulation
// manager's capture threads use to inject a received frame as a
// simulation event (spec §4.G step 6). It always goes through the
// same mutex-guarded mailbox a cross-Timeline channel write uses
// (there is no source Timeline/horizon to check a floor against,
// since the capture thread does not belong to a Timeline itself).
func (k *Kernel) DeliverExternal(tid string, fireTime vtime.Time, handler Handler) error {
	tl, err := k.lookup(tid)
	if err != nil {
		return err
	}
	tl.deliverCrossTimeline(fireTime, priorityChannelDelivery, handler)
	return nil
}

// Run drives every registered Timeline's progress loop concurrently,
// one goroutine per Timeline (spec §5 "one thread per Timeline"),
// until ctx is cancelled. Each iteration calls Progress in Normal
// mode and sleeps briefly when nothing advanced, so an idle Timeline
// doesn't spin. Errors from any Timeline stop the whole group, per
// errgroup.Group's fail-fast semantics.
func (k *Kernel) Run(ctx context.Context) error {
	k.mu.Lock()
	ids := append([]string(nil), k.order...)
	k.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				advanced, err := k.Progress(id, ProgressNormal)
				if err != nil {
					return err
				}
				if !advanced {
					select {
					case <-ctx.Done():
						return nil
					case <-time.After(time.Millisecond):
					}
				}
			}
		})
	}
	return g.Wait()
}
