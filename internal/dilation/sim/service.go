// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sim implements dilation.Service entirely in memory, for
// unit tests and for chronoswitchd's "sim" dilation backend (the
// default when an experiment names no backend).
package sim

import (
	"sync"
	"time"

	"github.com/grimmlab/chronoswitch/internal/dilation"
	"github.com/grimmlab/chronoswitch/internal/errors"
)

// procState tracks one registered process the way kernel.SimKernel
// tracks one conntrack Flow: a plain struct behind the Service's single
// mutex, no per-entry locking.
type procState struct {
	tdf        float64
	timelineID string
	frozen     bool
	dilated    time.Time // this process's own dilated clock
}

// Service is an in-memory dilation.Service. Real wall-clock time never
// enters it except as the SynchronizeAndFreeze snapshot instant; every
// other call advances procState.dilated directly, which is what makes
// it deterministic enough to drive from unit tests.
type Service struct {
	mu    sync.Mutex
	procs map[int]*procState
	// pending holds queued SetInterval deltas per timeline, applied on
	// the next Progress(timelineID, ...) call.
	pending map[string][]pendingInterval
}

type pendingInterval struct {
	pid   int
	delta time.Duration
}

// NewService creates an empty in-memory dilation Service.
func NewService() *Service {
	return &Service{
		procs:   make(map[int]*procState),
		pending: make(map[string][]pendingInterval),
	}
}

func (s *Service) DilateAll(pid int, tdf float64) error {
	if tdf == 0 {
		tdf = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.proc(pid)
	p.tdf = tdf
	return nil
}

func (s *Service) proc(pid int) *procState {
	p, ok := s.procs[pid]
	if !ok {
		p = &procState{tdf: 1}
		s.procs[pid] = p
	}
	return p
}

func (s *Service) AddToExperiment(pid int, timelineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc(pid).timelineID = timelineID
	return nil
}

// SynchronizeAndFreeze freezes every registered process and records
// the same wall-clock instant as each one's dilated-clock origin, so
// the "all Proxies must record the same start instant" invariant
// (spec §4.F) holds by construction.
func (s *Service) SynchronizeAndFreeze() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, p := range s.procs {
		p.frozen = true
		p.dilated = now
	}
	return now, nil
}

// SetInterval queues delta for pid; it is applied when Progress is
// next called for timelineID, mirroring spec §6's "progress commits
// queued set_intervals."
func (s *Service) SetInterval(pid int, delta time.Duration, timelineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.procs[pid]; !ok {
		return errors.Errorf(errors.KernelServiceUnavailable, "dilation: set_interval on unregistered pid %d", pid)
	}
	s.pending[timelineID] = append(s.pending[timelineID], pendingInterval{pid: pid, delta: delta})
	return nil
}

func (s *Service) GettimePID(pid int) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return time.Time{}, errors.Errorf(errors.KernelServiceUnavailable, "dilation: gettime_pid on unregistered pid %d", pid)
	}
	return p.dilated, nil
}

// Progress applies every queued SetInterval for timelineID: each
// interval's delta is scaled by that process's tdf and added to its
// dilated clock. NoForce is a no-op when nothing is queued; Force
// always clears the queue (even if empty) so callers can use it as an
// unconditional barrier.
func (s *Service) Progress(timelineID string, flag dilation.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	queued := s.pending[timelineID]
	if flag == dilation.NoForce && len(queued) == 0 {
		return nil
	}
	for _, iv := range queued {
		p := s.proc(iv.pid)
		p.dilated = p.dilated.Add(time.Duration(float64(iv.delta) * p.tdf))
	}
	delete(s.pending, timelineID)
	return nil
}

// FixTimeline drops any bookkeeping for timelineID that Reset would
// also drop; in the in-memory model there is nothing further to
// recompute, so this is an alias for Reset.
func (s *Service) FixTimeline(timelineID string) error {
	return s.Reset(timelineID)
}

func (s *Service) Reset(timelineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, timelineID)
	return nil
}

func (s *Service) StopExperiment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.procs {
		p.frozen = false
	}
	s.procs = make(map[int]*procState)
	s.pending = make(map[string][]pendingInterval)
	return nil
}
