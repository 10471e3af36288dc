// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

// Package linux implements dilation.Service against the real
// time-dilation kernel module. The module's own wire format (one text
// command line per operation, written to its control device) is fixed
// and opaque per spec §1/§6 — this binds
// to it rather than reimplementing it, the same boundary
// kernel.LinuxKernel draws around nftables and /proc/net/nf_conntrack.
package linux

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/grimmlab/chronoswitch/internal/dilation"
	"github.com/grimmlab/chronoswitch/internal/errors"
)

// Service binds dilation.Service to the kernel module's control
// device at devicePath (conventionally /dev/tdf_ctl). Freeze/unfreeze
// is always realized with SIGSTOP/SIGCONT, whether or not the device is
// present; dilation factor, intervals, progress and dilated-clock
// reads go through the device.
type Service struct {
	mu         sync.RWMutex
	devicePath string
	device     *os.File
	registered map[int]string // pid -> timeline id
}

// NewService opens devicePath if present; a missing device degrades
// every call that writes to the device to KernelServiceUnavailable
// (SynchronizeAndFreeze and StopExperiment still send their signals),
// which callers handle
// per spec §7's documented fallback to wall-clock timestamps.
func NewService(devicePath string) *Service {
	s := &Service{devicePath: devicePath, registered: make(map[int]string)}
	if f, err := os.OpenFile(devicePath, os.O_RDWR, 0); err == nil {
		s.device = f
	}
	return s
}

func (s *Service) unavailable(op string) error {
	return errors.Errorf(errors.KernelServiceUnavailable, "dilation/linux: %s: device %q not available", op, s.devicePath)
}

func (s *Service) DilateAll(pid int, tdf float64) error {
	if s.device == nil {
		return s.unavailable("dilate_all")
	}
	if tdf == 0 {
		tdf = 1
	}
	_, err := fmt.Fprintf(s.device, "DILATE %d %f\n", pid, tdf)
	return err
}

func (s *Service) AddToExperiment(pid int, timelineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[pid] = timelineID
	if s.device == nil {
		return s.unavailable("add_to_experiment")
	}
	_, err := fmt.Fprintf(s.device, "ADD %d %s\n", pid, timelineID)
	return err
}

// SynchronizeAndFreeze sends SIGSTOP to every registered process at
// as close to the same instant as the Go scheduler allows, and
// records that instant as the snapshot spec §4.F requires every Proxy
// agree on.
func (s *Service) SynchronizeAndFreeze() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	for pid := range s.registered {
		if err := syscall.Kill(pid, syscall.SIGSTOP); err != nil {
			return now, fmt.Errorf("dilation/linux: freeze pid %d: %w", pid, err)
		}
	}
	return now, nil
}

func (s *Service) SetInterval(pid int, delta time.Duration, timelineID string) error {
	if s.device == nil {
		return s.unavailable("set_interval")
	}
	_, err := fmt.Fprintf(s.device, "INTERVAL %d %d %s\n", pid, delta.Microseconds(), timelineID)
	return err
}

func (s *Service) GettimePID(pid int) (time.Time, error) {
	if s.device == nil {
		return time.Time{}, s.unavailable("gettime_pid")
	}
	var sec, usec int64
	if _, err := fmt.Fprintf(s.device, "GETTIME %d\n", pid); err != nil {
		return time.Time{}, err
	}
	if _, err := fmt.Fscanf(s.device, "%d %d", &sec, &usec); err != nil {
		return time.Time{}, fmt.Errorf("dilation/linux: gettime_pid %d: %w", pid, err)
	}
	return time.Unix(sec, usec*1000), nil
}

func (s *Service) Progress(timelineID string, flag dilation.Flag) error {
	if s.device == nil {
		return s.unavailable("progress")
	}
	f := "NOFORCE"
	if flag == dilation.Force {
		f = "FORCE"
	}
	_, err := fmt.Fprintf(s.device, "PROGRESS %s %s\n", timelineID, f)
	return err
}

func (s *Service) FixTimeline(timelineID string) error {
	if s.device == nil {
		return s.unavailable("fix_timeline")
	}
	_, err := fmt.Fprintf(s.device, "FIX %s\n", timelineID)
	return err
}

func (s *Service) Reset(timelineID string) error {
	if s.device == nil {
		return s.unavailable("reset")
	}
	_, err := fmt.Fprintf(s.device, "RESET %s\n", timelineID)
	return err
}

// StopExperiment unfreezes every registered process (SIGCONT) and
// clears the registration table.
func (s *Service) StopExperiment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for pid := range s.registered {
		if err := syscall.Kill(pid, syscall.SIGCONT); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("dilation/linux: unfreeze pid %d: %w", pid, err)
		}
	}
	s.registered = make(map[int]string)
	if s.device != nil {
		_, _ = fmt.Fprintf(s.device, "STOP\n")
	}
	return firstErr
}
