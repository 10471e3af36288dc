// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dilation defines the kernel time-dilation service binding
// (spec §6): the fixed operation set every Proxy and Timeline kernel
// call drives, independent of whether it is backed by an in-memory
// simulator or the real kernel module.
package dilation

import "time"

// Flag selects progress's barrier behavior at the dilation-service
// boundary, mirroring timeline.ProgressFlag one layer down.
type Flag int

const (
	NoForce Flag = iota
	Force
)

// Service is the opaque kernel time-dilation service (spec §6). Every
// operation name and signature matches the spec table exactly so a
// caller never has to know which Service implementation it holds.
type Service interface {
	// DilateAll applies dilation factor tdf (1.0 = real time; 0 is
	// treated as 1) recursively to pid's process tree.
	DilateAll(pid int, tdf float64) error
	// AddToExperiment declares that pid participates in the experiment
	// on the given timeline.
	AddToExperiment(pid int, timelineID string) error
	// SynchronizeAndFreeze freezes every registered process at the
	// same wall-clock instant and returns that instant.
	SynchronizeAndFreeze() (time.Time, error)
	// SetInterval unfreezes pid, runs it for delta (scaled by its
	// tdf), then refreezes it.
	SetInterval(pid int, delta time.Duration, timelineID string) error
	// GettimePID reads pid's dilated clock.
	GettimePID(pid int) (time.Time, error)
	// Progress commits queued SetIntervals for timelineID.
	Progress(timelineID string, flag Flag) error
	// FixTimeline recovers a drifted timeline.
	FixTimeline(timelineID string) error
	// Reset clears per-step bookkeeping for timelineID.
	Reset(timelineID string) error
	// StopExperiment unfreezes every registered process and detaches
	// the service from all of them.
	StopExperiment() error
}
