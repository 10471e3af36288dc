// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sockethook is a typed client for the kernel socket-hook
// service (spec §6): registering a pid/container pair, starting and
// stopping hook collection, selecting which container's last-send
// timestamp is readable, and reading that timestamp back.
//
// Two implementations exist: file.Service speaks the literal
// "/proc/<hook_dir>/<hook_file>" text protocol, for environments where
// the eBPF program is preloaded out-of-process; ebpfhook.Service reads
// a pinned eBPF map directly, for environments that load the program
// themselves.
package sockethook

// Record is one hook sample: the dilated wall-clock second/microsecond
// of the last observed send on the selected container, plus the
// 64-bit hash the hook program tags it with.
type Record struct {
	Sec  int64
	Usec int64
	Hash uint64
}

// Service is the socket-hook operation set spec §6 enumerates:
// register, start/stop collection, select, and read-last-send.
type Service interface {
	// Register declares that pid belongs to containerName, the "A,"
	// protocol line.
	Register(pid int, containerName string) error
	// Start begins hook collection ("S,").
	Start() error
	// Stop ends hook collection ("D,").
	Stop() error
	// Select chooses which container's last-send timestamp Read
	// returns ("L,<container_name>,").
	Select(containerName string) error
	// Read returns the last-send record for the selected container,
	// or ok=false if the hook has nothing recorded yet (protocol's
	// "NULL" response).
	Read() (rec Record, ok bool, err error)
	// Close releases any handle the implementation holds open (the
	// proc file descriptor, the pinned map).
	Close() error
}
