// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ebpfhook implements sockethook.Service directly against the
// socket-hook program's pinned eBPF maps, for the case where this
// process itself loads (or shares a loaded instance of) that program,
// rather than talking to it through the proc-file text protocol.
package ebpfhook

import (
	"hash/fnv"
	"path/filepath"
	"sync"

	"github.com/cilium/ebpf"

	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/sockethook"
)

const (
	containersMapName = "hook_containers" // uint64(name hash) -> uint32(pid)
	controlMapName    = "hook_control"    // single entry: controlState
	recordsMapName    = "hook_records"    // uint32(pid) -> recordValue
	controlIndex      = uint32(0)
)

// controlState mirrors the eBPF program's control struct: whether
// collection is currently running, and which container's records the
// next Read should resolve.
type controlState struct {
	Collecting     uint32
	SelectedHash   uint64
}

// recordValue mirrors the eBPF program's per-pid record struct.
type recordValue struct {
	Sec  int64
	Usec int64
	Hash uint64
}

// Service reads/writes the socket-hook program's three pinned maps
// directly. Open's pinDir is the directory bpftool/the loader pinned them
// under (conventionally under /sys/fs/bpf).
type Service struct {
	mu         sync.Mutex
	containers *ebpf.Map
	control    *ebpf.Map
	records    *ebpf.Map
}

// Open loads the three pinned maps the socket-hook program exposes
// under pinDir. The program itself must already be loaded and its
// maps pinned (by a loader.Loader elsewhere in this process, or an
// out-of-process bpftool invocation); Open never loads the program.
func Open(pinDir string) (*Service, error) {
	containers, err := ebpf.LoadPinnedMap(filepath.Join(pinDir, containersMapName), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: load "+containersMapName)
	}
	control, err := ebpf.LoadPinnedMap(filepath.Join(pinDir, controlMapName), nil)
	if err != nil {
		containers.Close()
		return nil, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: load "+controlMapName)
	}
	records, err := ebpf.LoadPinnedMap(filepath.Join(pinDir, recordsMapName), nil)
	if err != nil {
		containers.Close()
		control.Close()
		return nil, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: load "+recordsMapName)
	}
	return &Service{containers: containers, control: control, records: records}, nil
}

// containerHash is the same 64-bit FNV-1a hash the socket-hook
// program tags records with (spec §6's <hash> field), used here to
// key the containers map by name instead of by the kernel's own
// interned string table.
func containerHash(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

func (s *Service) Register(pid int, containerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := containerHash(containerName)
	if err := s.containers.Update(key, uint32(pid), ebpf.UpdateAny); err != nil {
		return errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: register")
	}
	return nil
}

func (s *Service) setCollecting(collecting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur controlState
	if err := s.control.Lookup(controlIndex, &cur); err != nil {
		return errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: lookup control")
	}
	if collecting {
		cur.Collecting = 1
	} else {
		cur.Collecting = 0
	}
	if err := s.control.Update(controlIndex, &cur, ebpf.UpdateAny); err != nil {
		return errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: update control")
	}
	return nil
}

func (s *Service) Start() error { return s.setCollecting(true) }
func (s *Service) Stop() error  { return s.setCollecting(false) }

func (s *Service) Select(containerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur controlState
	if err := s.control.Lookup(controlIndex, &cur); err != nil {
		return errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: lookup control")
	}
	cur.SelectedHash = containerHash(containerName)
	if err := s.control.Update(controlIndex, &cur, ebpf.UpdateAny); err != nil {
		return errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: select")
	}
	return nil
}

// Read resolves the currently-selected container to its registered
// pid, then looks up that pid's record. A pid with no record yet
// (ENOENT) is the map-backed equivalent of the proc protocol's "NULL".
func (s *Service) Read() (sockethook.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ctl controlState
	if err := s.control.Lookup(controlIndex, &ctl); err != nil {
		return sockethook.Record{}, false, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/ebpfhook: lookup control")
	}

	var pid uint32
	if err := s.containers.Lookup(ctl.SelectedHash, &pid); err != nil {
		return sockethook.Record{}, false, nil
	}

	var rec recordValue
	if err := s.records.Lookup(pid, &rec); err != nil {
		return sockethook.Record{}, false, nil
	}
	return sockethook.Record{Sec: rec.Sec, Usec: rec.Usec, Hash: rec.Hash}, true, nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, m := range []*ebpf.Map{s.containers, s.control, s.records} {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
