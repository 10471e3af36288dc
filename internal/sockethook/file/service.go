// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package file implements sockethook.Service against a real
// "/proc/<hook_dir>/<hook_file>" file, for the case where the
// socket-hook eBPF program is preloaded out-of-process and exposes
// itself purely through that proc file's text protocol (spec §6).
package file

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/sockethook"
)

// Service speaks the literal text protocol:
//   - write "A,<pid> <container_name>," to register
//   - write "S," / "D," to start/stop collection
//   - write "L,<container_name>," to select
//   - read returns "NULL" or "<sec>\n<usec>\n<hash>\n"
type Service struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// New opens path (typically "/proc/<hook_dir>/<hook_file>") for
// read-write access. The file is kept open for the Service's lifetime;
// Close releases it.
func New(path string) (*Service, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/file: open "+path)
	}
	return &Service{path: path, f: f}, nil
}

func (s *Service) write(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.WriteString(line); err != nil {
		return errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/file: write "+s.path)
	}
	return nil
}

func (s *Service) Register(pid int, containerName string) error {
	return s.write(fmt.Sprintf("A,%d %s,", pid, containerName))
}

func (s *Service) Start() error { return s.write("S,") }
func (s *Service) Stop() error  { return s.write("D,") }

func (s *Service) Select(containerName string) error {
	return s.write(fmt.Sprintf("L,%s,", containerName))
}

// Read rewinds to the start of the file, issues a single read, and
// parses either "NULL" or the three-line sec/usec/hash record. The
// proc file is a single-record mailbox: every read reflects the
// hook's current state for whatever container Select last chose, so
// callers don't re-issue Select before every Read.
func (s *Service) Read() (sockethook.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.f.Seek(0, 0); err != nil {
		return sockethook.Record{}, false, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/file: seek "+s.path)
	}

	scanner := bufio.NewScanner(s.f)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return sockethook.Record{}, false, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/file: read "+s.path)
	}

	if len(lines) == 0 || lines[0] == "NULL" {
		return sockethook.Record{}, false, nil
	}
	if len(lines) != 3 {
		return sockethook.Record{}, false, errors.Errorf(errors.KernelServiceUnavailable, "sockethook/file: malformed record, %d lines", len(lines))
	}

	sec, err := strconv.ParseInt(lines[0], 10, 64)
	if err != nil {
		return sockethook.Record{}, false, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/file: parse sec")
	}
	usec, err := strconv.ParseInt(lines[1], 10, 64)
	if err != nil {
		return sockethook.Record{}, false, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/file: parse usec")
	}
	hash, err := strconv.ParseUint(lines[2], 10, 64)
	if err != nil {
		return sockethook.Record{}, false, errors.Wrap(err, errors.KernelServiceUnavailable, "sockethook/file: parse hash")
	}

	return sockethook.Record{Sec: sec, Usec: usec, Hash: hash}, true, nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
