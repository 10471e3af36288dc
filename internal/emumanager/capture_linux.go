// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package emumanager

import (
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/grimmlab/chronoswitch/internal/proxy"
	"github.com/grimmlab/chronoswitch/internal/vtime"
)

// RealTapWriter writes frames to a tap fd with a plain write(2).
type RealTapWriter struct{}

func (RealTapWriter) WriteFrame(tapFD int, frame []byte) error {
	_, err := unix.Write(tapFD, frame)
	return err
}

// RunCaptureLoop is the per-Timeline capture thread (spec §4.G): it
// polls every proxy's tap fd plus an eventfd used to interrupt poll()
// on ctx cancellation, and for each frame that arrives classifies and
// hands it to HandleFrame. The eventfd-wakeup idiom is grounded
// directly on the teacher pack's uping listener's poll loop.
func (m *Manager) RunCaptureLoop(ctx context.Context, tid string, proxies []*proxy.Proxy, transferDelay func(src *proxy.Proxy) vtime.Duration, writer TapWriter) error {
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("emumanager: eventfd: %w", err)
	}
	defer unix.Close(efd)
	go func() {
		<-ctx.Done()
		var one [8]byte
		binary.LittleEndian.PutUint64(one[:], 1)
		_, _ = unix.Write(efd, one[:])
	}()

	buf := make([]byte, 65535)
	pollTimeoutMillis := m.CapturePollTimeoutMillis()
	for {
		pfds := make([]unix.PollFd, 0, len(proxies)+1)
		pfds = append(pfds, unix.PollFd{Fd: int32(efd), Events: unix.POLLIN})
		for _, p := range proxies {
			pfds = append(pfds, unix.PollFd{Fd: int32(p.TapFD), Events: unix.POLLIN})
		}

		nready, err := unix.Poll(pfds, pollTimeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("emumanager: poll: %w", err)
		}
		if pfds[0].Revents&unix.POLLIN != 0 {
			return nil
		}
		if nready == 0 {
			continue
		}

		for i, p := range proxies {
			pfd := pfds[i+1]
			if pfd.Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) == 0 {
				continue
			}
			n, err := unix.Read(int(pfd.Fd), buf)
			if err != nil || n <= 0 {
				continue
			}
			elapsed, err := p.ElapsedVirtualTime(m.deps)
			if err != nil {
				continue
			}
			_ = m.HandleFrame(p, buf[:n], vtime.Time(elapsed), m.HookVTime(p), transferDelay(p), writer)
		}
	}
}
