// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package emumanager

import (
	"context"

	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/proxy"
	"github.com/grimmlab/chronoswitch/internal/vtime"
)

// RunCaptureLoop's poll/eventfd implementation is Linux-only (spec §6
// "Tap device" is a Linux kernel facility); elsewhere it reports
// KernelServiceUnavailable immediately rather than spinning, the same
// degrade-don't-fail posture the cmd stubs (proxy_stub.go,
// netns_stub.go) take for their own Linux-only facilities.
func (m *Manager) RunCaptureLoop(ctx context.Context, tid string, proxies []*proxy.Proxy, transferDelay func(src *proxy.Proxy) vtime.Duration, writer TapWriter) error {
	return errors.Errorf(errors.KernelServiceUnavailable, "emumanager: capture loop for timeline %q requires linux", tid)
}

// RealTapWriter is the tap-fd writer capture_linux.go's RunCaptureLoop
// uses; kept defined here too, under the complementary build tag, so
// callers can reference emumanager.RealTapWriter on any platform even
// though it can never actually be exercised off Linux.
type RealTapWriter struct{}

func (RealTapWriter) WriteFrame(tapFD int, frame []byte) error {
	return errors.Errorf(errors.KernelServiceUnavailable, "emumanager: tap device write requires linux")
}
