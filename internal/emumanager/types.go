// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package emumanager implements the Emulation Manager (spec §4.G):
// the per-Timeline capture path that turns frames read off containers'
// tap fds into simulation events, and the advance-arbitration
// algorithm the Timeline kernel calls before committing a progress
// step.
package emumanager

import (
	"github.com/grimmlab/chronoswitch/internal/proxy"
	"github.com/grimmlab/chronoswitch/internal/vtime"
)

// EmuPacket is one frame in flight between two Proxies, as constructed
// by the capture path's step 6 (spec §4.G).
type EmuPacket struct {
	Src *proxy.Proxy
	Dst *proxy.Proxy
	// Frame is the verbatim Ethernet frame read off Src's tap fd,
	// header included — the exact bytes written to Dst's tap (spec
	// §8 scenario S7: a destination tap receives a frame, not a bare
	// L3 packet).
	Frame        []byte
	ReceiveVTime vtime.Time
}

// TapWriter writes a raw Ethernet frame to a Proxy's tap device. The
// real implementation writes to TapFD via a raw socket/file write;
// tests substitute a fake that records what was written.
type TapWriter interface {
	WriteFrame(tapFD int, frame []byte) error
}
