// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package proxy

import (
	"context"
	"os/exec"

	"github.com/grimmlab/chronoswitch/internal/dilation"
	"github.com/vishvananda/netlink"
)

// ScriptRunner shells out to the fixed create/destroy scripts spec
// §4.F's Launch/Teardown steps call for. Kept as an interface, in the
// style of network.Manager's Netlinker seam, so Launch/Teardown are
// unit-testable without a real container runtime.
type ScriptRunner interface {
	Run(ctx context.Context, script string, args ...string) error
}

// ExecScriptRunner runs scripts via os/exec.
type ExecScriptRunner struct{}

func (ExecScriptRunner) Run(ctx context.Context, script string, args ...string) error {
	return exec.CommandContext(ctx, script, args...).Run()
}

// LinkManager is the subset of vishvananda/netlink operations Launch
// needs to create the tap and bridge devices, and Teardown needs to
// remove them — mirrors internal/network's Netlinker mocking seam.
type LinkManager interface {
	EnsureBridge(name string) error
	EnsureTap(name, bridge string) (fd int, err error)
	DeleteLink(name string) error
}

// NetlinkLinkManager implements LinkManager against the real kernel
// via vishvananda/netlink.
type NetlinkLinkManager struct{}

func (NetlinkLinkManager) EnsureBridge(name string) error {
	if _, err := netlink.LinkByName(name); err == nil {
		return nil
	}
	br := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := netlink.LinkAdd(br); err != nil {
		return err
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		return err
	}
	return netlink.LinkSetUp(link)
}

// EnsureTap creates a tap device enslaved to bridge. The returned fd
// is the clone-device fd spec §6's "Tap device" section describes;
// opening /dev/net/tun and driving TUNSETIFF is the fixed external
// ioctl protocol treated as opaque here, so this binds to netlink only
// for device creation/enslavement, not frame I/O.
func (NetlinkLinkManager) EnsureTap(name, bridge string) (int, error) {
	tap := &netlink.Tuntap{
		LinkAttrs: netlink.LinkAttrs{Name: name, MasterIndex: 0},
		Mode:      netlink.TUNTAP_MODE_TAP,
	}
	if err := netlink.LinkAdd(tap); err != nil {
		return -1, err
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		return -1, err
	}
	if br, err := netlink.LinkByName(bridge); err == nil {
		if err := netlink.LinkSetMaster(link, br); err != nil {
			return -1, err
		}
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return -1, err
	}
	if len(tap.Fds) == 0 {
		return -1, nil
	}
	return int(tap.Fds[0].Fd()), nil
}

func (NetlinkLinkManager) DeleteLink(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil // already gone
	}
	return netlink.LinkDel(link)
}

// Deps bundles a Proxy's external collaborators, injected so Launch/
// Attach/Freeze/Teardown are unit-testable.
type Deps struct {
	Links    LinkManager
	Scripts  ScriptRunner
	Dilation dilation.Service
}
