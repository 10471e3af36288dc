// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package protograph

import (
	"time"

	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/forwarding"
	"github.com/grimmlab/chronoswitch/internal/netaddr"
)

// NetworkInterface is one NIC on a Host (spec §3 "NetworkInterface"):
// an interface id, an IP address, the Link it is attached to, and the
// upstream bitrate/latency/type a tap-backed session would need.
type NetworkInterface struct {
	ID      int
	IP      uint32
	Bitrate uint64
	Latency time.Duration
	Type    string
	Link    *Link
}

// Link connects two or more NetworkInterfaces (spec §3 "Link"): a
// minimum delay, a propagation delay, and the IP prefix the attached
// interfaces share.
type Link struct {
	MinDelay  time.Duration
	Delay     time.Duration
	Bandwidth uint64
	Prefix    netaddr.IPPrefix
	Endpoints []*NetworkInterface
}

// Peers returns every endpoint of l other than from.
func (l *Link) Peers(from *NetworkInterface) []*NetworkInterface {
	out := make([]*NetworkInterface, 0, len(l.Endpoints))
	for _, ep := range l.Endpoints {
		if ep != from {
			out = append(out, ep)
		}
	}
	return out
}

// Host owns a ProtocolGraph, a set of NetworkInterfaces, and an NHI
// address (spec §3 "Host"). The per-host RNG and optional owned Proxy
// spec §3 mentions live on the caller's side (internal/proxy already
// models the Proxy↔container relationship); Host here is purely the
// topology/routing half.
type Host struct {
	NHI        netaddr.NHI
	Graph      *Graph
	Interfaces map[int]*NetworkInterface
	Routes     []*forwarding.RouteInfo
}

// NewHost creates an empty Host addressed by nhi, owning graph (which
// may be nil for a Host with no protocol sessions configured).
func NewHost(nhi netaddr.NHI, graph *Graph) *Host {
	return &Host{NHI: nhi, Graph: graph, Interfaces: make(map[int]*NetworkInterface)}
}

// AddInterface registers nic under its ID, rejecting a duplicate.
func (h *Host) AddInterface(nic *NetworkInterface) error {
	if _, exists := h.Interfaces[nic.ID]; exists {
		return errors.Errorf(errors.ConfigInvalid, "host %s: duplicate interface id %d", h.NHI, nic.ID)
	}
	h.Interfaces[nic.ID] = nic
	return nil
}

// GetNetworkInterface looks up ifaceID, spec §4.C's
// "host.getNetworkInterface(iface_id)".
func (h *Host) GetNetworkInterface(ifaceID int) (*NetworkInterface, error) {
	nic, ok := h.Interfaces[ifaceID]
	if !ok {
		return nil, errors.Errorf(errors.ConfigInvalid, "host %s: no interface %d", h.NHI, ifaceID)
	}
	return nic, nil
}

// PrimaryInterface returns the lowest-numbered interface on h — spec
// §4.C's "primary IP" of a host named by an NHI with no explicit
// interface component.
func (h *Host) PrimaryInterface() (*NetworkInterface, error) {
	if len(h.Interfaces) == 0 {
		return nil, errors.Errorf(errors.ConfigInvalid, "host %s: has no interfaces", h.NHI)
	}
	minID := 0
	first := true
	for id := range h.Interfaces {
		if first || id < minID {
			minID, first = id, false
		}
	}
	return h.Interfaces[minID], nil
}

// Topology indexes every Host in a Net tree by its absolute (net-path
// + host id) NHI, so a route's NHI destination or next-hop spec can be
// resolved to a concrete NetworkInterface no matter which Net the
// referring Host lives under (spec §4.C "Resolving a RouteInfo").
type Topology struct {
	hosts map[string]*Host
}

// NewTopology creates an empty Topology.
func NewTopology() *Topology {
	return &Topology{hosts: make(map[string]*Host)}
}

// AddHost registers h under its host-level NHI (its interface
// component, if any, is ignored for this index), rejecting a
// duplicate.
func (t *Topology) AddHost(h *Host) error {
	key := hostKey(h.NHI)
	if _, exists := t.hosts[key]; exists {
		return errors.Errorf(errors.ConfigInvalid, "topology: duplicate host NHI %s", key)
	}
	t.hosts[key] = h
	return nil
}

// Host looks up the Host named by nhi's net-path + host id.
func (t *Topology) Host(nhi netaddr.NHI) (*Host, bool) {
	h, ok := t.hosts[hostKey(nhi)]
	return h, ok
}

// Hosts returns every registered Host, in no particular order.
func (t *Topology) Hosts() []*Host {
	out := make([]*Host, 0, len(t.hosts))
	for _, h := range t.hosts {
		out = append(out, h)
	}
	return out
}

// Interface resolves an absolute NHI to a concrete NetworkInterface:
// the interface it names, if it has an interface component, or the
// target Host's PrimaryInterface otherwise.
func (t *Topology) Interface(nhi netaddr.NHI) (*NetworkInterface, error) {
	h, ok := t.Host(nhi)
	if !ok {
		return nil, errors.Errorf(errors.ConfigInvalid, "topology: no host for NHI %s", nhi)
	}
	if !nhi.HasIface {
		return h.PrimaryInterface()
	}
	return h.GetNetworkInterface(nhi.Iface)
}

func hostKey(nhi netaddr.NHI) string {
	nhi.HasIface = false
	return nhi.String()
}

// HostRouteContext adapts one Host plus the Topology it is mounted in
// into forwarding.RouteContext (spec §4.C "Resolving a RouteInfo"),
// resolving NHI destinations and next hops against the full Net tree
// rather than just the Host's own interfaces.
type HostRouteContext struct {
	Host     *Host
	Topology *Topology
}

// ResolveDestination implements forwarding.RouteContext.
func (c *HostRouteContext) ResolveDestination(dest string) (netaddr.IPPrefix, error) {
	if p, ok, err := forwarding.ParseDestination(dest); ok || err != nil {
		return p, err
	}
	nhi, err := netaddr.ParseNHI(dest)
	if err != nil {
		return netaddr.IPPrefix{}, errors.Wrapf(err, errors.ConfigInvalid, "route destination %q is neither a CIDR nor an NHI", dest)
	}
	nic, err := c.Topology.Interface(nhi.Absolute(c.Host.NHI))
	if err != nil {
		return netaddr.IPPrefix{}, err
	}
	return netaddr.IPPrefix{Addr: nic.IP, Len: 32}, nil
}

// Interface implements forwarding.RouteContext.
func (c *HostRouteContext) Interface(ifaceID int) (any, error) {
	return c.Host.GetNetworkInterface(ifaceID)
}

// LinkPeerIP implements forwarding.RouteContext.
func (c *HostRouteContext) LinkPeerIP(nic any) (uint32, bool, error) {
	n := nic.(*NetworkInterface)
	if n.Link == nil {
		return 0, false, nil
	}
	peers := n.Link.Peers(n)
	if len(peers) != 1 {
		return 0, false, nil
	}
	return peers[0].IP, true, nil
}

// ResolveNextHop implements forwarding.RouteContext: spec's next-hop
// spec may itself be an NHI (resolved through the Topology) or a
// dotted IP, and either way must name an actual endpoint of nic's
// link.
func (c *HostRouteContext) ResolveNextHop(nic any, spec string) (uint32, error) {
	n := nic.(*NetworkInterface)

	var addr uint32
	if nhi, err := netaddr.ParseNHI(spec); err == nil {
		peer, ierr := c.Topology.Interface(nhi.Absolute(c.Host.NHI))
		if ierr != nil {
			return 0, ierr
		}
		addr = peer.IP
	} else if a, perr := netaddr.ParseIP(spec); perr == nil {
		addr = a
	} else {
		return 0, errors.Errorf(errors.ConfigInvalid, "next hop %q is neither a valid NHI nor an IP address", spec)
	}

	if n.Link == nil {
		return 0, errors.Errorf(errors.ConfigInvalid, "interface %d has no link", n.ID)
	}
	for _, ep := range n.Link.Endpoints {
		if ep.IP == addr {
			return addr, nil
		}
	}
	return 0, errors.Errorf(errors.ConfigInvalid, "next hop %q is not an endpoint of interface %d's link", spec, n.ID)
}
