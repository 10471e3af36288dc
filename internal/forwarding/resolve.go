// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package forwarding

import (
	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/netaddr"
)

// RouteSpec is a DML route attribute's decoded shape, before
// resolution against the host's topology (spec §4.C "Resolving a
// RouteInfo").
type RouteSpec struct {
	Dest     string // "default" | "a.b.c.d/n" | an NHI string
	IfaceID  int
	NextHop  string // empty if unspecified
	Cost     uint32
	Protocol Protocol
}

// RouteContext is the slice of host/topology lookups ResolveRoute
// needs. It is defined here, not imported from the protocol-graph
// package, so forwarding has no dependency on that package's types —
// component E's Host/Link implementation satisfies it.
type RouteContext interface {
	// ResolveDestination turns dest ("default", a dotted-CIDR, or an
	// NHI string) into an IPPrefix, resolving an NHI to the primary IP
	// of the named interface with a /32.
	ResolveDestination(dest string) (netaddr.IPPrefix, error)
	// Interface returns the NIC handle for ifaceID on the host the
	// route is being installed on.
	Interface(ifaceID int) (nic any, err error)
	// LinkPeerIP returns the sole peer's IP when nic's link has exactly
	// two endpoints; ok is false otherwise.
	LinkPeerIP(nic any) (peerIP uint32, ok bool, err error)
	// ResolveNextHop turns an NHI or dotted IP into an address,
	// requiring it to be an endpoint of nic's link.
	ResolveNextHop(nic any, spec string) (uint32, error)
}

// ResolveRoute implements spec §4.C's destination/NIC/next-hop
// resolution algorithm.
func ResolveRoute(ctx RouteContext, spec RouteSpec) (*RouteInfo, error) {
	dest, err := ctx.ResolveDestination(spec.Dest)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ConfigInvalid, "resolve route destination %q", spec.Dest)
	}

	nic, err := ctx.Interface(spec.IfaceID)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ConfigInvalid, "resolve outgoing interface %d", spec.IfaceID)
	}

	var nextHop uint32
	if spec.NextHop == "" {
		peerIP, ok, err := ctx.LinkPeerIP(nic)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ConfigInvalid, "resolve implicit next hop for interface %d", spec.IfaceID)
		}
		if !ok {
			return nil, errors.Errorf(errors.ConfigInvalid,
				"route on interface %d has no next hop and its link does not have exactly two endpoints", spec.IfaceID)
		}
		nextHop = peerIP
	} else {
		nextHop, err = ctx.ResolveNextHop(nic, spec.NextHop)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ConfigInvalid, "resolve next hop %q", spec.NextHop)
		}
	}

	return &RouteInfo{
		Destination: dest,
		NextHop:     nextHop,
		NIC:         nic,
		Cost:        spec.Cost,
		Protocol:    spec.Protocol,
	}, nil
}

// DefaultPrefixText is the literal DML spells the default route with.
const DefaultPrefixText = "default"

// ParseDestination is the stdlib half of ResolveDestination: it
// handles the "default" and dotted-CIDR cases, leaving NHI resolution
// (which needs the host's topology) to the caller.
func ParseDestination(dest string) (netaddr.IPPrefix, bool, error) {
	if dest == DefaultPrefixText {
		return netaddr.Default, true, nil
	}
	p, err := netaddr.TxtToIP(dest)
	if err == nil {
		return p, true, nil
	}
	return netaddr.IPPrefix{}, false, nil
}
