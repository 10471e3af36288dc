// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package forwarding implements the Trie + route cache forwarding
// table (spec §4.C): three pluggable Trie variants, four pluggable
// Cache variants, and the RouteInfo resolution algorithm that turns a
// DML route spec into a concrete route.
package forwarding

import (
	"fmt"
	"strings"

	"github.com/grimmlab/chronoswitch/internal/netaddr"
)

// Protocol names the routing protocol that installed a route.
type Protocol int

const (
	Static Protocol = iota
	IGP
	EGP
	BGP
	OSPF
	PAO
)

func (p Protocol) String() string {
	switch p {
	case Static:
		return "static"
	case IGP:
		return "igp"
	case EGP:
		return "egp"
	case BGP:
		return "bgp"
	case OSPF:
		return "ospf"
	case PAO:
		return "pao"
	default:
		return "unknown"
	}
}

// ParseProtocol parses a DML route attribute's protocol name
// (case-insensitive) into a Protocol, defaulting to Static when s is
// empty (spec §6 route[..., protocol?]).
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "static":
		return Static, nil
	case "igp":
		return IGP, nil
	case "egp":
		return EGP, nil
	case "bgp":
		return BGP, nil
	case "ospf":
		return OSPF, nil
	case "pao":
		return PAO, nil
	default:
		return Static, fmt.Errorf("forwarding: unknown route protocol %q", s)
	}
}

// RouteInfo is a single forwarding entry (spec §3). NIC is an opaque
// handle to the owning NetworkInterface: forwarding has no need to
// know that type's shape, so it is left as `any` rather than forcing
// an import-cycle dependency on the protocol-graph package.
type RouteInfo struct {
	Destination netaddr.IPPrefix
	NextHop     uint32
	NIC         any
	Cost        uint32
	Protocol    Protocol
}

// Equivalent reports whether r and o are the same route ignoring cost
// (spec §3 "Two routes are equivalent iff all fields except cost are
// equal"). Used by the array-backed Trie variant to coalesce storage.
func (r *RouteInfo) Equivalent(o *RouteInfo) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Destination.Equal(o.Destination) &&
		r.NextHop == o.NextHop &&
		r.NIC == o.NIC &&
		r.Protocol == o.Protocol
}

func (r *RouteInfo) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s via %s cost=%d proto=%s", r.Destination, netaddr.FormatIP(r.NextHop), r.Cost, r.Protocol)
}
