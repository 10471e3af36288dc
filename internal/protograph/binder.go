// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package protograph

import (
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/grimmlab/chronoswitch/internal/dml"
	"github.com/grimmlab/chronoswitch/internal/errors"
	"github.com/grimmlab/chronoswitch/internal/forwarding"
	"github.com/grimmlab/chronoswitch/internal/netaddr"
)

// BindTopology reads every top-level `Net [ ... ]` block out of tree
// and binds it into a Topology: the Host/NetworkInterface/Link
// objects spec §3 describes, plus every nhi_route resolved into a
// concrete forwarding.RouteInfo (spec §4.C "Resolving a RouteInfo").
// This is the typed half of the §6 "Configuration attributes consumed
// by the core" list (Net/Host/link/graph/route/interface) — the
// untyped dml.Tree only gets you interned strings; BindTopology is
// what turns those strings into the structs forwarding.ResolveRoute
// and a real Host actually operate on.
//
// Binding happens in two passes because a route's next hop or
// destination may name a Host defined later in the same document (or
// in a sibling Net): pass one builds every Host/NetworkInterface/Link
// and registers them with the Topology; pass two resolves every
// nhi_route now that the whole Topology is addressable.
func BindTopology(tree *dml.Tree) (*Topology, error) {
	topo := NewTopology()

	type pendingRoute struct {
		host *Host
		spec forwarding.RouteSpec
	}
	var pending []pendingRoute

	var bindNet func(netIdx dml.Index, netPath []int) error
	bindNet = func(netIdx dml.Index, netPath []int) error {
		path := netPath
		if idText := attr(tree, netIdx, "id"); idText != "" {
			id, err := bindInt(tree.Node(netIdx).Location, idText)
			if err != nil {
				return err
			}
			path = append(append([]int{}, netPath...), id)
		}

		for _, hostIdx := range childrenKeyed(tree, netIdx, "Host") {
			host, routeSpecs, err := bindHost(tree, hostIdx, path)
			if err != nil {
				return err
			}
			if err := topo.AddHost(host); err != nil {
				return err
			}
			for _, rs := range routeSpecs {
				pending = append(pending, pendingRoute{host: host, spec: rs})
			}
		}
		for _, childNetIdx := range childrenKeyed(tree, netIdx, "Net") {
			if err := bindNet(childNetIdx, path); err != nil {
				return err
			}
		}
		for _, linkIdx := range childrenKeyed(tree, netIdx, "link") {
			if err := bindLink(tree, linkIdx, topo); err != nil {
				return err
			}
		}
		return nil
	}

	for _, netIdx := range tree.Find("Net") {
		if err := bindNet(netIdx, nil); err != nil {
			return nil, err
		}
	}

	for _, pr := range pending {
		ctx := &HostRouteContext{Host: pr.host, Topology: topo}
		route, err := forwarding.ResolveRoute(ctx, pr.spec)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ConfigInvalid, "host %s: resolve route", pr.host.NHI)
		}
		pr.host.Routes = append(pr.host.Routes, route)
	}

	return topo, nil
}

func bindHost(tree *dml.Tree, hostIdx dml.Index, netPath []int) (*Host, []forwarding.RouteSpec, error) {
	loc := tree.Node(hostIdx).Location
	idText := attr(tree, hostIdx, "id")
	if idText == "" {
		return nil, nil, errors.Errorf(errors.ConfigInvalid, "%s: Host block missing \"id\"", hclLoc(loc))
	}
	id, err := bindInt(loc, idText)
	if err != nil {
		return nil, nil, err
	}

	var graph *Graph
	if graphIdx, ok := firstChildKeyed(tree, hostIdx, "graph"); ok {
		graph = NewGraph(attr(tree, graphIdx, "description"))
	}

	host := NewHost(netaddr.NHI{Nets: append([]int{}, netPath...), Host: id, HasHost: true}, graph)

	for _, ifaceIdx := range childrenKeyed(tree, hostIdx, "interface") {
		nic, err := bindInterface(tree, ifaceIdx)
		if err != nil {
			return nil, nil, err
		}
		if err := host.AddInterface(nic); err != nil {
			return nil, nil, err
		}
	}

	var routeSpecs []forwarding.RouteSpec
	for _, routeIdx := range childrenKeyed(tree, hostIdx, "nhi_route") {
		rs, err := bindRouteSpec(tree, routeIdx)
		if err != nil {
			return nil, nil, err
		}
		routeSpecs = append(routeSpecs, rs)
	}

	return host, routeSpecs, nil
}

func bindInterface(tree *dml.Tree, ifaceIdx dml.Index) (*NetworkInterface, error) {
	loc := tree.Node(ifaceIdx).Location
	idText := attr(tree, ifaceIdx, "id")
	if idText == "" {
		return nil, errors.Errorf(errors.ConfigInvalid, "%s: interface block missing \"id\"", hclLoc(loc))
	}
	id, err := bindInt(loc, idText)
	if err != nil {
		return nil, err
	}

	nic := &NetworkInterface{ID: id, Type: attr(tree, ifaceIdx, "type")}

	if ipText := attr(tree, ifaceIdx, "ip"); ipText != "" {
		addr, err := netaddr.ParseIP(ipText)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ConfigInvalid, "%s: interface %d: invalid ip %q", hclLoc(loc), id, ipText)
		}
		nic.IP = addr
	}
	if bitrateText := attr(tree, ifaceIdx, "bitrate"); bitrateText != "" {
		v, err := bindInt(loc, bitrateText)
		if err != nil {
			return nil, err
		}
		nic.Bitrate = uint64(v)
	}
	if latencyText := attr(tree, ifaceIdx, "latency"); latencyText != "" {
		d, err := bindDuration(loc, latencyText)
		if err != nil {
			return nil, err
		}
		nic.Latency = d
	}
	return nic, nil
}

func bindLink(tree *dml.Tree, linkIdx dml.Index, topo *Topology) error {
	loc := tree.Node(linkIdx).Location
	link := &Link{}

	if delayText := attr(tree, linkIdx, "delay"); delayText != "" {
		d, err := bindDuration(loc, delayText)
		if err != nil {
			return err
		}
		link.Delay = d
	}
	if bwText := attr(tree, linkIdx, "bandwidth"); bwText != "" {
		v, err := bindInt(loc, bwText)
		if err != nil {
			return err
		}
		link.Bandwidth = uint64(v)
	}

	for _, attachText := range attrs(tree, linkIdx, "attach") {
		nhi, err := netaddr.ParseNHI(attachText)
		if err != nil {
			return errors.Wrapf(err, errors.ConfigInvalid, "%s: link attach %q", hclLoc(loc), attachText)
		}
		nic, err := topo.Interface(nhi)
		if err != nil {
			return errors.Wrapf(err, errors.ConfigInvalid, "%s: link attach %q", hclLoc(loc), attachText)
		}
		nic.Link = link
		link.Endpoints = append(link.Endpoints, nic)
	}
	return nil
}

func bindRouteSpec(tree *dml.Tree, routeIdx dml.Index) (forwarding.RouteSpec, error) {
	loc := tree.Node(routeIdx).Location
	dest := attr(tree, routeIdx, "dest")
	if dest == "" {
		dest = attr(tree, routeIdx, "dest_ip")
	}
	if dest == "" {
		return forwarding.RouteSpec{}, errors.Errorf(errors.ConfigInvalid, "%s: route missing \"dest\"/\"dest_ip\"", hclLoc(loc))
	}

	ifaceText := attr(tree, routeIdx, "interface")
	if ifaceText == "" {
		return forwarding.RouteSpec{}, errors.Errorf(errors.ConfigInvalid, "%s: route missing \"interface\"", hclLoc(loc))
	}
	ifaceID, err := bindInt(loc, ifaceText)
	if err != nil {
		return forwarding.RouteSpec{}, err
	}

	var cost uint32
	if costText := attr(tree, routeIdx, "cost"); costText != "" {
		v, err := bindInt(loc, costText)
		if err != nil {
			return forwarding.RouteSpec{}, err
		}
		cost = uint32(v)
	}

	proto, err := forwarding.ParseProtocol(attr(tree, routeIdx, "protocol"))
	if err != nil {
		return forwarding.RouteSpec{}, errors.Wrapf(err, errors.ConfigInvalid, "%s: route protocol", hclLoc(loc))
	}

	return forwarding.RouteSpec{
		Dest:     dest,
		IfaceID:  ifaceID,
		NextHop:  attr(tree, routeIdx, "next_hop"),
		Cost:     cost,
		Protocol: proto,
	}, nil
}

// bindInt converts raw into an int through a cty.Number round-trip —
// the typed scalar-conversion layer the DOMAIN STACK commits hcl/cty
// to, mirroring the teacher's own Go-value↔cty.Value conversion in
// internal/config/hcl.go's toCtyValue, run in the opposite direction
// (DML text in, typed Go value out, instead of typed Go value in,
// HCL text out).
func bindInt(loc dml.Location, raw string) (int, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ConfigInvalid, "%s: %q is not an integer", hclLoc(loc), raw)
	}
	var out int
	if err := gocty.FromCtyValue(cty.NumberIntVal(n), &out); err != nil {
		return 0, errors.Wrapf(err, errors.ConfigInvalid, "%s: %q out of range", hclLoc(loc), raw)
	}
	return out, nil
}

// bindDuration converts a DML duration attribute (Go duration syntax,
// e.g. "2ms") into a time.Duration, rejecting a negative duration the
// same way bindInt rejects a malformed integer, and passing the value
// through a cty.Number of nanoseconds on the way.
func bindDuration(loc dml.Location, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ConfigInvalid, "%s: %q is not a duration", hclLoc(loc), raw)
	}
	if d < 0 {
		return 0, errors.Errorf(errors.ConfigInvalid, "%s: duration %q is negative", hclLoc(loc), raw)
	}
	if _, err := gocty.ToCtyValue(int64(d), cty.Number); err != nil {
		return 0, errors.Wrapf(err, errors.ConfigInvalid, "%s: duration %q", hclLoc(loc), raw)
	}
	return d, nil
}

// hclLoc renders a dml.Location through hcl.Pos's line:column
// formatting — spec §4.A's failure modes carry (file, line, column),
// and the DOMAIN STACK table commits to hcl.Pos's shape for reporting
// it rather than inventing a parallel one.
func hclLoc(loc dml.Location) string {
	pos := hcl.Pos{Line: loc.Line, Column: loc.Column, Byte: loc.StartByte}
	return loc.File + ":" + pos.String()
}

// attr returns the string value of listIdx's first direct child keyed
// name, or "" if absent.
func attr(t *dml.Tree, listIdx dml.Index, name string) string {
	for _, v := range attrs(t, listIdx, name) {
		return v
	}
	return ""
}

// attrs returns the string values of every direct child of listIdx
// keyed name, in document order — used for repeated attributes like
// link's "attach+".
func attrs(t *dml.Tree, listIdx dml.Index, name string) []string {
	n := t.Node(listIdx)
	if n == nil {
		return nil
	}
	var out []string
	for _, c := range n.Children {
		cn := t.Node(c)
		if cn.Key == name {
			if v, ok := t.StringValue(c); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

// childrenKeyed returns every direct child of listIdx keyed name, in
// document order.
func childrenKeyed(t *dml.Tree, listIdx dml.Index, name string) []dml.Index {
	n := t.Node(listIdx)
	if n == nil {
		return nil
	}
	var out []dml.Index
	for _, c := range n.Children {
		if t.Node(c).Key == name {
			out = append(out, c)
		}
	}
	return out
}

// firstChildKeyed returns the first direct child of listIdx keyed
// name, if any.
func firstChildKeyed(t *dml.Tree, listIdx dml.Index, name string) (dml.Index, bool) {
	c := childrenKeyed(t, listIdx, name)
	if len(c) == 0 {
		return dml.NilIndex, false
	}
	return c[0], true
}
