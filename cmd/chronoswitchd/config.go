// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"fmt"

	"github.com/grimmlab/chronoswitch/internal/dml"
)

// ProxySpec is one container entry parsed out of an experiment's DML
// config, e.g.:
//
//	proxy [ nhi "1.1" ip "10.0.0.1" container "c1" tdf "10" ]
type ProxySpec struct {
	NHI       string
	IP        string
	Container string
	TDF       float64
	PID       int
}

// TimelineSpec is one `timeline [ ... ]` block: an id plus the Proxies
// that run on it.
type TimelineSpec struct {
	ID      string
	Proxies []ProxySpec
}

// ExperimentSpec is the whole `experiment [ ... ]` block: which
// dilation backend to drive, the fixed create/destroy scripts spec
// §4.F's Launch/Teardown steps call, and the Timelines to build.
type ExperimentSpec struct {
	Dilation      string // "sim" or "linux"
	CreateScript  string
	DestroyScript string
	// SocketHookFile is the proc path of the kernel socket-hook
	// service (spec §6), e.g. "/proc/tdf/hook". Empty disables the
	// socket-hook lookup, so receive vtime always comes from
	// elapsed_now.
	SocketHookFile string
	Timelines      []TimelineSpec
}

// LoadExperimentSpec parses and expands a DML config file into an
// ExperimentSpec (spec §4.A's Load/Expand, generalized from node
// config to the chronoswitchd wrapper's own experiment schema).
func LoadExperimentSpec(path string) (*ExperimentSpec, error) {
	tree, err := dml.Load(path)
	if err != nil {
		return nil, fmt.Errorf("chronoswitchd: load config %s: %w", path, err)
	}
	if err := dml.Expand(tree); err != nil {
		return nil, fmt.Errorf("chronoswitchd: expand config %s: %w", path, err)
	}

	expIdx, ok := tree.FindSingle("experiment")
	if !ok {
		return nil, fmt.Errorf("chronoswitchd: %s: no top-level \"experiment\" block", path)
	}

	spec := &ExperimentSpec{
		Dilation:       attrOr(tree, expIdx, "dilation", "sim"),
		CreateScript:   attrOr(tree, expIdx, "create_script", ""),
		DestroyScript:  attrOr(tree, expIdx, "destroy_script", ""),
		SocketHookFile: attrOr(tree, expIdx, "socket_hook_file", ""),
	}

	for _, tlIdx := range childrenNamed(tree, expIdx, "timeline") {
		tl := TimelineSpec{ID: attrOr(tree, tlIdx, "id", "")}
		if tl.ID == "" {
			return nil, fmt.Errorf("chronoswitchd: %s: timeline block missing \"id\"", path)
		}
		for _, pIdx := range childrenNamed(tree, tlIdx, "proxy") {
			tdf := 1.0
			if s := attrOr(tree, pIdx, "tdf", ""); s != "" {
				if _, err := fmt.Sscanf(s, "%g", &tdf); err != nil {
					return nil, fmt.Errorf("chronoswitchd: %s: timeline %q: bad tdf %q: %w", path, tl.ID, s, err)
				}
			}
			pid := 0
			if s := attrOr(tree, pIdx, "pid", ""); s != "" {
				if _, err := fmt.Sscanf(s, "%d", &pid); err != nil {
					return nil, fmt.Errorf("chronoswitchd: %s: timeline %q: bad pid %q: %w", path, tl.ID, s, err)
				}
			}
			tl.Proxies = append(tl.Proxies, ProxySpec{
				NHI:       attrOr(tree, pIdx, "nhi", ""),
				IP:        attrOr(tree, pIdx, "ip", ""),
				Container: attrOr(tree, pIdx, "container", ""),
				TDF:       tdf,
				PID:       pid,
			})
		}
		spec.Timelines = append(spec.Timelines, tl)
	}

	return spec, nil
}

// attrOr returns the string value of listIdx's first direct child
// keyed name, or def if absent — a thin convenience over dml.Tree's
// arena walk, since Find/FindSingle always search from the document
// root rather than relative to a node (spec §4.A's keypath lookups are
// document-rooted; per-block attribute access here is a plain child
// scan).
func attrOr(t *dml.Tree, listIdx dml.Index, name, def string) string {
	n := t.Node(listIdx)
	if n == nil {
		return def
	}
	for _, c := range n.Children {
		cn := t.Node(c)
		if cn.Key == name {
			if v, ok := t.StringValue(c); ok {
				return v
			}
		}
	}
	return def
}

// childrenNamed returns every direct child of listIdx keyed name, in
// document order.
func childrenNamed(t *dml.Tree, listIdx dml.Index, name string) []dml.Index {
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
