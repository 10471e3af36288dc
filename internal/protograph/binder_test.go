// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package protograph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimmlab/chronoswitch/internal/dml"
	"github.com/grimmlab/chronoswitch/internal/forwarding"
)

func loadTree(t *testing.T, contents string) *dml.Tree {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.dml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	tree, err := dml.Load(path)
	require.NoError(t, err)
	require.NoError(t, dml.Expand(tree))
	return tree
}

const twoHostDML = `
Net [
  id "0"
  cidr_prefix_len "24"

  Host [
    id "1"
    graph [ description "host1" ]
    interface [ id "0" ip "10.0.0.1" bitrate "1000000" latency "2ms" type "eth" ]
    nhi_route [ dest "default" interface "0" cost "1" protocol "static" ]
  ]

  Host [
    id "2"
    graph [ description "host2" ]
    interface [ id "0" ip "10.0.0.2" ]
    nhi_route [ dest "1(0)" interface "0" next_hop "10.0.0.1" protocol "bgp" ]
  ]

  link [ attach "0:1(0)" attach "0:2(0)" delay "1ms" bandwidth "1000000" ]
]
`

func TestBindTopologyBuildsHostsAndInterfaces(t *testing.T) {
	tree := loadTree(t, twoHostDML)
	topo, err := BindTopology(tree)
	require.NoError(t, err)

	h1, ok := topo.Host(nhi(t, "0:1"))
	require.True(t, ok)
	nic1, err := h1.GetNetworkInterface(0)
	require.NoError(t, err)
	assert.Equal(t, ip(t, "10.0.0.1"), nic1.IP)
	assert.EqualValues(t, 1_000_000, nic1.Bitrate)
	assert.Equal(t, "eth", nic1.Type)
	require.NotNil(t, h1.Graph)
	assert.Equal(t, "host1", h1.Graph.Description)

	h2, ok := topo.Host(nhi(t, "0:2"))
	require.True(t, ok)
	nic2, err := h2.GetNetworkInterface(0)
	require.NoError(t, err)
	assert.Equal(t, ip(t, "10.0.0.2"), nic2.IP)
}

func TestBindTopologyWiresLinkEndpoints(t *testing.T) {
	tree := loadTree(t, twoHostDML)
	topo, err := BindTopology(tree)
	require.NoError(t, err)

	h1, _ := topo.Host(nhi(t, "0:1"))
	nic1, _ := h1.GetNetworkInterface(0)
	require.NotNil(t, nic1.Link)
	assert.Len(t, nic1.Link.Endpoints, 2)
}

func TestBindTopologyResolvesRoutesIncludingImplicitNextHop(t *testing.T) {
	tree := loadTree(t, twoHostDML)
	topo, err := BindTopology(tree)
	require.NoError(t, err)

	h1, _ := topo.Host(nhi(t, "0:1"))
	require.Len(t, h1.Routes, 1)
	assert.Equal(t, ip(t, "10.0.0.2"), h1.Routes[0].NextHop)
	assert.Equal(t, forwarding.Static, h1.Routes[0].Protocol)

	h2, _ := topo.Host(nhi(t, "0:2"))
	require.Len(t, h2.Routes, 1)
	assert.Equal(t, ip(t, "10.0.0.1"), h2.Routes[0].Destination.Addr)
	assert.Equal(t, forwarding.BGP, h2.Routes[0].Protocol)
}

func TestBindTopologyRejectsMissingHostID(t *testing.T) {
	tree := loadTree(t, `
Net [
  id "0"
  Host [
    interface [ id "0" ip "10.0.0.1" ]
  ]
]
`)
	_, err := BindTopology(tree)
	assert.Error(t, err)
}

func TestBindTopologyRejectsUnresolvableRoute(t *testing.T) {
	tree := loadTree(t, `
Net [
  id "0"
  Host [
    id "1"
    interface [ id "0" ip "10.0.0.1" ]
    nhi_route [ dest "default" interface "0" ]
  ]
]
`)
	_, err := BindTopology(tree)
	assert.Error(t, err)
}

func TestBindTopologyNestedNetBuildsMultiSegmentNHI(t *testing.T) {
	tree := loadTree(t, `
Net [
  id "0"
  Net [
    id "1"
    Host [
      id "5"
      interface [ id "0" ip "10.1.0.5" ]
    ]
  ]
]
`)
	topo, err := BindTopology(tree)
	require.NoError(t, err)
	_, ok := topo.Host(nhi(t, "0:1:5"))
	assert.True(t, ok)
}
