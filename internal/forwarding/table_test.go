// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package forwarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertCacheCoherent checks property 3: after any insert/remove, the
// immediately following lookup agrees with a freshly built cache-less
// table driven through the same mutation sequence.
func assertCacheCoherent(t *testing.T, cached *ForwardingTable, bare *ForwardingTable, key uint32) {
	t.Helper()
	got := cached.Lookup(key)
	want := bare.Lookup(key)
	if want == nil {
		assert.Nil(t, got)
		return
	}
	assert.Same(t, want, got)
}

func TestForwardingTableCacheCoherenceAcrossMutations(t *testing.T) {
	caches := map[string]func() Cache{
		"NoCache":           func() Cache { return NoCache{} },
		"SingleSlotCache":   func() Cache { return &SingleSlotCache{} },
		"DirectMappedCache": func() Cache { return &DirectMappedCache{} },
		"NWayCache":         func() Cache { return NewNWayCache(4) },
	}

	routeA := &RouteInfo{Destination: mustPrefix(t, "10.0.0.0/8")}
	routeB := &RouteInfo{Destination: mustPrefix(t, "10.1.0.0/16")}
	routeD := &RouteInfo{Destination: mustPrefix(t, "0.0.0.0/0")}

	for name, newCache := range caches {
		t.Run(name, func(t *testing.T) {
			cached := NewForwardingTable(NewUnorderedTrie(), newCache())
			bare := NewForwardingTable(NewUnorderedTrie(), NoCache{})

			lookupKey := ip(t, "10.1.2.3")

			require.NoError(t, cached.Insert(ip(t, "10.0.0.0"), 8, routeA, false))
			require.NoError(t, bare.Insert(ip(t, "10.0.0.0"), 8, routeA, false))
			cached.Lookup(lookupKey) // warm the cache on a miss first
			assertCacheCoherent(t, cached, bare, lookupKey)

			require.NoError(t, cached.Insert(ip(t, "10.1.0.0"), 16, routeB, false))
			require.NoError(t, bare.Insert(ip(t, "10.1.0.0"), 16, routeB, false))
			assertCacheCoherent(t, cached, bare, lookupKey)

			require.NoError(t, cached.Insert(ip(t, "0.0.0.0"), 0, routeD, false))
			require.NoError(t, bare.Insert(ip(t, "0.0.0.0"), 0, routeD, false))
			assertCacheCoherent(t, cached, bare, ip(t, "8.8.8.8"))

			require.True(t, cached.Remove(ip(t, "10.1.0.0"), 16))
			require.True(t, bare.Remove(ip(t, "10.1.0.0"), 16))
			assertCacheCoherent(t, cached, bare, lookupKey)
		})
	}
}

func TestForwardingTableLookupPopulatesCacheOnMiss(t *testing.T) {
	route := &RouteInfo{Destination: mustPrefix(t, "10.0.0.0/8")}
	cache := &SingleSlotCache{}
	table := NewForwardingTable(NewFullDepthTrie(true), cache)
	require.NoError(t, table.Insert(ip(t, "10.0.0.0"), 8, route, false))

	key := ip(t, "10.0.0.1")
	assert.Same(t, route, table.Lookup(key))
	got, ok := cache.Lookup(key)
	require.True(t, ok)
	assert.Same(t, route, got)
}

func TestForwardingTableSizeDelegatesToTrie(t *testing.T) {
	table := NewForwardingTable(NewUnorderedTrie(), NoCache{})
	require.NoError(t, table.Insert(ip(t, "10.0.0.0"), 8, &RouteInfo{}, false))
	assert.Equal(t, 1, table.Size())
}
