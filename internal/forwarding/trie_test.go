// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package forwarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ip(t *testing.T, s string) uint32 {
	t.Helper()
	return mustPrefix(t, s+"/32").Addr
}

// newTrieVariants returns the three Trie implementations. The
// FullDepthTrie keeps its order assertion on, so the shared scenarios
// below insert routes in descending bitlen order rather than disabling
// that assertion.
func newTrieVariants() map[string]Trie {
	return map[string]Trie{
		"FullDepthTrie": NewFullDepthTrie(true),
		"UnorderedTrie": NewUnorderedTrie(),
		"BartTrie":      NewBartTrie(),
	}
}

// TestTrieLongestPrefixMatch exercises scenario S3 ("10.0.0.0/8 -> A,
// 10.1.0.0/16 -> B, 0.0.0.0/0 -> D; lookup(10.1.2.3)==B,
// lookup(10.2.2.3)==A, lookup(8.8.8.8)==D") and property 2 ("route
// lookup returns the longest matching prefix, holding across all Trie
// variants").
func TestTrieLongestPrefixMatch(t *testing.T) {
	routeA := &RouteInfo{Destination: mustPrefix(t, "10.0.0.0/8"), Cost: 1}
	routeB := &RouteInfo{Destination: mustPrefix(t, "10.1.0.0/16"), Cost: 1}
	routeD := &RouteInfo{Destination: mustPrefix(t, "0.0.0.0/0"), Cost: 1}

	for name, trie := range newTrieVariants() {
		t.Run(name, func(t *testing.T) {
			// Long-to-short insert order satisfies FullDepthTrie's
			// documented contract and is harmless for the other two.
			require.NoError(t, trie.Insert(ip(t, "10.1.0.0"), 16, routeB, false))
			require.NoError(t, trie.Insert(ip(t, "10.0.0.0"), 8, routeA, false))
			require.NoError(t, trie.Insert(ip(t, "0.0.0.0"), 0, routeD, false))

			assert.Same(t, routeB, trie.Lookup(ip(t, "10.1.2.3")))
			assert.Same(t, routeA, trie.Lookup(ip(t, "10.2.2.3")))
			assert.Same(t, routeD, trie.Lookup(ip(t, "8.8.8.8")))
			assert.Same(t, routeD, trie.Default())
			assert.Equal(t, 3, trie.Size())
		})
	}
}

func TestTrieRemoveFallsBackToLessSpecific(t *testing.T) {
	routeA := &RouteInfo{Destination: mustPrefix(t, "10.0.0.0/8")}
	routeB := &RouteInfo{Destination: mustPrefix(t, "10.1.0.0/16")}

	for name, trie := range newTrieVariants() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, trie.Insert(ip(t, "10.1.0.0"), 16, routeB, false))
			require.NoError(t, trie.Insert(ip(t, "10.0.0.0"), 8, routeA, false))

			assert.Same(t, routeB, trie.Lookup(ip(t, "10.1.2.3")))
			require.True(t, trie.Remove(ip(t, "10.1.0.0"), 16))
			assert.Same(t, routeA, trie.Lookup(ip(t, "10.1.2.3")))
			assert.Equal(t, 1, trie.Size())
		})
	}
}

func TestTrieLookupMissReturnsNilWithoutDefault(t *testing.T) {
	for name, trie := range newTrieVariants() {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, trie.Lookup(ip(t, "192.168.1.1")))
			assert.Nil(t, trie.Default())
		})
	}
}

func TestTrieInsertRejectsDuplicateWithoutReplace(t *testing.T) {
	routeA := &RouteInfo{Destination: mustPrefix(t, "10.0.0.0/8")}
	routeA2 := &RouteInfo{Destination: mustPrefix(t, "10.0.0.0/8"), Cost: 5}

	for name, trie := range newTrieVariants() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, trie.Insert(ip(t, "10.0.0.0"), 8, routeA, false))
			err := trie.Insert(ip(t, "10.0.0.0"), 8, routeA2, false)
			assert.ErrorIs(t, err, ErrRouteExists)

			require.NoError(t, trie.Insert(ip(t, "10.0.0.0"), 8, routeA2, true))
			assert.Same(t, routeA2, trie.Lookup(ip(t, "10.0.0.1")))
		})
	}
}

func TestTrieInsertRejectsOutOfRangeBitlen(t *testing.T) {
	for name, trie := range newTrieVariants() {
		t.Run(name, func(t *testing.T) {
			err := trie.Insert(0, 33, &RouteInfo{}, false)
			assert.Error(t, err)
		})
	}
}

func TestUnorderedTriePropagatesAcrossInsertOrder(t *testing.T) {
	routeA := &RouteInfo{Destination: mustPrefix(t, "10.0.0.0/8")}
	routeB := &RouteInfo{Destination: mustPrefix(t, "10.1.0.0/16")}

	trie := NewUnorderedTrie()
	// Short-to-long here, the opposite of FullDepthTrie's contract —
	// this is the whole point of the variant.
	require.NoError(t, trie.Insert(ip(t, "10.0.0.0"), 8, routeA, false))
	require.NoError(t, trie.Insert(ip(t, "10.1.0.0"), 16, routeB, false))

	assert.Same(t, routeB, trie.Lookup(ip(t, "10.1.2.3")))
	assert.Same(t, routeA, trie.Lookup(ip(t, "10.2.2.3")))
}

func TestFullDepthTrieAssertOrderPanicsOnShortToLong(t *testing.T) {
	trie := NewFullDepthTrie(true)
	require.NoError(t, trie.Insert(ip(t, "10.0.0.0"), 8, &RouteInfo{}, false))
	assert.Panics(t, func() {
		_ = trie.Insert(ip(t, "10.1.0.0"), 16, &RouteInfo{}, false)
	})
}

func TestBartTrieCoalescesEquivalentRoutes(t *testing.T) {
	// Two distinct *RouteInfo values that are Equivalent should share
	// a single pool slot.
	dest := mustPrefix(t, "10.0.0.0/8")
	r1 := &RouteInfo{Destination: dest, NextHop: ip(t, "10.0.0.1"), Cost: 1}
	r2 := &RouteInfo{Destination: dest, NextHop: ip(t, "10.0.0.1"), Cost: 99}

	trie := NewBartTrie()
	require.NoError(t, trie.Insert(ip(t, "10.0.0.0"), 8, r1, false))
	require.NoError(t, trie.Insert(ip(t, "20.0.0.0"), 8, r2, false))
	assert.Len(t, trie.pool, 1)
}
