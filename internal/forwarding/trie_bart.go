// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package forwarding

import (
	"net/netip"

	"github.com/gaissmai/bart"
)

// BartTrie is Trie variant (3): array-backed storage where nodes hold
// indices into a small dense array that coalesces equivalent routes
// by RouteInfo.Equivalent (spec §4.C). The longest-prefix-match
// structure itself is github.com/gaissmai/bart's Table, which stores
// the small int index rather than a *RouteInfo directly — the
// coalescing array is ours, bart just needs a comparable, cheap
// value type to carry.
type BartTrie struct {
	table *bart.Table[int]
	pool  []*RouteInfo
	size  int
}

func NewBartTrie() *BartTrie {
	return &BartTrie{table: new(bart.Table[int])}
}

func (t *BartTrie) Insert(key uint32, bitlen int, route *RouteInfo, replace bool) error {
	if err := validateBitlen(bitlen); err != nil {
		return err
	}
	pfx := toPrefix(key, bitlen)
	if _, ok := t.table.Get(pfx); ok && !replace {
		return ErrRouteExists
	}
	idx := t.coalesce(route)
	if replace {
		// An equivalent route already in the pool keeps its slot; the
		// slot takes the replacing route so Lookup returns it.
		t.pool[idx] = route
	}
	if _, existed := t.table.Get(pfx); !existed {
		t.size++
	}
	t.table.Insert(pfx, idx)
	return nil
}

func (t *BartTrie) Remove(key uint32, bitlen int) bool {
	if validateBitlen(bitlen) != nil {
		return false
	}
	pfx := toPrefix(key, bitlen)
	if _, ok := t.table.Get(pfx); !ok {
		return false
	}
	t.table.Delete(pfx)
	t.size--
	return true
}

func (t *BartTrie) Lookup(key uint32) *RouteInfo {
	addr := netip.AddrFrom4(uint32ToBytes(key))
	idx, ok := t.table.Lookup(addr)
	if !ok {
		return nil
	}
	return t.pool[idx]
}

func (t *BartTrie) Default() *RouteInfo {
	idx, ok := t.table.Get(netip.PrefixFrom(netip.AddrFrom4([4]byte{}), 0))
	if !ok {
		return nil
	}
	return t.pool[idx]
}

func (t *BartTrie) Size() int { return t.size }

// coalesce returns the pool index of a RouteInfo equivalent to route,
// appending a new pool entry only when none already matches.
func (t *BartTrie) coalesce(route *RouteInfo) int {
	for i, r := range t.pool {
		if r.Equivalent(route) {
			return i
		}
	}
	t.pool = append(t.pool, route)
	return len(t.pool) - 1
}

func toPrefix(key uint32, bitlen int) netip.Prefix {
	return netip.PrefixFrom(netip.AddrFrom4(uint32ToBytes(key)), bitlen).Masked()
}

func uint32ToBytes(key uint32) [4]byte {
	return [4]byte{byte(key >> 24), byte(key >> 16), byte(key >> 8), byte(key)}
}
