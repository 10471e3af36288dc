// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package forwarding

// ForwardingTable pairs a Trie with a Cache, invalidating the cache on
// every mutation (spec §4.C "ForwardingTable... any insert/remove
// invalidates the cache").
type ForwardingTable struct {
	Trie  Trie
	Cache Cache
}

func NewForwardingTable(trie Trie, cache Cache) *ForwardingTable {
	return &ForwardingTable{Trie: trie, Cache: cache}
}

func (f *ForwardingTable) Insert(key uint32, bitlen int, route *RouteInfo, replace bool) error {
	if err := f.Trie.Insert(key, bitlen, route, replace); err != nil {
		return err
	}
	f.Cache.Invalidate()
	return nil
}

func (f *ForwardingTable) Remove(key uint32, bitlen int) bool {
	ok := f.Trie.Remove(key, bitlen)
	if ok {
		f.Cache.Invalidate()
	}
	return ok
}

// Lookup returns the longest-match route for key, or the default
// route if present, or nil — serving cached answers when available
// and populating the cache on a miss.
func (f *ForwardingTable) Lookup(key uint32) *RouteInfo {
	if route, ok := f.Cache.Lookup(key); ok {
		return route
	}
	route := f.Trie.Lookup(key)
	f.Cache.Update(key, route)
	return route
}

func (f *ForwardingTable) Size() int { return f.Trie.Size() }
