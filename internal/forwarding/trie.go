// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package forwarding

import "github.com/grimmlab/chronoswitch/internal/errors"

// Trie is the longest-prefix-match contract every variant implements
// (spec §4.C). Insert/Remove invalidate any cache layered on top —
// ForwardingTable, not the Trie itself, owns that coupling.
type Trie interface {
	Insert(key uint32, bitlen int, route *RouteInfo, replace bool) error
	Remove(key uint32, bitlen int) bool
	Lookup(key uint32) *RouteInfo
	Default() *RouteInfo
	Size() int
}

// ErrRouteExists is returned by Insert when a route already occupies
// (key, bitlen) and replace is false.
var ErrRouteExists = errors.New(errors.ConfigInvalid, "forwarding: route already exists at this prefix")

func validateBitlen(bitlen int) error {
	if bitlen < 0 || bitlen > 32 {
		return errors.Errorf(errors.ConfigInvalid, "forwarding: invalid prefix length %d", bitlen)
	}
	return nil
}
