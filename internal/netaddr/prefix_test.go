// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskTableBoundaries(t *testing.T) {
	assert.Equal(t, uint32(0), Mask(0))
	assert.Equal(t, uint32(0xFFFFFFFF), Mask(32))
	assert.Equal(t, uint32(0xFFFFFF00), Mask(24))
}

func TestTxtToIPBarePrefix(t *testing.T) {
	p, err := TxtToIP("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 32, p.Len)
	assert.Equal(t, "10.0.0.1/32", p.String())
}

func TestTxtToIPWithLength(t *testing.T) {
	p, err := TxtToIP("10.0.0.0/8")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/8", p.String())
}

func TestTxtToIPRejectsGarbage(t *testing.T) {
	_, err := TxtToIP("not-an-ip")
	assert.Error(t, err)

	_, err = TxtToIP("10.0.0.1/99")
	assert.Error(t, err)

	_, err = TxtToIP("10.0.0.256/8")
	assert.Error(t, err)
}

// TestContainsInvariant exercises spec §8 property 1: for any prefix p
// and address a, p.Contains(a) iff a's top p.Len bits equal p's.
func TestContainsInvariant(t *testing.T) {
	p, err := TxtToIP("192.168.1.0/24")
	require.NoError(t, err)

	inside, _ := ParseIP("192.168.1.200")
	outside, _ := ParseIP("192.168.2.1")

	assert.True(t, p.Contains(inside))
	assert.False(t, p.Contains(outside))
}

func TestContainsPrefixRequiresAtLeastAsSpecific(t *testing.T) {
	broad, _ := TxtToIP("10.0.0.0/8")
	narrow, _ := TxtToIP("10.1.0.0/16")
	sibling, _ := TxtToIP("11.1.0.0/16")

	assert.True(t, broad.ContainsPrefix(narrow))
	assert.False(t, narrow.ContainsPrefix(broad))
	assert.False(t, broad.ContainsPrefix(sibling))
}

func TestNetworkClearsHostBits(t *testing.T) {
	p, err := TxtToIP("10.1.2.3/24")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.0/24", p.Network().String())
}
