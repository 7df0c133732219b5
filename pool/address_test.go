// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr := BytesToAddress([]byte("wallet"))

	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, *parsed)

	// bare hex without prefix
	parsed, err = ParseAddress(addr.String()[2:])
	require.NoError(t, err)
	assert.Equal(t, addr, *parsed)

	_, err = ParseAddress("0x00")
	assert.Error(t, err)

	_, err = ParseAddress("zz" + addr.String()[2:])
	assert.Error(t, err)

	_, err = ParseAddress("1x" + addr.String()[2:])
	assert.Error(t, err)
}

func TestBytesToAddress(t *testing.T) {
	// short input is extended from the left
	assert.Equal(t, Address{19: 0x01}, BytesToAddress([]byte{0x01}))

	// long input is cropped from the left
	long := make([]byte, 32)
	long[31] = 0x02
	assert.Equal(t, Address{19: 0x02}, BytesToAddress(long))
}

func TestAddressIsZero(t *testing.T) {
	assert.True(t, Address{}.IsZero())
	assert.False(t, BytesToAddress([]byte{1}).IsZero())
}

func TestAddressJSON(t *testing.T) {
	addr := BytesToAddress([]byte("json"))

	raw, err := json.Marshal(addr)
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, addr, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"0x00"`), &decoded))
}

func TestDeriveHandle(t *testing.T) {
	w1 := BytesToAddress([]byte("w1"))
	w2 := BytesToAddress([]byte("w2"))

	// stable per wallet, distinct across wallets and from the wallet itself
	assert.Equal(t, DeriveHandle(w1), DeriveHandle(w1))
	assert.NotEqual(t, DeriveHandle(w1), DeriveHandle(w2))
	assert.NotEqual(t, w1, DeriveHandle(w1))
}
