package testutil

import (
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// OneEther is a convenient denomination for tests.
var OneEther = uint256.NewInt(1_000_000_000_000_000_000)

// RandomFieldElement returns a random 31-byte value, always inside the BN254
// scalar field.
func RandomFieldElement(t *testing.T) common.Hash {
	t.Helper()
	var buf [31]byte
	_, err := rand.Read(buf[:])
	require.NoError(t, err)
	return common.BytesToHash(buf[:])
}

// RandomAddress returns a random non-zero address.
func RandomAddress(t *testing.T) common.Address {
	t.Helper()
	var addr common.Address
	_, err := rand.Read(addr[:])
	require.NoError(t, err)
	addr[0] |= 0x01
	return addr
}
