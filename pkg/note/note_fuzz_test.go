package note

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzDecode(f *testing.F) {
	f.Add("")
	f.Add("shielded-poseidon-1-0x")
	f.Add("shielded-mimc-1000000000000000000-0x" + "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff0011223344556677")

	f.Fuzz(func(t *testing.T, s string) {
		n, err := Decode(s)
		if err != nil {
			require.ErrorIs(t, err, ErrInvalidNote)
			return
		}

		// Anything that decodes must re-encode to a note with the same material.
		again, err := Decode(n.Encode())
		require.NoError(t, err)
		require.Equal(t, n.Secret, again.Secret)
		require.Equal(t, n.Nullifier, again.Nullifier)
		require.True(t, n.Denomination.Eq(again.Denomination))
	})
}
