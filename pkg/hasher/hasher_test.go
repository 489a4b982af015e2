package hasher

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"default", "", NamePoseidon, false},
		{"poseidon", "poseidon", NamePoseidon, false},
		{"mixed case", "MiMC", NameMiMC, false},
		{"unknown", "sha256", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := New(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedHasher)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, h.Name())
		})
	}
}

func TestHashers_DeterministicAndDistinct(t *testing.T) {
	for _, h := range []Hasher{NewPoseidon(), NewMiMC()} {
		t.Run(h.Name(), func(t *testing.T) {
			a, err := h.Hash(big.NewInt(1), big.NewInt(2))
			require.NoError(t, err)
			b, err := h.Hash(big.NewInt(1), big.NewInt(2))
			require.NoError(t, err)
			c, err := h.Hash(big.NewInt(2), big.NewInt(1))
			require.NoError(t, err)

			assert.Equal(t, a, b)
			assert.NotEqual(t, a, c, "argument order must matter")
			assert.True(t, InField(a))
		})
	}
}

func TestPoseidon_KnownVector(t *testing.T) {
	// circomlib poseidon([1, 2])
	expected, ok := new(big.Int).SetString("7853200120776062878684798364095072458815029376092732009249414926327459813530", 10)
	require.True(t, ok)

	out, err := NewPoseidon().Hash(big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, 0, expected.Cmp(out))
}

func TestHash_RejectsOutOfField(t *testing.T) {
	modulus := fr.Modulus()
	for _, h := range []Hasher{NewPoseidon(), NewMiMC()} {
		t.Run(h.Name(), func(t *testing.T) {
			_, err := h.Hash(modulus)
			require.ErrorIs(t, err, ErrInvalidFieldElement)

			_, err = h.Hash(big.NewInt(-1))
			require.ErrorIs(t, err, ErrInvalidFieldElement)

			_, err = h.Hash()
			require.Error(t, err)
		})
	}
}

func TestCheckField(t *testing.T) {
	require.NoError(t, CheckField(common.Hash{}, common.BigToHash(big.NewInt(42))))

	tooBig := common.BigToHash(fr.Modulus())
	require.ErrorIs(t, CheckField(common.Hash{}, tooBig), ErrInvalidFieldElement)

	allOnes := common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	require.ErrorIs(t, CheckField(allOnes), ErrInvalidFieldElement)
}

func TestInField(t *testing.T) {
	top := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
	assert.True(t, InField(big.NewInt(0)))
	assert.True(t, InField(top))

	assert.False(t, InField(nil))
	assert.False(t, InField(fr.Modulus()))
	assert.False(t, InField(big.NewInt(-1)))
	assert.False(t, InField(new(big.Int).Neg(top)), "negatives must not alias a reduced element")
}

func TestHash_NegativeDoesNotAlias(t *testing.T) {
	for _, h := range []Hasher{NewPoseidon(), NewMiMC()} {
		t.Run(h.Name(), func(t *testing.T) {
			_, err := h.Hash(big.NewInt(-1), big.NewInt(2))
			require.ErrorIs(t, err, ErrInvalidFieldElement)
		})
	}
}

func TestHashWords(t *testing.T) {
	h := NewPoseidon()
	word, err := HashWords(h, common.BigToHash(big.NewInt(1)), common.BigToHash(big.NewInt(2)))
	require.NoError(t, err)

	direct, err := h.Hash(big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, common.BigToHash(direct), word)
}
