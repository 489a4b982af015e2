package verifier_test

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
	"github.com/Layr-Labs/shielded-pool-go/pkg/testutil"
	"github.com/Layr-Labs/shielded-pool-go/pkg/verifier"
)

func TestPublicInputs(t *testing.T) {
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	inputs := verifier.PublicInputs(common.BigToHash(big.NewInt(1)), common.BigToHash(big.NewInt(2)), recipient)

	require.Len(t, inputs, verifier.NumPublicInputs)
	assert.Equal(t, int64(1), inputs[0].Int64())
	assert.Equal(t, int64(2), inputs[1].Int64())
	assert.Equal(t, int64(255), inputs[2].Int64())
}

func TestStubVerifier(t *testing.T) {
	inputs := verifier.PublicInputs(common.Hash{}, common.Hash{}, common.Address{})

	ok, err := verifier.StubVerifier{Accept: true}.Verify(verifier.ProofPoints{}, inputs)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifier.StubVerifier{Accept: false}.Verify(verifier.ProofPoints{}, inputs)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = verifier.StubVerifier{Accept: true}.Verify(verifier.ProofPoints{}, inputs[:2])
	require.ErrorIs(t, err, verifier.ErrInvalidPublicInputs)
}

type groth16Env struct {
	fixture       *testutil.Groth16Fixture
	verifier      *verifier.Groth16Verifier
	root          common.Hash
	nullifierHash common.Hash
	recipient     common.Address
	proof         verifier.ProofPoints
}

func newGroth16Env(t *testing.T) *groth16Env {
	t.Helper()

	fixture := testutil.NewGroth16Fixture(t)
	v, err := verifier.NewGroth16Verifier(fixture.VK, zap.NewNop())
	require.NoError(t, err)

	nullifier := testutil.RandomFieldElement(t)
	nullifierHash, err := hasher.HashWords(hasher.NewMiMC(), nullifier)
	require.NoError(t, err)

	env := &groth16Env{
		fixture:       fixture,
		verifier:      v,
		root:          testutil.RandomFieldElement(t),
		nullifierHash: nullifierHash,
		recipient:     testutil.RandomAddress(t),
	}
	env.proof = fixture.Prove(t, env.root, env.nullifierHash, env.recipient, nullifier.Big())
	return env
}

func (e *groth16Env) inputs() []*big.Int {
	return verifier.PublicInputs(e.root, e.nullifierHash, e.recipient)
}

func TestGroth16Verifier(t *testing.T) {
	env := newGroth16Env(t)

	t.Run("valid proof", func(t *testing.T) {
		ok, err := env.verifier.Verify(env.proof, env.inputs())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("different recipient", func(t *testing.T) {
		inputs := verifier.PublicInputs(env.root, env.nullifierHash, testutil.RandomAddress(t))
		ok, err := env.verifier.Verify(env.proof, inputs)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("different root", func(t *testing.T) {
		inputs := verifier.PublicInputs(testutil.RandomFieldElement(t), env.nullifierHash, env.recipient)
		ok, err := env.verifier.Verify(env.proof, inputs)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("different nullifier hash", func(t *testing.T) {
		inputs := verifier.PublicInputs(env.root, testutil.RandomFieldElement(t), env.recipient)
		ok, err := env.verifier.Verify(env.proof, inputs)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("swapped A and C", func(t *testing.T) {
		proof := env.proof
		proof.A, proof.C = proof.C, proof.A
		ok, err := env.verifier.Verify(proof, env.inputs())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bit flip", func(t *testing.T) {
		proof := env.proof
		proof.A[0][31] ^= 0x01
		ok, err := env.verifier.Verify(proof, env.inputs())
		assert.False(t, ok)
		// A flipped coordinate almost always leaves the curve.
		if err != nil {
			require.ErrorIs(t, err, verifier.ErrMalformedProof)
		}
	})

	t.Run("coordinate above base field", func(t *testing.T) {
		proof := env.proof
		proof.B[0][0] = common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
		ok, err := env.verifier.Verify(proof, env.inputs())
		require.ErrorIs(t, err, verifier.ErrMalformedProof)
		assert.False(t, ok)
	})

	t.Run("wrong input count", func(t *testing.T) {
		ok, err := env.verifier.Verify(env.proof, env.inputs()[:2])
		require.ErrorIs(t, err, verifier.ErrInvalidPublicInputs)
		assert.False(t, ok)
	})

	t.Run("input outside scalar field", func(t *testing.T) {
		inputs := env.inputs()
		inputs[0] = new(big.Int).Set(ecc.BN254.ScalarField())
		ok, err := env.verifier.Verify(env.proof, inputs)
		require.ErrorIs(t, err, verifier.ErrInvalidPublicInputs)
		assert.False(t, ok)
	})
}

func TestLoadVerifyingKey(t *testing.T) {
	fixture := testutil.NewGroth16Fixture(t)

	var buf bytes.Buffer
	_, err := fixture.VK.WriteTo(&buf)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "withdraw.vk")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	vk, err := verifier.LoadVerifyingKey(path)
	require.NoError(t, err)

	_, err = verifier.NewGroth16Verifier(vk, zap.NewNop())
	require.NoError(t, err)

	_, err = verifier.LoadVerifyingKey(filepath.Join(t.TempDir(), "missing.vk"))
	require.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.vk")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0o600))
	_, err = verifier.LoadVerifyingKey(garbage)
	require.Error(t, err)
}

func TestNewGroth16Verifier_NilKey(t *testing.T) {
	_, err := verifier.NewGroth16Verifier(nil, zap.NewNop())
	require.Error(t, err)
}

func TestProofPointsFromGnark_RoundTrip(t *testing.T) {
	env := newGroth16Env(t)

	// Points decoded from the Ethereum layout must verify, which checks the
	// Fp2 ordering of B.
	ok, err := env.verifier.Verify(env.proof, env.inputs())
	require.NoError(t, err)
	require.True(t, ok)

	swapped := env.proof
	swapped.B[0][0], swapped.B[0][1] = swapped.B[0][1], swapped.B[0][0]
	swapped.B[1][0], swapped.B[1][1] = swapped.B[1][1], swapped.B[1][0]
	ok, _ = env.verifier.Verify(swapped, env.inputs())
	assert.False(t, ok)
}
