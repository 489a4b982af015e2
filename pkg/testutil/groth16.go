package testutil

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/shielded-pool-go/pkg/verifier"
)

// WithdrawCircuit is a reduced withdrawal circuit for exercising the Groth16
// verifier: it proves knowledge of a nullifier whose MiMC hash is the public
// nullifier hash, and binds the root and recipient into the proof by squaring
// them. It does not check tree membership.
type WithdrawCircuit struct {
	Root          frontend.Variable `gnark:",public"`
	NullifierHash frontend.Variable `gnark:",public"`
	Recipient     frontend.Variable `gnark:",public"`

	Nullifier frontend.Variable
}

// Define declares the circuit constraints.
func (c *WithdrawCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Nullifier)
	api.AssertIsEqual(c.NullifierHash, h.Sum())

	api.Mul(c.Root, c.Root)
	api.Mul(c.Recipient, c.Recipient)
	return nil
}

// Groth16Fixture holds a compiled WithdrawCircuit and its keys.
type Groth16Fixture struct {
	CCS constraint.ConstraintSystem
	PK  groth16.ProvingKey
	VK  groth16.VerifyingKey
}

// NewGroth16Fixture compiles WithdrawCircuit over BN254 and runs a test setup.
func NewGroth16Fixture(t *testing.T) *Groth16Fixture {
	t.Helper()

	var circuit WithdrawCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	require.NoError(t, err)

	pk, vk, err := groth16.Setup(ccs)
	require.NoError(t, err)

	return &Groth16Fixture{CCS: ccs, PK: pk, VK: vk}
}

// Prove produces Ethereum-ordered proof points for the given assignment.
func (f *Groth16Fixture) Prove(t *testing.T, root, nullifierHash common.Hash, recipient common.Address, nullifier *big.Int) verifier.ProofPoints {
	t.Helper()

	assignment := &WithdrawCircuit{
		Root:          root.Big(),
		NullifierHash: nullifierHash.Big(),
		Recipient:     new(big.Int).SetBytes(recipient.Bytes()),
		Nullifier:     nullifier,
	}

	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	require.NoError(t, err)

	proof, err := groth16.Prove(f.CCS, f.PK, w)
	require.NoError(t, err)

	points, err := verifier.ProofPointsFromGnark(proof)
	require.NoError(t, err)
	return points
}
