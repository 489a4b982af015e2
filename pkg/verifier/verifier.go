// Package verifier checks withdrawal proofs against their public inputs.
//
// Public inputs are ordered [root, nullifierHash, recipient], with the
// recipient address read as a 160-bit unsigned integer.
package verifier

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NumPublicInputs is the number of public inputs of a withdrawal proof.
const NumPublicInputs = 3

var (
	// ErrMalformedProof is returned when proof points cannot be decoded into
	// valid curve points.
	ErrMalformedProof = errors.New("malformed proof")

	// ErrInvalidPublicInputs is returned when the public inputs have the wrong
	// count or contain values outside the scalar field.
	ErrInvalidPublicInputs = errors.New("invalid public inputs")
)

// ProofPoints is a Groth16 proof in the layout used by Ethereum verifier
// contracts: A and C are G1 points (x, y); B is a G2 point whose Fp2
// coordinates are each ordered [imaginary, real].
type ProofPoints struct {
	A [2]common.Hash    `json:"a"`
	B [2][2]common.Hash `json:"b"`
	C [2]common.Hash    `json:"c"`
}

// ProofVerifier is a stateless predicate over a proof and its public inputs.
type ProofVerifier interface {
	// Verify reports whether proof is valid for publicInputs. A non-nil error
	// means the proof or inputs could not be interpreted at all.
	Verify(proof ProofPoints, publicInputs []*big.Int) (bool, error)
}

// PublicInputs assembles the withdrawal public inputs in circuit order.
func PublicInputs(root, nullifierHash common.Hash, recipient common.Address) []*big.Int {
	return []*big.Int{
		root.Big(),
		nullifierHash.Big(),
		new(big.Int).SetBytes(recipient.Bytes()),
	}
}

// StubVerifier returns a fixed answer for every proof.
type StubVerifier struct {
	Accept bool
}

// Verify implements ProofVerifier.
func (s StubVerifier) Verify(_ ProofPoints, publicInputs []*big.Int) (bool, error) {
	if len(publicInputs) != NumPublicInputs {
		return false, ErrInvalidPublicInputs
	}
	return s.Accept, nil
}
