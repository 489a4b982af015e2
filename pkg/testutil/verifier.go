package testutil

import (
	"crypto/sha256"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/shielded-pool-go/pkg/verifier"
)

// BindingVerifier is a fake ProofVerifier whose proofs commit to their public
// inputs: a proof is valid only for the exact inputs it was issued for, so
// changing the recipient, root, nullifier hash or any proof word fails
// verification just like a real SNARK would.
type BindingVerifier struct {
	mu    sync.Mutex
	calls int
}

// NewBindingVerifier creates a BindingVerifier.
func NewBindingVerifier() *BindingVerifier {
	return &BindingVerifier{}
}

// Issue returns a proof that verifies for exactly these public inputs.
func (b *BindingVerifier) Issue(root, nullifierHash common.Hash, recipient common.Address) verifier.ProofPoints {
	return proofFor(verifier.PublicInputs(root, nullifierHash, recipient))
}

// Verify implements verifier.ProofVerifier.
func (b *BindingVerifier) Verify(proof verifier.ProofPoints, publicInputs []*big.Int) (bool, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	if len(publicInputs) != verifier.NumPublicInputs {
		return false, verifier.ErrInvalidPublicInputs
	}
	return proof == proofFor(publicInputs), nil
}

// Calls returns how many times Verify ran.
func (b *BindingVerifier) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func proofFor(inputs []*big.Int) verifier.ProofPoints {
	h := sha256.New()
	for _, in := range inputs {
		h.Write(common.BigToHash(in).Bytes())
	}
	seed := h.Sum(nil)

	word := func(i byte) common.Hash {
		return common.Hash(sha256.Sum256(append(append([]byte{}, seed...), i)))
	}

	return verifier.ProofPoints{
		A: [2]common.Hash{word(0), word(1)},
		B: [2][2]common.Hash{{word(2), word(3)}, {word(4), word(5)}},
		C: [2]common.Hash{word(6), word(7)},
	}
}
