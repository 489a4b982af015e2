package hasher

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// maxPoseidonInputs is the widest Poseidon instance provided by go-iden3-crypto.
const maxPoseidonInputs = 16

// Poseidon is the circomlib-compatible Poseidon permutation over BN254.
type Poseidon struct{}

// NewPoseidon returns the Poseidon hasher.
func NewPoseidon() *Poseidon {
	return &Poseidon{}
}

// Name implements Hasher.
func (p *Poseidon) Name() string {
	return NamePoseidon
}

// Hash implements Hasher.
func (p *Poseidon) Hash(inputs ...*big.Int) (*big.Int, error) {
	if err := checkInputs(inputs); err != nil {
		return nil, err
	}
	if len(inputs) > maxPoseidonInputs {
		return nil, fmt.Errorf("poseidon supports at most %d inputs, got %d", maxPoseidonInputs, len(inputs))
	}
	out, err := poseidon.Hash(inputs)
	if err != nil {
		return nil, fmt.Errorf("poseidon hash failed: %w", err)
	}
	return out, nil
}
