// Package hasher provides the BN254 scalar-field hash functions used to build
// commitments, nullifier hashes and sparse Merkle tree nodes.
//
// Every input and output is a field element encoded as a 32-byte big-endian
// word. Inputs at or above the field modulus are rejected rather than reduced,
// so one 32-byte word always names exactly one element.
package hasher

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/utils"
)

// Supported hash function names.
const (
	NamePoseidon = "poseidon"
	NameMiMC     = "mimc"
)

var (
	// ErrInvalidFieldElement is returned for inputs outside the BN254 scalar field.
	ErrInvalidFieldElement = errors.New("value is not a BN254 scalar field element")

	// ErrUnsupportedHasher is returned by New for unknown hash function names.
	ErrUnsupportedHasher = errors.New("unsupported hash function")
)

// Hasher hashes a short, fixed-arity list of field elements into one element.
type Hasher interface {
	// Name identifies the hash function, e.g. "poseidon".
	Name() string
	// Hash returns H(inputs...). It fails if any input is outside the field.
	Hash(inputs ...*big.Int) (*big.Int, error)
}

// New returns the hasher registered under name.
func New(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case NamePoseidon, "":
		return NewPoseidon(), nil
	case NameMiMC:
		return NewMiMC(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHasher, name)
	}
}

// InField reports whether x is a canonical BN254 scalar field element.
func InField(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && utils.CheckBigIntInField(x)
}

// CheckField returns ErrInvalidFieldElement if any hash is not canonical.
func CheckField(values ...common.Hash) error {
	for _, v := range values {
		if !InField(v.Big()) {
			return fmt.Errorf("%w: %s", ErrInvalidFieldElement, v.Hex())
		}
	}
	return nil
}

// HashWords hashes 32-byte words and returns the digest as a 32-byte word.
func HashWords(h Hasher, words ...common.Hash) (common.Hash, error) {
	inputs := make([]*big.Int, len(words))
	for i, w := range words {
		inputs[i] = w.Big()
	}
	out, err := h.Hash(inputs...)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BigToHash(out), nil
}

func checkInputs(inputs []*big.Int) error {
	if len(inputs) == 0 {
		return fmt.Errorf("hash requires at least one input")
	}
	for i, in := range inputs {
		if !InField(in) {
			return fmt.Errorf("%w: input %d", ErrInvalidFieldElement, i)
		}
	}
	return nil
}
