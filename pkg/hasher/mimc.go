package hasher

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// MiMC is the gnark-crypto MiMC construction over BN254. It matches the in-circuit
// hash from gnark's std/hash/mimc, so trees built with it can be checked by
// gnark circuits.
type MiMC struct{}

// NewMiMC returns the MiMC hasher.
func NewMiMC() *MiMC {
	return &MiMC{}
}

// Name implements Hasher.
func (m *MiMC) Name() string {
	return NameMiMC
}

// Hash implements Hasher. Each input is absorbed as one padded field element.
func (m *MiMC) Hash(inputs ...*big.Int) (*big.Int, error) {
	if err := checkInputs(inputs); err != nil {
		return nil, err
	}

	h := mimc.NewMiMC()
	for i, in := range inputs {
		buf := make([]byte, fr.Bytes)
		in.FillBytes(buf)
		if _, err := h.Write(buf); err != nil {
			return nil, fmt.Errorf("mimc write of input %d failed: %w", i, err)
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}
