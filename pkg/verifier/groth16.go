package verifier

import (
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/witness"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Groth16Verifier verifies BN254 Groth16 proofs with gnark.
type Groth16Verifier struct {
	vk     groth16.VerifyingKey
	logger *zap.Logger
}

// NewGroth16Verifier binds a verifier to vk. The key must expect exactly
// NumPublicInputs public inputs.
func NewGroth16Verifier(vk groth16.VerifyingKey, logger *zap.Logger) (*Groth16Verifier, error) {
	if vk == nil {
		return nil, fmt.Errorf("verifying key cannot be nil")
	}
	if n := vk.NbPublicWitness(); n != NumPublicInputs {
		return nil, fmt.Errorf("verifying key expects %d public inputs, want %d", n, NumPublicInputs)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Groth16Verifier{vk: vk, logger: logger}, nil
}

// LoadVerifyingKey reads a gnark-serialized BN254 verifying key from path.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open verifying key")
	}
	defer func() { _ = f.Close() }()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, errors.Wrapf(err, "failed to decode verifying key %s", path)
	}
	return vk, nil
}

// Verify implements ProofVerifier.
func (v *Groth16Verifier) Verify(proof ProofPoints, publicInputs []*big.Int) (bool, error) {
	gnarkProof, err := toGnarkProof(proof)
	if err != nil {
		return false, err
	}

	publicWitness, err := newPublicWitness(publicInputs)
	if err != nil {
		return false, err
	}

	if err := groth16.Verify(gnarkProof, v.vk, publicWitness); err != nil {
		v.logger.Sugar().Debugw("Groth16 verification failed", "error", err)
		return false, nil
	}
	return true, nil
}

func newPublicWitness(inputs []*big.Int) (witness.Witness, error) {
	if len(inputs) != NumPublicInputs {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidPublicInputs, len(inputs), NumPublicInputs)
	}

	modulus := ecc.BN254.ScalarField()
	for i, in := range inputs {
		if in == nil || in.Sign() < 0 || in.Cmp(modulus) >= 0 {
			return nil, fmt.Errorf("%w: input %d is not a scalar field element", ErrInvalidPublicInputs, i)
		}
	}

	w, err := witness.New(modulus)
	if err != nil {
		return nil, fmt.Errorf("failed to create witness: %w", err)
	}

	values := make(chan any, len(inputs))
	for _, in := range inputs {
		values <- in
	}
	close(values)

	if err := w.Fill(len(inputs), 0, values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicInputs, err)
	}
	return w, nil
}

func toGnarkProof(p ProofPoints) (*groth16_bn254.Proof, error) {
	a, err := g1FromWords(p.A)
	if err != nil {
		return nil, fmt.Errorf("%w: A: %v", ErrMalformedProof, err)
	}
	c, err := g1FromWords(p.C)
	if err != nil {
		return nil, fmt.Errorf("%w: C: %v", ErrMalformedProof, err)
	}
	b, err := g2FromWords(p.B)
	if err != nil {
		return nil, fmt.Errorf("%w: B: %v", ErrMalformedProof, err)
	}
	return &groth16_bn254.Proof{Ar: a, Bs: b, Krs: c}, nil
}

func fpFromWord(word common.Hash) (fp.Element, error) {
	var e fp.Element
	if err := e.SetBytesCanonical(word[:]); err != nil {
		return fp.Element{}, fmt.Errorf("coordinate %s is not a base field element", word.Hex())
	}
	return e, nil
}

func g1FromWords(words [2]common.Hash) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	var err error
	if p.X, err = fpFromWord(words[0]); err != nil {
		return p, err
	}
	if p.Y, err = fpFromWord(words[1]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() {
		return p, fmt.Errorf("point is not on the curve")
	}
	if !p.IsInSubGroup() {
		return p, fmt.Errorf("point is not in the prime order subgroup")
	}
	return p, nil
}

func g2FromWords(words [2][2]common.Hash) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	var err error
	if p.X.A1, err = fpFromWord(words[0][0]); err != nil {
		return p, err
	}
	if p.X.A0, err = fpFromWord(words[0][1]); err != nil {
		return p, err
	}
	if p.Y.A1, err = fpFromWord(words[1][0]); err != nil {
		return p, err
	}
	if p.Y.A0, err = fpFromWord(words[1][1]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() {
		return p, fmt.Errorf("point is not on the curve")
	}
	if !p.IsInSubGroup() {
		return p, fmt.Errorf("point is not in the prime order subgroup")
	}
	return p, nil
}

// ProofPointsFromGnark converts a gnark BN254 Groth16 proof into ProofPoints.
func ProofPointsFromGnark(proof groth16.Proof) (ProofPoints, error) {
	p, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return ProofPoints{}, fmt.Errorf("expected a BN254 Groth16 proof, got %T", proof)
	}
	if len(p.Commitments) != 0 {
		return ProofPoints{}, fmt.Errorf("proofs with commitments have no Ethereum encoding")
	}

	word := func(e fp.Element) common.Hash {
		return common.Hash(e.Bytes())
	}

	return ProofPoints{
		A: [2]common.Hash{word(p.Ar.X), word(p.Ar.Y)},
		B: [2][2]common.Hash{
			{word(p.Bs.X.A1), word(p.Bs.X.A0)},
			{word(p.Bs.Y.A1), word(p.Bs.Y.A0)},
		},
		C: [2]common.Hash{word(p.Krs.X), word(p.Krs.Y)},
	}, nil
}
