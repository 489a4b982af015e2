package verifier

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// calldataArguments matches verifyProof(uint[2] a, uint[2][2] b, uint[2] c,
// uint[3] input) of generated Solidity Groth16 verifiers.
var calldataArguments = func() abi.Arguments {
	pair, _ := abi.NewType("uint256[2]", "", nil)
	matrix, _ := abi.NewType("uint256[2][2]", "", nil)
	inputs, _ := abi.NewType("uint256[3]", "", nil)
	return abi.Arguments{{Type: pair}, {Type: matrix}, {Type: pair}, {Type: inputs}}
}()

// EncodeCalldata ABI-encodes a proof and its public inputs as verifyProof
// arguments, without the function selector.
func EncodeCalldata(proof ProofPoints, publicInputs []*big.Int) ([]byte, error) {
	if len(publicInputs) != NumPublicInputs {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidPublicInputs, len(publicInputs), NumPublicInputs)
	}

	var inputs [NumPublicInputs]*big.Int
	copy(inputs[:], publicInputs)

	return calldataArguments.Pack(
		words(proof.A),
		[2][2]*big.Int{words(proof.B[0]), words(proof.B[1])},
		words(proof.C),
		inputs,
	)
}

// DecodeCalldata reverses EncodeCalldata.
func DecodeCalldata(data []byte) (ProofPoints, []*big.Int, error) {
	var proof ProofPoints
	out, err := calldataArguments.Unpack(data)
	if err != nil {
		return proof, nil, fmt.Errorf("failed to unpack calldata: %w", err)
	}

	a, okA := out[0].([2]*big.Int)
	b, okB := out[1].([2][2]*big.Int)
	c, okC := out[2].([2]*big.Int)
	in, okIn := out[3].([NumPublicInputs]*big.Int)
	if !okA || !okB || !okC || !okIn {
		return proof, nil, fmt.Errorf("unexpected calldata layout")
	}

	proof.A = hashes(a)
	proof.B = [2][2]common.Hash{hashes(b[0]), hashes(b[1])}
	proof.C = hashes(c)
	return proof, in[:], nil
}

func words(pair [2]common.Hash) [2]*big.Int {
	return [2]*big.Int{pair[0].Big(), pair[1].Big()}
}

func hashes(pair [2]*big.Int) [2]common.Hash {
	return [2]common.Hash{common.BigToHash(pair[0]), common.BigToHash(pair[1])}
}
