// Package witness assembles the private and public inputs a withdrawal prover
// needs from a note and a tree proof.
package witness

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/shielded-pool-go/pkg/note"
	"github.com/Layr-Labs/shielded-pool-go/pkg/smt"
)

var (
	// ErrNotIncluded is returned when the proof does not show the note's
	// commitment in the tree.
	ErrNotIncluded = errors.New("proof does not include the note commitment")

	// ErrProofMismatch is returned when the proof does not reconstruct its root.
	ErrProofMismatch = errors.New("tree proof does not verify")
)

// Input holds circuit inputs as decimal strings, ready for a prover.
type Input struct {
	Root          string   `json:"root"`
	NullifierHash string   `json:"nullifierHash"`
	Recipient     string   `json:"recipient"`
	Secret        string   `json:"secret"`
	Nullifier     string   `json:"nullifier"`
	Siblings      []string `json:"siblings"`
	PathBits      []string `json:"pathBits"`
	AuxKey        string   `json:"auxKey"`
	AuxValue      string   `json:"auxValue"`
	AuxIsEmpty    string   `json:"auxIsEmpty"`
	IsExclusion   string   `json:"isExclusion"`
}

// Build checks that proof includes n's commitment and returns the withdrawal
// inputs binding it to recipient.
func Build(n *note.Note, recipient common.Address, proof *smt.Proof) (*Input, error) {
	if n == nil {
		return nil, fmt.Errorf("note cannot be nil")
	}
	if proof == nil {
		return nil, fmt.Errorf("proof cannot be nil")
	}

	h, err := n.Hasher()
	if err != nil {
		return nil, err
	}
	commitment, err := n.Commitment()
	if err != nil {
		return nil, err
	}
	key, err := n.CommitmentKey()
	if err != nil {
		return nil, err
	}
	nullifierHash, err := n.NullifierHash()
	if err != nil {
		return nil, err
	}

	if !proof.Existence || proof.Key != key || proof.Value != commitment {
		return nil, fmt.Errorf("%w: key %s", ErrNotIncluded, key.Hex())
	}
	ok, err := smt.VerifyProof(h, proof, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProofMismatch
	}

	height := len(proof.Siblings)
	in := &Input{
		Root:          dec(proof.Root),
		NullifierHash: dec(nullifierHash),
		Recipient:     new(big.Int).SetBytes(recipient.Bytes()).String(),
		Secret:        dec(n.SecretWord()),
		Nullifier:     dec(n.NullifierWord()),
		Siblings:      make([]string, height),
		PathBits:      make([]string, height),
		AuxKey:        "0",
		AuxValue:      "0",
		AuxIsEmpty:    "0",
		IsExclusion:   "0",
	}
	for i, s := range proof.Siblings {
		in.Siblings[i] = dec(s)
	}
	for i, b := range smt.PathBits(key, height) {
		in.PathBits[i] = fmt.Sprint(b)
	}
	return in, nil
}

// JSON renders the inputs in the format provers read.
func (in *Input) JSON() ([]byte, error) {
	return json.MarshalIndent(in, "", "  ")
}

func dec(h common.Hash) string {
	return h.Big().String()
}
