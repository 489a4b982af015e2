package smt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
)

// TerminalDepth returns the depth of the node a proof's path ends at. In an
// append-only compressed tree the parent of the terminal node always has a
// non-empty sibling, so the terminal depth is one past the deepest non-empty
// sibling.
func (p *Proof) TerminalDepth() int {
	for d := len(p.Siblings) - 1; d >= 0; d-- {
		if p.Siblings[d] != EmptyHash {
			return d + 1
		}
	}
	return 0
}

// VerifyProof recomputes the root committed to by proof for key and reports
// whether it matches proof.Root. Inclusion proofs must carry Existence; all
// other proofs are checked as exclusion proofs. Malformed proofs return false
// together with a descriptive error.
func VerifyProof(h hasher.Hasher, proof *Proof, key common.Hash) (bool, error) {
	if proof == nil {
		return false, fmt.Errorf("nil proof")
	}
	if len(proof.Siblings) == 0 || len(proof.Siblings) > MaxHeight {
		return false, fmt.Errorf("proof has %d siblings", len(proof.Siblings))
	}
	if proof.Key != key {
		return false, fmt.Errorf("proof is for key %s, not %s", proof.Key.Hex(), key.Hex())
	}

	depth := proof.TerminalDepth()

	var (
		current common.Hash
		err     error
	)
	switch {
	case proof.Existence:
		if proof.AuxExistence {
			return false, fmt.Errorf("proof claims both inclusion and an auxiliary leaf")
		}
		current, err = HashLeaf(h, key, proof.Value)
	case proof.AuxExistence:
		if proof.AuxKey == key {
			return false, fmt.Errorf("auxiliary leaf has the proven key")
		}
		if !sharesPrefix(proof.AuxKey, key, depth) {
			return false, fmt.Errorf("auxiliary leaf is not on the path of %s", key.Hex())
		}
		current, err = HashLeaf(h, proof.AuxKey, proof.AuxValue)
	default:
		current = EmptyHash
	}
	if err != nil {
		return false, err
	}

	for d := depth - 1; d >= 0; d-- {
		sibling := proof.Siblings[d]
		if PathBit(key, d) == 1 {
			current, err = hasher.HashWords(h, sibling, current)
		} else {
			current, err = hasher.HashWords(h, current, sibling)
		}
		if err != nil {
			return false, err
		}
	}

	return current == proof.Root, nil
}
