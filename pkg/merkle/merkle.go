// Package merkle commits to a pool's ordered root history with a keccak256
// binary Merkle tree, so two replicas (or an on-chain contract) can compare
// histories through one digest and prove single entries against it.
package merkle

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// BuildHistoryTree creates a binary merkle tree from a root history.
//
// The tree uses keccak256 hashing for Solidity compatibility.
// If there's an odd number of nodes at any level, the last node is duplicated.
func BuildHistoryTree(roots []common.Hash) (*HistoryTree, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("cannot build history tree from empty root history")
	}

	leaves := make([]common.Hash, len(roots))
	for i, root := range roots {
		leaves[i] = HashHistoryEntry(uint64(i), root)
	}

	levels := [][]common.Hash{leaves}
	current := leaves
	for len(current) > 1 {
		next := make([]common.Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			left := current[i]
			right := left
			if i+1 < len(current) {
				right = current[i+1]
			}
			next = append(next, hashPair(left, right))
		}
		levels = append(levels, next)
		current = next
	}

	return &HistoryTree{
		Leaves: leaves,
		Root:   current[0],
		levels: levels,
	}, nil
}

// Checkpoint summarizes the tree. latest must be the last history entry.
func (ht *HistoryTree) Checkpoint(latest common.Hash) *Checkpoint {
	return &Checkpoint{
		Count:  uint64(len(ht.Leaves)),
		Latest: latest,
		Digest: ht.Root,
	}
}

// GenerateProof creates a proof for the history entry at index.
func (ht *HistoryTree) GenerateProof(index uint64, treeRoot common.Hash) (*HistoryProof, error) {
	if index >= uint64(len(ht.Leaves)) {
		return nil, fmt.Errorf("history index %d out of bounds (history has %d entries)", index, len(ht.Leaves))
	}
	if HashHistoryEntry(index, treeRoot) != ht.Leaves[index] {
		return nil, fmt.Errorf("root %s is not history entry %d", treeRoot.Hex(), index)
	}

	siblings := make([]common.Hash, 0, len(ht.levels)-1)
	pos := int(index)
	for level := 0; level < len(ht.levels)-1; level++ {
		nodes := ht.levels[level]

		sibling := pos ^ 1
		if sibling >= len(nodes) {
			sibling = pos
		}
		siblings = append(siblings, nodes[sibling])
		pos /= 2
	}

	return &HistoryProof{
		Index:    index,
		TreeRoot: treeRoot,
		Siblings: siblings,
	}, nil
}

// VerifyProof reports whether proof places its tree root at proof.Index in
// the history committed to by digest.
func VerifyProof(proof *HistoryProof, digest common.Hash) bool {
	if proof == nil {
		return false
	}

	current := HashHistoryEntry(proof.Index, proof.TreeRoot)
	pos := proof.Index
	for _, sibling := range proof.Siblings {
		if pos%2 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		pos /= 2
	}

	return current == digest
}

// HashHistoryEntry returns keccak256(abi.encodePacked(uint64 index, bytes32 root)).
func HashHistoryEntry(index uint64, root common.Hash) common.Hash {
	data := make([]byte, 8+common.HashLength)
	binary.BigEndian.PutUint64(data[:8], index)
	copy(data[8:], root[:])
	return crypto.Keccak256Hash(data)
}

// hashPair computes keccak256(left || right).
func hashPair(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}
