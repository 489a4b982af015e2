package merkle

import "github.com/ethereum/go-ethereum/common"

// HistoryTree is a binary keccak256 Merkle tree over a pool's root history.
// Leaves keep history order; they are never sorted.
type HistoryTree struct {
	// Leaves contains the entry hashes in history order
	Leaves []common.Hash

	// Root is the checkpoint digest
	Root common.Hash

	// levels[0] = leaves, levels[len-1] = root
	levels [][]common.Hash
}

// HistoryProof shows that a tree root appears at a given position of a
// checkpointed history.
type HistoryProof struct {
	// Index is the position of the root in the history (0 is the empty root)
	Index uint64 `json:"index"`

	// TreeRoot is the sparse Merkle tree root recorded at Index
	TreeRoot common.Hash `json:"treeRoot"`

	// Siblings are the sibling hashes from leaf to checkpoint root
	Siblings []common.Hash `json:"siblings"`
}

// Checkpoint summarizes a root history so replicas can compare histories with
// a single digest.
type Checkpoint struct {
	// Count is the number of history entries covered
	Count uint64 `json:"count"`

	// Latest is the most recent tree root in the history
	Latest common.Hash `json:"latest"`

	// Digest is the HistoryTree root
	Digest common.Hash `json:"digest"`
}
