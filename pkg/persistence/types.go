package persistence

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Key layout shared by every backend. Backends may add their own prefix in
// front of these (see the redis KeyPrefix option).
const (
	KeyPoolState     = "meta:state"
	KeySchemaVersion = "meta:schema_version"

	KeyPrefixNode       = "node:"
	KeyPrefixRoot       = "root:"
	KeyPrefixRootIndex  = "rootidx:"
	KeyPrefixCommitment = "commitment:"
	KeyPrefixNullifier  = "nullifier:"

	CurrentSchemaVersion = "v1"
)

// PoolState is the pool's singleton metadata record. It carries the tree
// header alongside the pool's accounting so both commit together.
type PoolState struct {
	// Height is the fixed tree height chosen at initialization.
	Height int `json:"height"`

	// Root is the current tree root.
	Root common.Hash `json:"root"`

	// Leaves is the number of commitments inserted into the tree.
	Leaves uint64 `json:"leaves"`

	// Roots is the number of entries in the root history, including the
	// initial empty root.
	Roots uint64 `json:"roots"`

	// Denomination is the fixed deposit amount.
	Denomination *uint256.Int `json:"denomination"`

	// EscrowBalance is the total held on behalf of unspent deposits.
	EscrowBalance *uint256.Int `json:"escrowBalance"`

	// HashFunction names the hasher the tree was built with. A pool cannot be
	// reopened with a different hasher.
	HashFunction string `json:"hashFunction"`

	// Withdrawals counts successful withdrawals.
	Withdrawals uint64 `json:"withdrawals"`

	// CreatedAt is the Unix timestamp of initialization.
	CreatedAt int64 `json:"createdAt"`
}

// NodeKey returns the store key of a tree node.
func NodeKey(hash common.Hash) string {
	return KeyPrefixNode + hash.Hex()
}

// RootKey returns the store key of a root history membership entry.
func RootKey(root common.Hash) string {
	return KeyPrefixRoot + root.Hex()
}

// RootIndexKey returns the store key of the index-th root history entry.
func RootIndexKey(index uint64) string {
	return KeyPrefixRootIndex + uint256.NewInt(index).Dec()
}

// CommitmentKey returns the store key of a commitment registration.
func CommitmentKey(commitment common.Hash) string {
	return KeyPrefixCommitment + commitment.Hex()
}

// NullifierKey returns the store key of a spent nullifier hash.
func NullifierKey(nullifierHash common.Hash) string {
	return KeyPrefixNullifier + nullifierHash.Hex()
}
