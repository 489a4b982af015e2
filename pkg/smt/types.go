package smt

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// MaxHeight is the deepest supported tree: one level per bit of a 32-byte key.
const MaxHeight = 256

var (
	// ErrDuplicateKey is returned when a key already occupies a leaf.
	ErrDuplicateKey = errors.New("key already exists in the tree")

	// ErrCapacityExceeded is returned when two keys share every path bit the tree
	// height can distinguish. The tree must be re-created with a larger height.
	ErrCapacityExceeded = errors.New("tree height exhausted: keys collide on every path bit")

	// ErrAlreadyInitialized is returned by Init on storage that already holds a tree.
	ErrAlreadyInitialized = errors.New("tree already initialized")

	// ErrNotInitialized is returned by every operation before Init.
	ErrNotInitialized = errors.New("tree not initialized")

	// ErrInvalidHeight is returned by Init for heights outside 1..MaxHeight.
	ErrInvalidHeight = errors.New("invalid tree height")

	// ErrNodeNotFound is returned by Storage implementations for unknown digests.
	ErrNodeNotFound = errors.New("node not found")
)

// EmptyHash is the digest of every empty subtree, at every depth.
var EmptyHash = common.Hash{}

// NodeType discriminates the node kinds stored in the arena.
type NodeType uint8

const (
	NodeEmpty NodeType = iota
	NodeMiddle
	NodeLeaf
)

func (t NodeType) String() string {
	switch t {
	case NodeEmpty:
		return "empty"
	case NodeMiddle:
		return "middle"
	case NodeLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Node is one entry of the content-addressed node arena. Middle nodes use Left
// and Right, leaves use Key and Value.
type Node struct {
	Type  NodeType
	Left  common.Hash
	Right common.Hash
	Key   common.Hash
	Value common.Hash
}

// State is the persisted header of a tree.
type State struct {
	Height int         `json:"height"`
	Root   common.Hash `json:"root"`
	Leaves uint64      `json:"leaves"`
	Roots  uint64      `json:"roots"`
}

// Proof is an inclusion or exclusion proof for Key against Root.
//
// Siblings[d] is the sibling of the path node at depth d+1, so Siblings[0] is
// a child of the root. Entries below the terminal node are EmptyHash.
//
// When Existence is false the path ends either in an empty subtree
// (AuxExistence false) or in the leaf of another key that shares the path
// prefix (AuxExistence true, AuxKey/AuxValue set).
type Proof struct {
	Root         common.Hash   `json:"root"`
	Siblings     []common.Hash `json:"siblings"`
	Existence    bool          `json:"existence"`
	Key          common.Hash   `json:"key"`
	Value        common.Hash   `json:"value"`
	AuxExistence bool          `json:"auxExistence"`
	AuxKey       common.Hash   `json:"auxKey"`
	AuxValue     common.Hash   `json:"auxValue"`
}
