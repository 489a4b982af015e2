// Package smt implements a fixed-height sparse Merkle tree over a
// content-addressed node arena.
//
// The tree is compressed: a leaf is stored at the shallowest depth where its
// path prefix is unique, and empty subtrees are the constant EmptyHash at every
// depth. Middle nodes hash as H(left, right) and leaves as H(key, value, 1).
// Because nodes are addressed by digest, every historical root stays readable
// and successive roots share all unchanged nodes.
package smt

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
)

// leafMarker domain-separates leaf digests from middle-node digests.
var leafMarker = big.NewInt(1)

// Tree is a sparse Merkle tree bound to a Storage. It holds no state of its own,
// so a Tree can be created per transaction over transactional storage.
type Tree struct {
	storage Storage
	hasher  hasher.Hasher
}

// NewTree binds a tree to storage and a hash function.
func NewTree(storage Storage, h hasher.Hasher) *Tree {
	return &Tree{storage: storage, hasher: h}
}

// Init creates an empty tree of the given height and records the empty root as
// the first root history entry.
func (t *Tree) Init(height int) error {
	if height < 1 || height > MaxHeight {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidHeight, height, MaxHeight)
	}

	existing, err := t.storage.LoadState()
	if err != nil {
		return fmt.Errorf("failed to load tree state: %w", err)
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}

	if err := t.storage.AddRoot(EmptyHash, 0); err != nil {
		return fmt.Errorf("failed to record initial root: %w", err)
	}
	return t.storage.SaveState(&State{
		Height: height,
		Root:   EmptyHash,
		Roots:  1,
	})
}

// Add inserts key -> value and returns the new root. On error the storage is
// left untouched.
func (t *Tree) Add(key, value common.Hash) (common.Hash, error) {
	if err := hasher.CheckField(key, value); err != nil {
		return common.Hash{}, err
	}

	state, err := t.state()
	if err != nil {
		return common.Hash{}, err
	}

	leaf := &Node{Type: NodeLeaf, Key: key, Value: value}
	leafHash, err := t.hashNode(leaf)
	if err != nil {
		return common.Hash{}, err
	}

	// New nodes are staged and only written once the whole path succeeded.
	staged := make(map[common.Hash]*Node)
	newRoot, err := t.insert(staged, state.Root, leaf, leafHash, 0, state.Height)
	if err != nil {
		return common.Hash{}, err
	}

	for hash, node := range staged {
		if err := t.storage.PutNode(hash, node); err != nil {
			return common.Hash{}, fmt.Errorf("failed to store node %s: %w", hash.Hex(), err)
		}
	}
	if err := t.storage.AddRoot(newRoot, state.Roots); err != nil {
		return common.Hash{}, fmt.Errorf("failed to record root: %w", err)
	}

	state.Root = newRoot
	state.Leaves++
	state.Roots++
	if err := t.storage.SaveState(state); err != nil {
		return common.Hash{}, fmt.Errorf("failed to save tree state: %w", err)
	}
	return newRoot, nil
}

func (t *Tree) insert(staged map[common.Hash]*Node, at common.Hash, leaf *Node, leafHash common.Hash, depth, height int) (common.Hash, error) {
	node, err := t.node(at)
	if err != nil {
		return common.Hash{}, err
	}

	switch node.Type {
	case NodeEmpty:
		staged[leafHash] = leaf
		return leafHash, nil

	case NodeLeaf:
		if node.Key == leaf.Key {
			return common.Hash{}, fmt.Errorf("%w: %s", ErrDuplicateKey, leaf.Key.Hex())
		}
		return t.pushLeaf(staged, leaf, leafHash, node, at, depth, height)

	case NodeMiddle:
		if depth >= height {
			return common.Hash{}, fmt.Errorf("corrupt tree: middle node %s at depth %d", at.Hex(), depth)
		}
		left, right := node.Left, node.Right
		if PathBit(leaf.Key, depth) == 1 {
			right, err = t.insert(staged, right, leaf, leafHash, depth+1, height)
		} else {
			left, err = t.insert(staged, left, leaf, leafHash, depth+1, height)
		}
		if err != nil {
			return common.Hash{}, err
		}
		return t.stageMiddle(staged, left, right)

	default:
		return common.Hash{}, fmt.Errorf("corrupt tree: unknown node type %d at %s", node.Type, at.Hex())
	}
}

// pushLeaf replaces the leaf oldLeaf sitting at depth with the subtree holding
// both leaves, splitting at the first depth where their paths diverge.
func (t *Tree) pushLeaf(staged map[common.Hash]*Node, newLeaf *Node, newHash common.Hash, oldLeaf *Node, oldHash common.Hash, depth, height int) (common.Hash, error) {
	if depth >= height {
		return common.Hash{}, fmt.Errorf("%w: height %d", ErrCapacityExceeded, height)
	}

	newBit := PathBit(newLeaf.Key, depth)
	oldBit := PathBit(oldLeaf.Key, depth)

	if newBit == oldBit {
		child, err := t.pushLeaf(staged, newLeaf, newHash, oldLeaf, oldHash, depth+1, height)
		if err != nil {
			return common.Hash{}, err
		}
		if newBit == 1 {
			return t.stageMiddle(staged, EmptyHash, child)
		}
		return t.stageMiddle(staged, child, EmptyHash)
	}

	staged[newHash] = newLeaf
	if newBit == 1 {
		return t.stageMiddle(staged, oldHash, newHash)
	}
	return t.stageMiddle(staged, newHash, oldHash)
}

func (t *Tree) stageMiddle(staged map[common.Hash]*Node, left, right common.Hash) (common.Hash, error) {
	n := &Node{Type: NodeMiddle, Left: left, Right: right}
	hash, err := t.hashNode(n)
	if err != nil {
		return common.Hash{}, err
	}
	staged[hash] = n
	return hash, nil
}

// Proof returns an inclusion proof for key if it is present, otherwise an
// exclusion proof describing the node that occupies key's path.
func (t *Tree) Proof(key common.Hash) (*Proof, error) {
	state, err := t.state()
	if err != nil {
		return nil, err
	}
	return t.proofFrom(state.Root, state.Height, key)
}

// ProofAt builds a proof for key against a historical root. Nodes are never
// deleted, so every root in the history can still be walked.
func (t *Tree) ProofAt(root, key common.Hash) (*Proof, error) {
	state, err := t.state()
	if err != nil {
		return nil, err
	}
	known, err := t.storage.HasRoot(root)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("root %s is not in the root history", root.Hex())
	}
	return t.proofFrom(root, state.Height, key)
}

func (t *Tree) proofFrom(root common.Hash, height int, key common.Hash) (*Proof, error) {
	proof := &Proof{
		Root:     root,
		Siblings: make([]common.Hash, height),
		Key:      key,
	}

	at := root
	for depth := 0; depth <= height; depth++ {
		node, err := t.node(at)
		if err != nil {
			return nil, err
		}

		switch node.Type {
		case NodeEmpty:
			return proof, nil
		case NodeLeaf:
			if node.Key == key {
				proof.Existence = true
				proof.Value = node.Value
			} else {
				proof.AuxExistence = true
				proof.AuxKey = node.Key
				proof.AuxValue = node.Value
			}
			return proof, nil
		case NodeMiddle:
			if depth >= height {
				return nil, fmt.Errorf("corrupt tree: middle node %s at depth %d", at.Hex(), depth)
			}
			if PathBit(key, depth) == 1 {
				proof.Siblings[depth] = node.Left
				at = node.Right
			} else {
				proof.Siblings[depth] = node.Right
				at = node.Left
			}
		default:
			return nil, fmt.Errorf("corrupt tree: unknown node type %d at %s", node.Type, at.Hex())
		}
	}
	return nil, fmt.Errorf("corrupt tree: path for %s deeper than height %d", key.Hex(), height)
}

// Get returns the value stored under key.
func (t *Tree) Get(key common.Hash) (common.Hash, bool, error) {
	proof, err := t.Proof(key)
	if err != nil {
		return common.Hash{}, false, err
	}
	return proof.Value, proof.Existence, nil
}

// IsKnownRoot reports whether root was ever the root of this tree.
func (t *Tree) IsKnownRoot(root common.Hash) (bool, error) {
	if _, err := t.state(); err != nil {
		return false, err
	}
	return t.storage.HasRoot(root)
}

// Root returns the current root.
func (t *Tree) Root() (common.Hash, error) {
	state, err := t.state()
	if err != nil {
		return common.Hash{}, err
	}
	return state.Root, nil
}

// Height returns the fixed tree height.
func (t *Tree) Height() (int, error) {
	state, err := t.state()
	if err != nil {
		return 0, err
	}
	return state.Height, nil
}

// Size returns the number of leaves.
func (t *Tree) Size() (uint64, error) {
	state, err := t.state()
	if err != nil {
		return 0, err
	}
	return state.Leaves, nil
}

// RootHistory returns every root the tree has had, oldest first. The first
// entry is the empty root.
func (t *Tree) RootHistory() ([]common.Hash, error) {
	state, err := t.state()
	if err != nil {
		return nil, err
	}

	roots := make([]common.Hash, 0, state.Roots)
	for i := uint64(0); i < state.Roots; i++ {
		root, ok, err := t.storage.RootAt(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("root history entry %d missing", i)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func (t *Tree) state() (*State, error) {
	state, err := t.storage.LoadState()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree state: %w", err)
	}
	if state == nil {
		return nil, ErrNotInitialized
	}
	return state, nil
}

func (t *Tree) node(hash common.Hash) (*Node, error) {
	if hash == EmptyHash {
		return &Node{Type: NodeEmpty}, nil
	}
	n, err := t.storage.GetNode(hash)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, fmt.Errorf("corrupt tree: %w: %s", err, hash.Hex())
		}
		return nil, err
	}
	return n, nil
}

func (t *Tree) hashNode(n *Node) (common.Hash, error) {
	return HashNode(t.hasher, n)
}

// HashNode returns the digest of n under h.
func HashNode(h hasher.Hasher, n *Node) (common.Hash, error) {
	switch n.Type {
	case NodeEmpty:
		return EmptyHash, nil
	case NodeMiddle:
		return hasher.HashWords(h, n.Left, n.Right)
	case NodeLeaf:
		return HashLeaf(h, n.Key, n.Value)
	default:
		return common.Hash{}, fmt.Errorf("cannot hash node of type %d", n.Type)
	}
}

// HashLeaf returns H(key, value, 1).
func HashLeaf(h hasher.Hasher, key, value common.Hash) (common.Hash, error) {
	return hasher.HashWords(h, key, value, common.BigToHash(leafMarker))
}
