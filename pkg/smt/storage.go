package smt

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Storage is the backing store of a Tree: the node arena, the tree header and
// the root history. Implementations used inside a transaction only need to be
// consistent within that transaction.
type Storage interface {
	// GetNode returns the node stored under hash or ErrNodeNotFound.
	GetNode(hash common.Hash) (*Node, error)
	// PutNode stores node under its digest. Rewriting the same digest is a no-op.
	PutNode(hash common.Hash, node *Node) error

	// LoadState returns the tree header, or nil if the tree was never initialized.
	LoadState() (*State, error)
	// SaveState overwrites the tree header.
	SaveState(state *State) error

	// AddRoot records root as entry index of the root history.
	AddRoot(root common.Hash, index uint64) error
	// HasRoot reports whether root is in the root history.
	HasRoot(root common.Hash) (bool, error)
	// RootAt returns history entry index.
	RootAt(index uint64) (common.Hash, bool, error)
}

// MemoryStorage is a map-backed Storage.
type MemoryStorage struct {
	mu      sync.RWMutex
	nodes   map[common.Hash]*Node
	state   *State
	roots   map[common.Hash]uint64
	history []common.Hash
}

// NewMemoryStorage creates an empty in-memory Storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nodes: make(map[common.Hash]*Node),
		roots: make(map[common.Hash]uint64),
	}
}

func (m *MemoryStorage) GetNode(hash common.Hash) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[hash]
	if !ok {
		return nil, ErrNodeNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *MemoryStorage) PutNode(hash common.Hash, node *Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *node
	m.nodes[hash] = &cp
	return nil
}

func (m *MemoryStorage) LoadState() (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state == nil {
		return nil, nil
	}
	cp := *m.state
	return &cp, nil
}

func (m *MemoryStorage) SaveState(state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *state
	m.state = &cp
	return nil
}

func (m *MemoryStorage) AddRoot(root common.Hash, index uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roots[root]; !ok {
		m.roots[root] = index
	}
	for uint64(len(m.history)) <= index {
		m.history = append(m.history, common.Hash{})
	}
	m.history[index] = root
	return nil
}

func (m *MemoryStorage) HasRoot(root common.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.roots[root]
	return ok, nil
}

func (m *MemoryStorage) RootAt(index uint64) (common.Hash, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if index >= uint64(len(m.history)) {
		return common.Hash{}, false, nil
	}
	return m.history[index], true, nil
}
