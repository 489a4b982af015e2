package pool

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence"
	"github.com/Layr-Labs/shielded-pool-go/pkg/smt"
)

// txnStorage adapts a persistence transaction to smt.Storage. The tree header
// lives inside the pool state record, which is cached for the lifetime of the
// transaction and written back by flush.
type txnStorage struct {
	txn    persistence.Txn
	state  *persistence.PoolState
	loaded bool
	dirty  bool
}

var _ smt.Storage = (*txnStorage)(nil)

func newTxnStorage(txn persistence.Txn) *txnStorage {
	return &txnStorage{txn: txn}
}

// poolState returns the cached pool state, or nil before initialization.
func (s *txnStorage) poolState() (*persistence.PoolState, error) {
	if !s.loaded {
		state, err := persistence.LoadPoolState(s.txn)
		if err != nil {
			return nil, err
		}
		s.state = state
		s.loaded = true
	}
	return s.state, nil
}

func (s *txnStorage) markDirty() {
	s.dirty = true
}

// flush writes the pool state record if it changed.
func (s *txnStorage) flush() error {
	if !s.dirty || s.state == nil {
		return nil
	}
	if err := persistence.SavePoolState(s.txn, s.state); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *txnStorage) GetNode(hash common.Hash) (*smt.Node, error) {
	data, ok, err := s.txn.Get(persistence.NodeKey(hash))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, smt.ErrNodeNotFound
	}
	return smt.UnmarshalNode(data)
}

func (s *txnStorage) PutNode(hash common.Hash, node *smt.Node) error {
	key := persistence.NodeKey(hash)
	exists, err := s.txn.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	data, err := smt.MarshalNode(node)
	if err != nil {
		return err
	}
	return s.txn.Set(key, data)
}

func (s *txnStorage) LoadState() (*smt.State, error) {
	ps, err := s.poolState()
	if err != nil || ps == nil {
		return nil, err
	}
	return &smt.State{
		Height: ps.Height,
		Root:   ps.Root,
		Leaves: ps.Leaves,
		Roots:  ps.Roots,
	}, nil
}

func (s *txnStorage) SaveState(state *smt.State) error {
	ps, err := s.poolState()
	if err != nil {
		return err
	}
	if ps == nil {
		ps = &persistence.PoolState{}
		s.state = ps
	}
	ps.Height = state.Height
	ps.Root = state.Root
	ps.Leaves = state.Leaves
	ps.Roots = state.Roots
	s.markDirty()
	return nil
}

func (s *txnStorage) AddRoot(root common.Hash, index uint64) error {
	if err := s.txn.Set(persistence.RootKey(root), []byte(strconv.FormatUint(index, 10))); err != nil {
		return err
	}
	return s.txn.Set(persistence.RootIndexKey(index), root.Bytes())
}

func (s *txnStorage) HasRoot(root common.Hash) (bool, error) {
	return s.txn.Has(persistence.RootKey(root))
}

func (s *txnStorage) RootAt(index uint64) (common.Hash, bool, error) {
	data, ok, err := s.txn.Get(persistence.RootIndexKey(index))
	if err != nil || !ok {
		return common.Hash{}, ok, err
	}
	if len(data) != common.HashLength {
		return common.Hash{}, false, fmt.Errorf("corrupt root history entry %d", index)
	}
	return common.BytesToHash(data), true, nil
}

// rootIndex returns the history position of root.
func (s *txnStorage) rootIndex(root common.Hash) (uint64, bool, error) {
	data, ok, err := s.txn.Get(persistence.RootKey(root))
	if err != nil || !ok {
		return 0, ok, err
	}
	index, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt root history index for %s: %w", root.Hex(), err)
	}
	return index, true, nil
}

// commitmentLeaf returns the leaf index a commitment was inserted at.
func (s *txnStorage) commitmentLeaf(commitment common.Hash) (uint64, bool, error) {
	data, ok, err := s.txn.Get(persistence.CommitmentKey(commitment))
	if err != nil || !ok {
		return 0, ok, err
	}
	index, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt commitment record for %s: %w", commitment.Hex(), err)
	}
	return index, true, nil
}

func (s *txnStorage) registerCommitment(commitment common.Hash, leafIndex uint64) error {
	return s.txn.Set(persistence.CommitmentKey(commitment), []byte(strconv.FormatUint(leafIndex, 10)))
}

func (s *txnStorage) isSpent(nullifierHash common.Hash) (bool, error) {
	return s.txn.Has(persistence.NullifierKey(nullifierHash))
}

func (s *txnStorage) markSpent(nullifierHash common.Hash) error {
	return s.txn.Set(persistence.NullifierKey(nullifierHash), []byte{1})
}
