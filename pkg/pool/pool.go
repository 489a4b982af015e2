// Package pool implements a fixed-denomination commitment pool.
//
// Depositors lock one denomination behind an opaque commitment, which is
// inserted into a sparse Merkle tree under the key H(commitment). A withdrawal
// presents a proof, bound to a historical tree root and to a recipient, that
// the caller knows the opening of some deposited commitment; its nullifier
// hash is recorded so each deposit can be redeemed once.
//
// Every state-changing call runs under a single writer lock inside one
// persistence transaction and either completes fully or leaves no trace.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/Layr-Labs/shielded-pool-go/pkg/escrow"
	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
	"github.com/Layr-Labs/shielded-pool-go/pkg/merkle"
	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence"
	"github.com/Layr-Labs/shielded-pool-go/pkg/smt"
	"github.com/Layr-Labs/shielded-pool-go/pkg/verifier"
)

// Pool is a commitment pool bound to a verifier, a payer and a store.
type Pool struct {
	// mu serializes Init, Deposit and Withdraw.
	mu sync.Mutex

	denomination *uint256.Int
	hasher       hasher.Hasher
	verifier     verifier.ProofVerifier
	payer        escrow.Payer
	store        persistence.IPoolPersistence
	logger       *zap.Logger
}

// New creates a pool. The verifier is fixed for the lifetime of the pool.
func New(cfg *Config, v verifier.ProofVerifier, payer escrow.Payer, store persistence.IPoolPersistence, logger *zap.Logger) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("verifier cannot be nil")
	}
	if payer == nil {
		return nil, fmt.Errorf("payer cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		denomination: new(uint256.Int).Set(cfg.Denomination),
		hasher:       cfg.Hasher,
		verifier:     v,
		payer:        payer,
		store:        store,
		logger:       logger,
	}, nil
}

// Init creates the tree with the given height. It can succeed only once per store.
func (p *Pool) Init(ctx context.Context, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	var root common.Hash
	err := p.store.Update(func(txn persistence.Txn) error {
		s := newTxnStorage(txn)
		if err := smt.NewTree(s, p.hasher).Init(height); err != nil {
			return err
		}

		ps, err := s.poolState()
		if err != nil {
			return err
		}
		ps.Denomination = new(uint256.Int).Set(p.denomination)
		ps.EscrowBalance = new(uint256.Int)
		ps.HashFunction = p.hasher.Name()
		ps.CreatedAt = time.Now().Unix()
		root = ps.Root
		s.markDirty()

		return s.flush()
	})
	if err != nil {
		return err
	}

	p.logger.Sugar().Infow("Pool initialized",
		"height", height,
		"denomination", p.denomination.Dec(),
		"hash_function", p.hasher.Name(),
		"root", root.Hex(),
	)
	return nil
}

// Deposit registers commitment and inserts it into the tree. value must equal
// the denomination exactly.
func (p *Pool) Deposit(ctx context.Context, commitment common.Hash, value *uint256.Int) (*DepositReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var receipt *DepositReceipt
	err := p.store.Update(func(txn persistence.Txn) error {
		s := newTxnStorage(txn)
		ps, err := p.openState(s)
		if err != nil {
			return err
		}

		if err := hasher.CheckField(commitment); err != nil {
			return err
		}

		// A registered commitment is reported as a duplicate whatever value is attached.
		_, exists, err := s.commitmentLeaf(commitment)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicateCommitment, commitment.Hex())
		}
		if value == nil || !value.Eq(p.denomination) {
			return fmt.Errorf("%w: got %s, want %s", ErrValueMismatch, decOrNil(value), p.denomination.Dec())
		}

		key, err := p.commitmentKey(commitment)
		if err != nil {
			return err
		}

		leafIndex := ps.Leaves
		root, err := smt.NewTree(s, p.hasher).Add(key, commitment)
		if err != nil {
			if errors.Is(err, smt.ErrDuplicateKey) {
				return fmt.Errorf("%w: key %s already in tree", ErrDuplicateCommitment, key.Hex())
			}
			return err
		}

		if err := s.registerCommitment(commitment, leafIndex); err != nil {
			return err
		}

		ps.EscrowBalance = new(uint256.Int).Add(ps.EscrowBalance, p.denomination)
		s.markDirty()
		if err := s.flush(); err != nil {
			return err
		}

		receipt = &DepositReceipt{
			Commitment: commitment,
			Key:        key,
			Root:       root,
			LeafIndex:  leafIndex,
		}
		return nil
	})
	if err != nil {
		p.logger.Sugar().Debugw("Deposit rejected", "commitment", commitment.Hex(), "error", err)
		return nil, err
	}

	p.logger.Sugar().Infow("Deposit accepted",
		"commitment", commitment.Hex(),
		"leaf_index", receipt.LeafIndex,
		"root", receipt.Root.Hex(),
	)
	return receipt, nil
}

// Withdraw verifies req and pays one denomination to req.Recipient.
//
// The nullifier hash is marked spent before the payout is prepared; if the
// payout cannot be prepared the whole withdrawal, including the mark, is
// rolled back and may be retried.
func (p *Pool) Withdraw(ctx context.Context, req *WithdrawRequest) (*WithdrawReceipt, error) {
	if req == nil {
		return nil, fmt.Errorf("withdraw request cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payout escrow.Payout
	err := p.store.Update(func(txn persistence.Txn) error {
		// Stores with optimistic transactions may run this more than once.
		if payout != nil {
			payout.Abort()
			payout = nil
		}

		s := newTxnStorage(txn)
		ps, err := p.openState(s)
		if err != nil {
			return err
		}

		if err := hasher.CheckField(req.NullifierHash, req.Root); err != nil {
			return err
		}

		spent, err := s.isSpent(req.NullifierHash)
		if err != nil {
			return err
		}
		if spent {
			return fmt.Errorf("%w: %s", ErrNullifierReuse, req.NullifierHash.Hex())
		}

		known, err := s.HasRoot(req.Root)
		if err != nil {
			return err
		}
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownRoot, req.Root.Hex())
		}

		inputs := verifier.PublicInputs(req.Root, req.NullifierHash, req.Recipient)
		ok, err := p.verifier.Verify(req.Proof, inputs)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedProof, err)
		}
		if !ok {
			return ErrInvalidProof
		}

		if ps.EscrowBalance == nil || ps.EscrowBalance.Lt(p.denomination) {
			return ErrInsufficientEscrow
		}

		if err := s.markSpent(req.NullifierHash); err != nil {
			return err
		}

		payout, err = p.payer.PreparePayout(ctx, req.Recipient, p.denomination)
		if err != nil {
			payout = nil
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}

		ps.EscrowBalance = new(uint256.Int).Sub(ps.EscrowBalance, p.denomination)
		ps.Withdrawals++
		s.markDirty()
		return s.flush()
	})
	if err != nil {
		if payout != nil {
			payout.Abort()
		}
		p.logger.Sugar().Debugw("Withdrawal rejected",
			"nullifier_hash", req.NullifierHash.Hex(),
			"recipient", req.Recipient.Hex(),
			"error", err,
		)
		return nil, err
	}

	if err := payout.Commit(); err != nil {
		// The nullifier is spent in the store but the payout could not be
		// finalized; this needs operator attention.
		p.logger.Sugar().Errorw("Payout commit failed after withdrawal was recorded",
			"payout_id", payout.ID(),
			"nullifier_hash", req.NullifierHash.Hex(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	p.logger.Sugar().Infow("Withdrawal completed",
		"nullifier_hash", req.NullifierHash.Hex(),
		"recipient", req.Recipient.Hex(),
		"root", req.Root.Hex(),
		"payout_id", payout.ID(),
	)

	return &WithdrawReceipt{
		NullifierHash: req.NullifierHash,
		Recipient:     req.Recipient,
		Root:          req.Root,
		Amount:        new(uint256.Int).Set(p.denomination),
		PayoutID:      payout.ID(),
	}, nil
}

// Root returns the current tree root.
func (p *Pool) Root() (common.Hash, error) {
	var root common.Hash
	err := p.view(func(s *txnStorage, ps *persistence.PoolState) error {
		root = ps.Root
		return nil
	})
	return root, err
}

// Height returns the tree height fixed at Init.
func (p *Pool) Height() (int, error) {
	var height int
	err := p.view(func(s *txnStorage, ps *persistence.PoolState) error {
		height = ps.Height
		return nil
	})
	return height, err
}

// Denomination returns the fixed deposit amount.
func (p *Pool) Denomination() *uint256.Int {
	return new(uint256.Int).Set(p.denomination)
}

// HasCommitment reports whether commitment has been deposited.
func (p *Pool) HasCommitment(commitment common.Hash) (bool, error) {
	var exists bool
	err := p.view(func(s *txnStorage, _ *persistence.PoolState) error {
		var err error
		_, exists, err = s.commitmentLeaf(commitment)
		return err
	})
	return exists, err
}

// IsSpent reports whether nullifierHash has been used by a withdrawal.
func (p *Pool) IsSpent(nullifierHash common.Hash) (bool, error) {
	var spent bool
	err := p.view(func(s *txnStorage, _ *persistence.PoolState) error {
		var err error
		spent, err = s.isSpent(nullifierHash)
		return err
	})
	return spent, err
}

// IsKnownRoot reports whether root was ever the tree root.
func (p *Pool) IsKnownRoot(root common.Hash) (bool, error) {
	var known bool
	err := p.view(func(s *txnStorage, _ *persistence.PoolState) error {
		var err error
		known, err = s.HasRoot(root)
		return err
	})
	return known, err
}

// Proof returns the tree proof for commitment's key H(commitment). It is an
// inclusion proof if the commitment was deposited and an exclusion proof
// otherwise.
func (p *Pool) Proof(commitment common.Hash) (*smt.Proof, error) {
	if err := hasher.CheckField(commitment); err != nil {
		return nil, err
	}
	key, err := p.commitmentKey(commitment)
	if err != nil {
		return nil, err
	}
	return p.ProofByKey(key)
}

// ProofByKey returns the tree proof for a raw tree key.
func (p *Pool) ProofByKey(key common.Hash) (*smt.Proof, error) {
	var proof *smt.Proof
	err := p.view(func(s *txnStorage, _ *persistence.PoolState) error {
		var err error
		proof, err = smt.NewTree(s, p.hasher).Proof(key)
		return err
	})
	return proof, err
}

// ProofAt returns the tree proof for commitment against a historical root.
func (p *Pool) ProofAt(root, commitment common.Hash) (*smt.Proof, error) {
	key, err := p.commitmentKey(commitment)
	if err != nil {
		return nil, err
	}

	var proof *smt.Proof
	err = p.view(func(s *txnStorage, _ *persistence.PoolState) error {
		known, err := s.HasRoot(root)
		if err != nil {
			return err
		}
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownRoot, root.Hex())
		}
		proof, err = smt.NewTree(s, p.hasher).ProofAt(root, key)
		return err
	})
	return proof, err
}

// EscrowBalance returns the value held for unspent deposits.
func (p *Pool) EscrowBalance() (*uint256.Int, error) {
	var balance *uint256.Int
	err := p.view(func(_ *txnStorage, ps *persistence.PoolState) error {
		balance = new(uint256.Int).Set(ps.EscrowBalance)
		return nil
	})
	return balance, err
}

// RootHistory returns every root the tree has had, oldest first.
func (p *Pool) RootHistory() ([]common.Hash, error) {
	var roots []common.Hash
	err := p.view(func(s *txnStorage, _ *persistence.PoolState) error {
		var err error
		roots, err = smt.NewTree(s, p.hasher).RootHistory()
		return err
	})
	return roots, err
}

// Checkpoint commits to the current root history with a keccak256 digest.
func (p *Pool) Checkpoint() (*merkle.Checkpoint, error) {
	roots, err := p.RootHistory()
	if err != nil {
		return nil, err
	}
	tree, err := merkle.BuildHistoryTree(roots)
	if err != nil {
		return nil, err
	}
	return tree.Checkpoint(roots[len(roots)-1]), nil
}

// HistoryProof proves that root appears in the checkpointed root history.
func (p *Pool) HistoryProof(root common.Hash) (*merkle.HistoryProof, *merkle.Checkpoint, error) {
	var (
		roots []common.Hash
		index uint64
	)
	err := p.view(func(s *txnStorage, _ *persistence.PoolState) error {
		var (
			ok  bool
			err error
		)
		index, ok, err = s.rootIndex(root)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRoot, root.Hex())
		}
		roots, err = smt.NewTree(s, p.hasher).RootHistory()
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	tree, err := merkle.BuildHistoryTree(roots)
	if err != nil {
		return nil, nil, err
	}
	proof, err := tree.GenerateProof(index, root)
	if err != nil {
		return nil, nil, err
	}
	return proof, tree.Checkpoint(roots[len(roots)-1]), nil
}

// Stats returns a snapshot of pool accounting.
func (p *Pool) Stats() (*Stats, error) {
	var stats *Stats
	err := p.view(func(_ *txnStorage, ps *persistence.PoolState) error {
		stats = &Stats{
			Height:        ps.Height,
			Root:          ps.Root,
			Deposits:      ps.Leaves,
			Withdrawals:   ps.Withdrawals,
			Roots:         ps.Roots,
			Denomination:  new(uint256.Int).Set(ps.Denomination),
			EscrowBalance: new(uint256.Int).Set(ps.EscrowBalance),
			HashFunction:  ps.HashFunction,
		}
		return nil
	})
	return stats, err
}

// CommitmentKey returns the tree key H(commitment).
func (p *Pool) CommitmentKey(commitment common.Hash) (common.Hash, error) {
	return p.commitmentKey(commitment)
}

func (p *Pool) commitmentKey(commitment common.Hash) (common.Hash, error) {
	return hasher.HashWords(p.hasher, commitment)
}

// openState loads the pool state and checks it was created with this pool's
// parameters.
func (p *Pool) openState(s *txnStorage) (*persistence.PoolState, error) {
	ps, err := s.poolState()
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, ErrNotInitialized
	}
	if ps.HashFunction != p.hasher.Name() {
		return nil, fmt.Errorf("%w: store uses hash function %q, pool uses %q", ErrConfigMismatch, ps.HashFunction, p.hasher.Name())
	}
	if ps.Denomination == nil || !ps.Denomination.Eq(p.denomination) {
		return nil, fmt.Errorf("%w: store denomination %s, pool denomination %s", ErrConfigMismatch, decOrNil(ps.Denomination), p.denomination.Dec())
	}
	if ps.EscrowBalance == nil {
		ps.EscrowBalance = new(uint256.Int)
	}
	return ps, nil
}

func (p *Pool) view(fn func(s *txnStorage, ps *persistence.PoolState) error) error {
	return p.store.View(func(txn persistence.Txn) error {
		s := newTxnStorage(txn)
		ps, err := p.openState(s)
		if err != nil {
			return err
		}
		return fn(s, ps)
	})
}

func decOrNil(v *uint256.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.Dec()
}
