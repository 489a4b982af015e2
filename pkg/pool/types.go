package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
	"github.com/Layr-Labs/shielded-pool-go/pkg/verifier"
)

// Config holds the fixed parameters of a pool.
type Config struct {
	// Denomination is the exact value of every deposit and withdrawal.
	Denomination *uint256.Int

	// Hasher is the field hash used for commitment keys and tree nodes.
	Hasher hasher.Hasher
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("pool config cannot be nil")
	}
	if c.Denomination == nil || c.Denomination.IsZero() {
		return fmt.Errorf("denomination must be positive")
	}
	if c.Hasher == nil {
		return fmt.Errorf("hasher cannot be nil")
	}
	return nil
}

// DepositReceipt describes an accepted deposit.
type DepositReceipt struct {
	Commitment common.Hash `json:"commitment"`
	// Key is the tree key H(commitment) the commitment was inserted under.
	Key       common.Hash `json:"key"`
	Root      common.Hash `json:"root"`
	LeafIndex uint64      `json:"leafIndex"`
}

// WithdrawRequest carries the public inputs and proof of a withdrawal.
type WithdrawRequest struct {
	NullifierHash common.Hash          `json:"nullifierHash"`
	Recipient     common.Address       `json:"recipient"`
	Root          common.Hash          `json:"root"`
	Proof         verifier.ProofPoints `json:"proof"`
}

// WithdrawReceipt describes a completed withdrawal.
type WithdrawReceipt struct {
	NullifierHash common.Hash    `json:"nullifierHash"`
	Recipient     common.Address `json:"recipient"`
	Root          common.Hash    `json:"root"`
	Amount        *uint256.Int   `json:"amount"`
	PayoutID      string         `json:"payoutId"`
}

// Stats is a snapshot of pool accounting.
type Stats struct {
	Height        int          `json:"height"`
	Root          common.Hash  `json:"root"`
	Deposits      uint64       `json:"deposits"`
	Withdrawals   uint64       `json:"withdrawals"`
	Roots         uint64       `json:"roots"`
	Denomination  *uint256.Int `json:"denomination"`
	EscrowBalance *uint256.Int `json:"escrowBalance"`
	HashFunction  string       `json:"hashFunction"`
}
