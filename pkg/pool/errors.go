package pool

import (
	"errors"

	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
	"github.com/Layr-Labs/shielded-pool-go/pkg/smt"
)

// Validation errors. None of them change pool state.
var (
	ErrValueMismatch       = errors.New("deposit value does not equal the pool denomination")
	ErrDuplicateCommitment = errors.New("commitment already deposited")
	ErrNullifierReuse      = errors.New("nullifier hash already spent")
	ErrUnknownRoot         = errors.New("root is not in the root history")
	ErrInvalidProof        = errors.New("withdrawal proof rejected")
	ErrMalformedProof      = errors.New("withdrawal proof is malformed")
	ErrInvalidFieldElement = hasher.ErrInvalidFieldElement
	ErrAlreadyInitialized  = smt.ErrAlreadyInitialized
	ErrNotInitialized      = smt.ErrNotInitialized
	ErrInvalidHeight       = smt.ErrInvalidHeight
)

// ErrCapacityExceeded is returned when a commitment key cannot be placed
// because the tree height cannot separate it from an existing key.
var ErrCapacityExceeded = smt.ErrCapacityExceeded

// Transfer errors. The whole withdrawal is rolled back.
var (
	ErrTransferFailed     = errors.New("transfer to recipient failed")
	ErrInsufficientEscrow = errors.New("escrow balance below one denomination")
)

// ErrConfigMismatch is returned when a store was initialized with a different
// denomination or hash function than the pool opening it.
var ErrConfigMismatch = errors.New("pool configuration does not match stored pool")

var validationErrors = []error{
	ErrValueMismatch,
	ErrDuplicateCommitment,
	ErrNullifierReuse,
	ErrUnknownRoot,
	ErrInvalidProof,
	ErrMalformedProof,
	ErrInvalidFieldElement,
	ErrAlreadyInitialized,
	ErrNotInitialized,
	ErrInvalidHeight,
}

// IsValidationError reports whether err was caused by a rejected input.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsCapacityError reports whether err means the tree is full for a key.
func IsCapacityError(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsTransferError reports whether err was caused by the payout.
func IsTransferError(err error) bool {
	return errors.Is(err, ErrTransferFailed) || errors.Is(err, ErrInsufficientEscrow)
}
