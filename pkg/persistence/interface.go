package persistence

import "errors"

// ErrClosed is returned by every operation on a persistence layer after Close.
var ErrClosed = errors.New("persistence layer is closed")

// Txn is a read/write view of the store inside a single transaction.
// Writes made through a Txn are visible to later reads in the same Txn.
type Txn interface {
	// Get returns the value stored under key. The boolean is false if the key
	// does not exist; error is returned only on storage failure.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, overwriting any existing value.
	Set(key string, value []byte) error

	// Has reports whether key exists.
	Has(key string) (bool, error)
}

// IPoolPersistence defines the transactional key-value store backing a pool.
// All implementations must be thread-safe.
//
// The interface supports:
// - Read/write transactions that commit all writes or none (Update)
// - Read-only transactions over a consistent snapshot (View)
// - Lifecycle management (close, health check)
type IPoolPersistence interface {
	// Update runs fn inside a read/write transaction. If fn returns an error
	// nothing fn wrote is persisted and the error is returned unchanged.
	Update(fn func(txn Txn) error) error

	// View runs fn inside a read-only transaction. Set returns an error.
	View(fn func(txn Txn) error) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return ErrClosed.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}

// ErrReadOnly is returned by Set inside a View transaction.
var ErrReadOnly = errors.New("write in read-only transaction")
