package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of IPoolPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Writers are serialized; each Update buffers its writes in an overlay that is
// applied only when the callback succeeds. Values are copied on the way in and
// out to prevent external mutation.
type MemoryPersistence struct {
	// writeMu serializes Update calls.
	writeMu sync.Mutex

	// mu guards data and closed.
	mu   sync.RWMutex
	data map[string][]byte

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning since this should only be used for testing.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Println("⚠️  WARNING: Using in-memory persistence - ALL DATA WILL BE LOST ON RESTART")
	fmt.Println("⚠️  This should ONLY be used for testing. Set POOL_PERSISTENCE_TYPE=badger for production")

	return &MemoryPersistence{
		data: map[string][]byte{
			persistence.KeySchemaVersion: []byte(persistence.CurrentSchemaVersion),
		},
	}
}

// Update runs fn against an overlay of pending writes and applies them
// atomically if fn succeeds.
func (m *MemoryPersistence) Update(fn func(txn persistence.Txn) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if m.isClosed() {
		return persistence.ErrClosed
	}

	txn := &memoryTxn{store: m, writes: make(map[string][]byte)}
	if err := fn(txn); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}
	for key, value := range txn.writes {
		m.data[key] = value
	}
	return nil
}

// View runs fn against the committed data. Concurrent Updates commit only
// after fn returns.
func (m *MemoryPersistence) View(fn func(txn persistence.Txn) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}

	return fn(&memoryTxn{store: m, readOnly: true, locked: true})
}

// Close marks the persistence layer as closed and drops all data.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil

	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	if m.isClosed() {
		return persistence.ErrClosed
	}
	return nil
}

func (m *MemoryPersistence) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// get reads committed data. locked is true when the caller already holds mu.
func (m *MemoryPersistence) get(key string, locked bool) ([]byte, bool) {
	if !locked {
		m.mu.RLock()
		defer m.mu.RUnlock()
	}
	value, ok := m.data[key]
	if !ok {
		return nil, false
	}
	return copyBytes(value), true
}

type memoryTxn struct {
	store    *MemoryPersistence
	writes   map[string][]byte
	readOnly bool
	locked   bool
}

func (t *memoryTxn) Get(key string) ([]byte, bool, error) {
	if value, ok := t.writes[key]; ok {
		return copyBytes(value), true, nil
	}
	value, ok := t.store.get(key, t.locked)
	return value, ok, nil
}

func (t *memoryTxn) Set(key string, value []byte) error {
	if t.readOnly {
		return persistence.ErrReadOnly
	}
	t.writes[key] = copyBytes(value)
	return nil
}

func (t *memoryTxn) Has(key string) (bool, error) {
	_, ok, err := t.Get(key)
	return ok, err
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return append([]byte{}, b...)
}
