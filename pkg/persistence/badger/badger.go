package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence"
)

const (
	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5

	// maxConflictRetries bounds retries of an Update that lost an optimistic
	// concurrency race inside badger.
	maxConflictRetries = 3
)

// BadgerPersistence is a production-ready persistence implementation using Badger.
// Provides durable, disk-based storage with ACID transactions.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerPersistence creates a new Badger-backed persistence layer.
// The database is opened at the specified path with SyncWrites enabled for durability.
// A background goroutine is started for value log garbage collection.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newZapBadgerLogger(logger)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(persistence.KeySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(persistence.KeySchemaVersion), []byte(persistence.CurrentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		existing, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}
		if string(existing) != persistence.CurrentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, persistence.CurrentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Update runs fn inside a badger read/write transaction. The transaction is
// discarded if fn fails. Badger conflict errors are retried.
func (b *BadgerPersistence) Update(fn func(txn persistence.Txn) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = b.db.Update(func(txn *badgerdb.Txn) error {
			return fn(&badgerTxn{txn: txn})
		})
		if !errors.Is(err, badgerdb.ErrConflict) {
			return err
		}
		b.logger.Sugar().Debugw("Badger transaction conflict, retrying", "attempt", attempt+1)
	}
	return fmt.Errorf("badger transaction failed after %d retries: %w", maxConflictRetries, err)
}

// View runs fn inside a badger read-only transaction.
func (b *BadgerPersistence) View(fn func(txn persistence.Txn) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		return fn(&badgerTxn{txn: txn, readOnly: true})
	})
}

// Close shuts down the persistence layer
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(persistence.KeySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}

type badgerTxn struct {
	txn      *badgerdb.Txn
	readOnly bool
}

func (t *badgerTxn) Get(key string) ([]byte, bool, error) {
	item, err := t.txn.Get([]byte(key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read value of %s: %w", key, err)
	}
	return value, true, nil
}

func (t *badgerTxn) Set(key string, value []byte) error {
	if t.readOnly {
		return persistence.ErrReadOnly
	}
	return t.txn.Set([]byte(key), append([]byte{}, value...))
}

func (t *badgerTxn) Has(key string) (bool, error) {
	_, err := t.txn.Get([]byte(key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
