package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence"
)

const (
	// keyNamespace is prepended to every pool key before the optional tenant prefix.
	keyNamespace = "pool:"

	connectTimeout = 5 * time.Second

	// maxTxRetries bounds retries of an Update whose watched keys changed
	// before EXEC.
	maxTxRetries = 5
)

// RedisPersistence is a production-ready persistence implementation using Redis.
// Provides durable, distributed storage suitable for cloud-native deployments.
//
// Update uses optimistic transactions: every key read inside the callback is
// WATCHed and all writes are sent in one MULTI/EXEC block. If a watched key
// changes before EXEC the callback is run again, so callbacks must not have
// side effects that survive a retry. View reads are not snapshot-isolated.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant setups).
	// If set, this prefix is prepended to all keys, e.g., "mainnet:" would result in
	// keys like "mainnet:pool:nullifier:0x...". If empty, keys start with "pool:".
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized",
		"address", cfg.Address,
		"db", cfg.DB,
		"key_prefix", cfg.KeyPrefix,
	)

	return rp, nil
}

// prefixKey maps a logical key to its Redis key.
func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + keyNamespace + key
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(persistence.KeySchemaVersion)

	// SETNX so concurrent first starts agree on one version.
	if err := r.client.SetNX(ctx, schemaKey, persistence.CurrentSchemaVersion, 0).Err(); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}

	existing, err := r.client.Get(ctx, schemaKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existing != persistence.CurrentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, persistence.CurrentSchemaVersion)
	}
	return nil
}

// Update runs fn inside an optimistic Redis transaction.
func (r *RedisPersistence) Update(fn func(txn persistence.Txn) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx := context.Background()
	schemaKey := r.prefixKey(persistence.KeySchemaVersion)

	for attempt := 0; attempt <= maxTxRetries; attempt++ {
		var fnErr error
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			txn := &redisTxn{ctx: ctx, store: r, tx: tx, writes: make(map[string][]byte)}
			if err := fn(txn); err != nil {
				fnErr = err
				return err
			}
			if len(txn.writes) == 0 {
				return nil
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key, value := range txn.writes {
					pipe.Set(ctx, r.prefixKey(key), value, 0)
				}
				return nil
			})
			return err
		}, schemaKey)

		if fnErr != nil {
			return fnErr
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		r.logger.Sugar().Debugw("Redis transaction conflict, retrying", "attempt", attempt+1)
	}

	return fmt.Errorf("redis transaction failed after %d retries: %w", maxTxRetries, redis.TxFailedErr)
}

// View runs fn with direct reads against Redis.
func (r *RedisPersistence) View(fn func(txn persistence.Txn) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	return fn(&redisTxn{ctx: context.Background(), store: r, readOnly: true})
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	exists, err := r.client.Exists(ctx, r.prefixKey(persistence.KeySchemaVersion)).Result()
	if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("schema version not found - database may be corrupted")
	}
	return nil
}

type redisTxn struct {
	ctx      context.Context
	store    *RedisPersistence
	tx       *redis.Tx
	writes   map[string][]byte
	readOnly bool
}

func (t *redisTxn) Get(key string) ([]byte, bool, error) {
	if value, ok := t.writes[key]; ok {
		return append([]byte{}, value...), true, nil
	}

	redisKey := t.store.prefixKey(key)

	var cmd *redis.StringCmd
	if t.tx != nil {
		if err := t.tx.Watch(t.ctx, redisKey).Err(); err != nil {
			return nil, false, fmt.Errorf("failed to watch %s: %w", key, err)
		}
		cmd = t.tx.Get(t.ctx, redisKey)
	} else {
		cmd = t.store.client.Get(t.ctx, redisKey)
	}

	value, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (t *redisTxn) Set(key string, value []byte) error {
	if t.readOnly {
		return persistence.ErrReadOnly
	}
	t.writes[key] = append([]byte{}, value...)
	return nil
}

func (t *redisTxn) Has(key string) (bool, error) {
	_, ok, err := t.Get(key)
	return ok, err
}
