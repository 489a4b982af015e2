package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/shielded-pool-go/pkg/config"
	"github.com/Layr-Labs/shielded-pool-go/pkg/escrow"
	"github.com/Layr-Labs/shielded-pool-go/pkg/logger"
	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence"
	badgerstore "github.com/Layr-Labs/shielded-pool-go/pkg/persistence/badger"
	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence/memory"
	redisstore "github.com/Layr-Labs/shielded-pool-go/pkg/persistence/redis"
	"github.com/Layr-Labs/shielded-pool-go/pkg/pool"
	"github.com/Layr-Labs/shielded-pool-go/pkg/verifier"
)

// poolEnv is everything a command needs, built from flags and config.
type poolEnv struct {
	cfg    *config.PoolConfig
	logger *zap.Logger
	store  persistence.IPoolPersistence
	ledger *escrow.Ledger
	pool   *pool.Pool
}

func (r *poolEnv) Close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Sugar().Warnw("Failed to close store", "error", err)
		}
	}
	_ = r.logger.Sync()
}

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.PoolConfig, error) {
	cfg := config.NewDefaultPoolConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadPoolConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("denomination") {
		cfg.Denomination = c.String("denomination")
	}
	if c.IsSet("hash-function") {
		cfg.HashFunction = c.String("hash-function")
	}
	if c.IsSet("tree-height") {
		cfg.TreeHeight = c.Int("tree-height")
	}
	if c.IsSet("persistence") {
		cfg.Persistence.Type = config.PersistenceType(c.String("persistence"))
	}
	if c.IsSet("data-path") {
		cfg.Persistence.DataPath = c.String("data-path")
	}
	if c.IsSet("redis-address") {
		cfg.Persistence.Redis.Address = c.String("redis-address")
	}
	if c.IsSet("redis-password") {
		cfg.Persistence.Redis.Password = c.String("redis-password")
	}
	if c.IsSet("redis-db") {
		cfg.Persistence.Redis.DB = c.Int("redis-db")
	}
	if c.IsSet("redis-key-prefix") {
		cfg.Persistence.Redis.KeyPrefix = c.String("redis-key-prefix")
	}
	if c.IsSet("verifying-key") {
		cfg.VerifyingKeyPath = c.String("verifying-key")
	}
	if c.Bool("verbose") {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newStore(cfg *config.PersistenceConfig, l *zap.Logger) (persistence.IPoolPersistence, error) {
	switch cfg.Type {
	case config.PersistenceTypeMemory:
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		return badgerstore.NewBadgerPersistence(cfg.DataPath, l)
	case config.PersistenceTypeRedis:
		return redisstore.NewRedisPersistence(&redisstore.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}

// newVerifier loads the Groth16 verifier, or a verifier that rejects every
// proof when no key is configured.
func newVerifier(cfg *config.PoolConfig, l *zap.Logger) (verifier.ProofVerifier, error) {
	if cfg.VerifyingKeyPath == "" {
		l.Sugar().Debugw("No verifying key configured; withdrawals will be rejected")
		return verifier.StubVerifier{Accept: false}, nil
	}
	vk, err := verifier.LoadVerifyingKey(cfg.VerifyingKeyPath)
	if err != nil {
		return nil, err
	}
	return verifier.NewGroth16Verifier(vk, l)
}

func newPoolEnv(c *cli.Context) (*poolEnv, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	denomination, err := cfg.DenominationValue()
	if err != nil {
		return nil, err
	}
	h, err := cfg.Hasher()
	if err != nil {
		return nil, err
	}

	v, err := newVerifier(cfg, l)
	if err != nil {
		return nil, err
	}

	store, err := newStore(&cfg.Persistence, l)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	ledger := escrow.NewLedger(l)
	p, err := pool.New(&pool.Config{Denomination: denomination, Hasher: h}, v, ledger, store, l)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &poolEnv{
		cfg:    cfg,
		logger: l,
		store:  store,
		ledger: ledger,
		pool:   p,
	}, nil
}
