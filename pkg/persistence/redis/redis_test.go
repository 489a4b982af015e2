package redis

import (
	"errors"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/shielded-pool-go/pkg/logger"
	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence"
)

var _ persistence.IPoolPersistence = (*RedisPersistence)(nil)

// requireRedis connects to the Redis named by REDIS_TEST_ADDRESS, or skips the
// test when it is not set. Each test gets its own key prefix.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDRESS not set")
	}

	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	rp, err := NewRedisPersistence(&RedisConfig{
		Address:   addr,
		DB:        15,
		KeyPrefix: "test-" + uuid.NewString() + ":",
	}, testLogger)
	require.NoError(t, err, "Redis not available at %s", addr)

	t.Cleanup(func() { _ = rp.Close() })
	return rp
}

func TestNewRedisPersistence_InvalidConfig(t *testing.T) {
	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	_, err = NewRedisPersistence(nil, testLogger)
	require.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address")
}

func TestRedisPersistence_PrefixKey(t *testing.T) {
	rp := &RedisPersistence{keyPrefix: "tenant:"}
	assert.Equal(t, "tenant:pool:meta:state", rp.prefixKey(persistence.KeyPoolState))

	rp = &RedisPersistence{}
	assert.Equal(t, "pool:meta:state", rp.prefixKey(persistence.KeyPoolState))
}

func TestRedisPersistence_SetAndGet(t *testing.T) {
	rp := requireRedis(t)

	key := persistence.NullifierKey(common.HexToHash("0x0a"))
	require.NoError(t, rp.Update(func(txn persistence.Txn) error {
		return txn.Set(key, []byte{1})
	}))

	require.NoError(t, rp.View(func(txn persistence.Txn) error {
		value, ok, err := txn.Get(key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{1}, value)
		return nil
	}))
}

func TestRedisPersistence_FailedUpdateRollsBack(t *testing.T) {
	rp := requireRedis(t)

	sentinel := errors.New("boom")
	err := rp.Update(func(txn persistence.Txn) error {
		require.NoError(t, txn.Set("k", []byte("v")))
		has, err := txn.Has("k")
		require.NoError(t, err)
		require.True(t, has)
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	require.NoError(t, rp.View(func(txn persistence.Txn) error {
		has, err := txn.Has("k")
		require.NoError(t, err)
		assert.False(t, has)
		return nil
	}))
}

func TestRedisPersistence_HealthCheckAndClose(t *testing.T) {
	rp := requireRedis(t)

	require.NoError(t, rp.HealthCheck())
	require.NoError(t, rp.Close())
	require.NoError(t, rp.Close())
	require.ErrorIs(t, rp.HealthCheck(), persistence.ErrClosed)
}
