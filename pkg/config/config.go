package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
)

// Environment variable names for pool configuration
const (
	EnvPoolConfigFile       = "POOL_CONFIG_FILE"
	EnvPoolDenomination     = "POOL_DENOMINATION"
	EnvPoolHashFunction     = "POOL_HASH_FUNCTION"
	EnvPoolTreeHeight       = "POOL_TREE_HEIGHT"
	EnvPoolPersistenceType  = "POOL_PERSISTENCE_TYPE"
	EnvPoolDataPath         = "POOL_DATA_PATH"
	EnvPoolRedisAddress     = "POOL_REDIS_ADDRESS"
	EnvPoolRedisPassword    = "POOL_REDIS_PASSWORD"
	EnvPoolRedisDB          = "POOL_REDIS_DB"
	EnvPoolRedisKeyPrefix   = "POOL_REDIS_KEY_PREFIX"
	EnvPoolVerifyingKeyPath = "POOL_VERIFYING_KEY"
	EnvPoolVerbose          = "POOL_VERBOSE"
)

// DefaultTreeHeight is the height used when none is configured.
const DefaultTreeHeight = 80

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

// GetSupportedPersistenceTypesString returns supported backends for CLI help
func GetSupportedPersistenceTypesString() string {
	return fmt.Sprintf("%s, %s, %s", PersistenceTypeMemory, PersistenceTypeBadger, PersistenceTypeRedis)
}

type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

type PersistenceConfig struct {
	Type     PersistenceType `json:"type" yaml:"type"`
	DataPath string          `json:"dataPath" yaml:"dataPath"`
	Redis    RedisConfig     `json:"redis" yaml:"redis"`
}

// PoolConfig represents the complete configuration of a pool deployment
type PoolConfig struct {
	// Denomination is the exact deposit amount in wei, as a decimal string
	Denomination string `json:"denomination" yaml:"denomination"`
	HashFunction string `json:"hashFunction" yaml:"hashFunction"`
	TreeHeight   int    `json:"treeHeight" yaml:"treeHeight"`

	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`

	// VerifyingKeyPath points at a gnark Groth16 verifying key. Empty means
	// withdrawals cannot be verified.
	VerifyingKeyPath string `json:"verifyingKeyPath" yaml:"verifyingKeyPath"`

	Debug bool `json:"debug" yaml:"debug"`
}

// NewDefaultPoolConfig returns a config with every optional field defaulted.
func NewDefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		HashFunction: hasher.NamePoseidon,
		TreeHeight:   DefaultTreeHeight,
		Persistence: PersistenceConfig{
			Type: PersistenceTypeMemory,
		},
	}
}

// LoadPoolConfig reads a YAML config file on top of the defaults.
func LoadPoolConfig(path string) (*PoolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return ParsePoolConfig(data)
}

// ParsePoolConfig decodes YAML config on top of the defaults.
func ParsePoolConfig(data []byte) (*PoolConfig, error) {
	cfg := NewDefaultPoolConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse pool config")
	}
	return cfg, nil
}

// DenominationValue parses Denomination.
func (c *PoolConfig) DenominationValue() (*uint256.Int, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(c.Denomination))
	if err != nil {
		return nil, fmt.Errorf("invalid denomination %q: %w", c.Denomination, err)
	}
	if v.IsZero() {
		return nil, fmt.Errorf("denomination must be positive")
	}
	return v, nil
}

// Hasher returns the configured hash function.
func (c *PoolConfig) Hasher() (hasher.Hasher, error) {
	return hasher.New(c.HashFunction)
}

// Validate validates the pool configuration
func (c *PoolConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Denomination == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("denomination"), "denomination is required"))
	} else if _, err := c.DenominationValue(); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("denomination"), c.Denomination, err.Error()))
	}

	if _, err := c.Hasher(); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("hashFunction"), c.HashFunction,
			[]string{hasher.NamePoseidon, hasher.NameMiMC}))
	}

	if c.TreeHeight < 1 || c.TreeHeight > 256 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("treeHeight"), c.TreeHeight, "must be between 1 and 256"))
	}

	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (p *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch p.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if p.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if p.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("redis", "address"), "address is required for redis persistence"))
		}
		if p.Redis.DB < 0 || p.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(path.Child("redis", "db"), p.Redis.DB, "must be between 0 and 15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), p.Type,
			[]string{PersistenceTypeMemory.String(), PersistenceTypeBadger.String(), PersistenceTypeRedis.String()}))
	}
	return allErrors
}
