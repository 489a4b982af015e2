package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalPoolState serializes PoolState to JSON bytes.
// uint256.Int values are encoded as decimal strings.
func MarshalPoolState(ps *PoolState) ([]byte, error) {
	if ps == nil {
		return nil, fmt.Errorf("cannot marshal nil PoolState")
	}

	data, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PoolState to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalPoolState deserializes PoolState from JSON bytes.
func UnmarshalPoolState(data []byte) (*PoolState, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var ps PoolState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to PoolState: %w", err)
	}

	return &ps, nil
}

// LoadPoolState reads the pool state record. Returns nil if the pool has not
// been initialized.
func LoadPoolState(txn Txn) (*PoolState, error) {
	data, ok, err := txn.Get(KeyPoolState)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return UnmarshalPoolState(data)
}

// SavePoolState writes the pool state record.
func SavePoolState(txn Txn, ps *PoolState) error {
	data, err := MarshalPoolState(ps)
	if err != nil {
		return err
	}
	return txn.Set(KeyPoolState, data)
}
