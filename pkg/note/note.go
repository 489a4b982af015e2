// Package note generates and encodes the secret material behind a deposit.
//
// A note holds a secret and a nullifier. Its commitment H(secret, nullifier)
// is deposited publicly; H(nullifier) is revealed at withdrawal. Notes encode
// to strings of the form
//
//	shielded-<hash>-<denomination>-0x<secret><nullifier>
//
// where secret and nullifier are SecretSize bytes each.
package note

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
)

// SecretSize is the byte length of a secret or nullifier. Values this short
// are always inside the BN254 scalar field.
const SecretSize = 28

const notePrefix = "shielded"

// ErrInvalidNote is returned when a note string cannot be decoded.
var ErrInvalidNote = errors.New("invalid note")

// Note is the private opening of one deposit.
type Note struct {
	HashFunction string
	Denomination *uint256.Int
	Secret       [SecretSize]byte
	Nullifier    [SecretSize]byte
}

// Generate creates a note with a random secret and nullifier.
func Generate(hashFunction string, denomination *uint256.Int) (*Note, error) {
	return GenerateFrom(rand.Reader, hashFunction, denomination)
}

// GenerateFrom creates a note reading randomness from r.
func GenerateFrom(r io.Reader, hashFunction string, denomination *uint256.Int) (*Note, error) {
	if denomination == nil || denomination.IsZero() {
		return nil, fmt.Errorf("denomination must be positive")
	}
	if _, err := hasher.New(hashFunction); err != nil {
		return nil, err
	}

	n := &Note{
		HashFunction: strings.ToLower(hashFunction),
		Denomination: new(uint256.Int).Set(denomination),
	}
	if n.HashFunction == "" {
		n.HashFunction = hasher.NamePoseidon
	}
	if _, err := io.ReadFull(r, n.Secret[:]); err != nil {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}
	if _, err := io.ReadFull(r, n.Nullifier[:]); err != nil {
		return nil, fmt.Errorf("failed to read nullifier: %w", err)
	}
	return n, nil
}

// SecretWord returns the secret as a field element word.
func (n *Note) SecretWord() common.Hash {
	return common.BytesToHash(n.Secret[:])
}

// NullifierWord returns the nullifier as a field element word.
func (n *Note) NullifierWord() common.Hash {
	return common.BytesToHash(n.Nullifier[:])
}

// Hasher returns the hash function the note was created for.
func (n *Note) Hasher() (hasher.Hasher, error) {
	return hasher.New(n.HashFunction)
}

// Commitment returns H(secret, nullifier).
func (n *Note) Commitment() (common.Hash, error) {
	h, err := n.Hasher()
	if err != nil {
		return common.Hash{}, err
	}
	return hasher.HashWords(h, n.SecretWord(), n.NullifierWord())
}

// NullifierHash returns H(nullifier).
func (n *Note) NullifierHash() (common.Hash, error) {
	h, err := n.Hasher()
	if err != nil {
		return common.Hash{}, err
	}
	return hasher.HashWords(h, n.NullifierWord())
}

// CommitmentKey returns H(H(secret, nullifier)), the tree key of the deposit.
func (n *Note) CommitmentKey() (common.Hash, error) {
	commitment, err := n.Commitment()
	if err != nil {
		return common.Hash{}, err
	}
	h, err := n.Hasher()
	if err != nil {
		return common.Hash{}, err
	}
	return hasher.HashWords(h, commitment)
}

// Encode renders the note as a string.
func (n *Note) Encode() string {
	payload := make([]byte, 0, 2*SecretSize)
	payload = append(payload, n.Secret[:]...)
	payload = append(payload, n.Nullifier[:]...)
	return fmt.Sprintf("%s-%s-%s-%s", notePrefix, n.HashFunction, n.Denomination.Dec(), hexutil.Encode(payload))
}

// String implements fmt.Stringer without revealing the secret material.
func (n *Note) String() string {
	return fmt.Sprintf("%s-%s-%s-<redacted>", notePrefix, n.HashFunction, n.Denomination.Dec())
}

// Decode parses a string produced by Encode.
func Decode(s string) (*Note, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 || parts[0] != notePrefix {
		return nil, fmt.Errorf("%w: expected %s-<hash>-<denomination>-<hex>", ErrInvalidNote, notePrefix)
	}

	if _, err := hasher.New(parts[1]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNote, err)
	}

	denomination, err := uint256.FromDecimal(parts[2])
	if err != nil || denomination.IsZero() {
		return nil, fmt.Errorf("%w: bad denomination %q", ErrInvalidNote, parts[2])
	}

	payload, err := hexutil.Decode(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNote, err)
	}
	if len(payload) != 2*SecretSize {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidNote, len(payload), 2*SecretSize)
	}

	n := &Note{
		HashFunction: strings.ToLower(parts[1]),
		Denomination: denomination,
	}
	copy(n.Secret[:], payload[:SecretSize])
	copy(n.Nullifier[:], payload[SecretSize:])
	return n, nil
}
