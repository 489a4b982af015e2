package smt

import "github.com/ethereum/go-ethereum/common"

// PathBit returns the branch taken at depth for key: 0 is left, 1 is right.
//
// Paths are read least-significant-bit first: depth d uses bit d of the key
// read as a big-endian integer. Every producer and consumer of paths (insertion,
// proofs, verification, witnesses) must go through this function.
func PathBit(key common.Hash, depth int) uint8 {
	if depth < 0 || depth >= MaxHeight {
		return 0
	}
	b := key[common.HashLength-1-depth/8]
	return (b >> (uint(depth) % 8)) & 1
}

// PathBits returns the first height path bits of key.
func PathBits(key common.Hash, height int) []uint8 {
	bits := make([]uint8, height)
	for d := 0; d < height; d++ {
		bits[d] = PathBit(key, d)
	}
	return bits
}

// sharesPrefix reports whether a and b take the same branch for depths < depth.
func sharesPrefix(a, b common.Hash, depth int) bool {
	for d := 0; d < depth; d++ {
		if PathBit(a, d) != PathBit(b, d) {
			return false
		}
	}
	return true
}
