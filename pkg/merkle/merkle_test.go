package merkle

import (
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomHistory returns n random roots; entry 0 is the empty root.
func randomHistory(n int) []common.Hash {
	roots := make([]common.Hash, n)
	for i := 1; i < n; i++ {
		_, _ = rand.Read(roots[i][:])
	}
	return roots
}

func TestBuildHistoryTree(t *testing.T) {
	testCases := []struct {
		name    string
		entries int
	}{
		{"Empty root only", 1},
		{"Two entries", 2},
		{"Three entries", 3},
		{"Four entries (power of 2)", 4},
		{"Seven entries", 7},
		{"Sixteen entries (power of 2)", 16},
		{"Seventeen entries", 17},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			roots := randomHistory(tc.entries)
			tree, err := BuildHistoryTree(roots)
			require.NoError(t, err)
			require.Len(t, tree.Leaves, tc.entries)
			require.NotEqual(t, common.Hash{}, tree.Root)

			for i, root := range roots {
				proof, err := tree.GenerateProof(uint64(i), root)
				require.NoError(t, err)
				require.True(t, VerifyProof(proof, tree.Root), "proof for entry %d should be valid", i)
			}
		})
	}
}

func TestBuildHistoryTreeEmpty(t *testing.T) {
	tree, err := BuildHistoryTree(nil)
	require.Error(t, err)
	require.Nil(t, tree)
	require.Contains(t, err.Error(), "empty")
}

func TestHistoryTree_OrderMatters(t *testing.T) {
	roots := randomHistory(5)
	a, err := BuildHistoryTree(roots)
	require.NoError(t, err)

	swapped := append([]common.Hash(nil), roots...)
	swapped[1], swapped[2] = swapped[2], swapped[1]
	b, err := BuildHistoryTree(swapped)
	require.NoError(t, err)

	assert.NotEqual(t, a.Root, b.Root)
}

func TestHistoryTree_PrefixDiffers(t *testing.T) {
	roots := randomHistory(6)
	full, err := BuildHistoryTree(roots)
	require.NoError(t, err)
	prefix, err := BuildHistoryTree(roots[:5])
	require.NoError(t, err)

	assert.NotEqual(t, full.Root, prefix.Root)
	assert.Equal(t, uint64(5), prefix.Checkpoint(roots[4]).Count)
}

func TestHistoryProofVerification(t *testing.T) {
	roots := randomHistory(6)
	tree, err := BuildHistoryTree(roots)
	require.NoError(t, err)

	t.Run("Valid proof", func(t *testing.T) {
		proof, err := tree.GenerateProof(3, roots[3])
		require.NoError(t, err)
		require.True(t, VerifyProof(proof, tree.Root))
	})

	t.Run("Wrong digest", func(t *testing.T) {
		proof, err := tree.GenerateProof(3, roots[3])
		require.NoError(t, err)
		require.False(t, VerifyProof(proof, common.Hash{1, 2, 3}))
	})

	t.Run("Wrong index", func(t *testing.T) {
		proof, err := tree.GenerateProof(3, roots[3])
		require.NoError(t, err)
		proof.Index = 2
		require.False(t, VerifyProof(proof, tree.Root))
	})

	t.Run("Tampered sibling", func(t *testing.T) {
		proof, err := tree.GenerateProof(3, roots[3])
		require.NoError(t, err)
		proof.Siblings[0][0] ^= 0xFF
		require.False(t, VerifyProof(proof, tree.Root))
	})

	t.Run("Root not at index", func(t *testing.T) {
		_, err := tree.GenerateProof(3, roots[4])
		require.Error(t, err)
	})

	t.Run("Index out of bounds", func(t *testing.T) {
		_, err := tree.GenerateProof(6, roots[0])
		require.Error(t, err)
	})

	t.Run("Nil proof", func(t *testing.T) {
		require.False(t, VerifyProof(nil, tree.Root))
	})
}

func TestHashHistoryEntry_Deterministic(t *testing.T) {
	root := common.HexToHash("0x1234")
	assert.Equal(t, HashHistoryEntry(1, root), HashHistoryEntry(1, root))
	assert.NotEqual(t, HashHistoryEntry(1, root), HashHistoryEntry(2, root))
}
