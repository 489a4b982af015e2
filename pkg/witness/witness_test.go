package witness

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
	"github.com/Layr-Labs/shielded-pool-go/pkg/note"
	"github.com/Layr-Labs/shielded-pool-go/pkg/smt"
	"github.com/Layr-Labs/shielded-pool-go/pkg/testutil"
)

const testHeight = 40

func depositNotes(t *testing.T, tree *smt.Tree, count int) []*note.Note {
	t.Helper()
	notes := make([]*note.Note, count)
	for i := range notes {
		n, err := note.Generate(hasher.NamePoseidon, testutil.OneEther)
		require.NoError(t, err)
		commitment, err := n.Commitment()
		require.NoError(t, err)
		key, err := n.CommitmentKey()
		require.NoError(t, err)
		_, err = tree.Add(key, commitment)
		require.NoError(t, err)
		notes[i] = n
	}
	return notes
}

func newTree(t *testing.T) *smt.Tree {
	t.Helper()
	tree := smt.NewTree(smt.NewMemoryStorage(), hasher.NewPoseidon())
	require.NoError(t, tree.Init(testHeight))
	return tree
}

func TestBuild(t *testing.T) {
	tree := newTree(t)
	notes := depositNotes(t, tree, 5)
	recipient := testutil.RandomAddress(t)

	n := notes[3]
	key, err := n.CommitmentKey()
	require.NoError(t, err)
	proof, err := tree.Proof(key)
	require.NoError(t, err)

	in, err := Build(n, recipient, proof)
	require.NoError(t, err)

	root, err := tree.Root()
	require.NoError(t, err)
	assert.Equal(t, root.Big().String(), in.Root)

	nullifierHash, err := n.NullifierHash()
	require.NoError(t, err)
	assert.Equal(t, nullifierHash.Big().String(), in.NullifierHash)
	assert.Equal(t, new(big.Int).SetBytes(recipient.Bytes()).String(), in.Recipient)
	assert.Equal(t, new(big.Int).SetBytes(n.Secret[:]).String(), in.Secret)
	assert.Equal(t, new(big.Int).SetBytes(n.Nullifier[:]).String(), in.Nullifier)
	assert.Equal(t, "0", in.IsExclusion)
	assert.Equal(t, "0", in.AuxIsEmpty)

	require.Len(t, in.Siblings, testHeight)
	require.Len(t, in.PathBits, testHeight)
	for d := 0; d < testHeight; d++ {
		assert.Equal(t, proof.Siblings[d].Big().String(), in.Siblings[d])
		assert.Equal(t, big.NewInt(int64(smt.PathBit(key, d))).String(), in.PathBits[d])
	}
}

func TestBuild_JSON(t *testing.T) {
	tree := newTree(t)
	notes := depositNotes(t, tree, 1)

	key, err := notes[0].CommitmentKey()
	require.NoError(t, err)
	proof, err := tree.Proof(key)
	require.NoError(t, err)

	in, err := Build(notes[0], testutil.RandomAddress(t), proof)
	require.NoError(t, err)

	data, err := in.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, field := range []string{"root", "nullifierHash", "recipient", "secret", "nullifier", "siblings", "pathBits", "auxKey", "auxValue", "auxIsEmpty", "isExclusion"} {
		assert.Contains(t, decoded, field)
	}
}

func TestBuild_RejectsExclusionProof(t *testing.T) {
	tree := newTree(t)
	depositNotes(t, tree, 3)

	outsider, err := note.Generate(hasher.NamePoseidon, testutil.OneEther)
	require.NoError(t, err)
	key, err := outsider.CommitmentKey()
	require.NoError(t, err)
	proof, err := tree.Proof(key)
	require.NoError(t, err)
	require.False(t, proof.Existence)

	_, err = Build(outsider, testutil.RandomAddress(t), proof)
	require.ErrorIs(t, err, ErrNotIncluded)
}

func TestBuild_RejectsOtherNotesProof(t *testing.T) {
	tree := newTree(t)
	notes := depositNotes(t, tree, 2)

	key, err := notes[0].CommitmentKey()
	require.NoError(t, err)
	proof, err := tree.Proof(key)
	require.NoError(t, err)

	_, err = Build(notes[1], testutil.RandomAddress(t), proof)
	require.ErrorIs(t, err, ErrNotIncluded)
}

func TestBuild_RejectsTamperedProof(t *testing.T) {
	tree := newTree(t)
	notes := depositNotes(t, tree, 4)

	key, err := notes[0].CommitmentKey()
	require.NoError(t, err)
	proof, err := tree.Proof(key)
	require.NoError(t, err)

	proof.Root = common.BigToHash(new(big.Int).Add(proof.Root.Big(), big.NewInt(1)))
	_, err = Build(notes[0], testutil.RandomAddress(t), proof)
	require.ErrorIs(t, err, ErrProofMismatch)
}

func TestBuild_NilInputs(t *testing.T) {
	_, err := Build(nil, common.Address{}, &smt.Proof{})
	require.Error(t, err)

	n, err := note.Generate(hasher.NamePoseidon, testutil.OneEther)
	require.NoError(t, err)
	_, err = Build(n, common.Address{}, nil)
	require.Error(t, err)
}
