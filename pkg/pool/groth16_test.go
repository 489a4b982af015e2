package pool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/shielded-pool-go/pkg/escrow"
	"github.com/Layr-Labs/shielded-pool-go/pkg/hasher"
	"github.com/Layr-Labs/shielded-pool-go/pkg/note"
	"github.com/Layr-Labs/shielded-pool-go/pkg/persistence/memory"
	"github.com/Layr-Labs/shielded-pool-go/pkg/pool"
	"github.com/Layr-Labs/shielded-pool-go/pkg/testutil"
	"github.com/Layr-Labs/shielded-pool-go/pkg/verifier"
	"github.com/Layr-Labs/shielded-pool-go/pkg/witness"
)

func TestPool_Groth16EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Groth16 setup in short mode")
	}

	fixture := testutil.NewGroth16Fixture(t)
	logger := zap.NewNop()

	v, err := verifier.NewGroth16Verifier(fixture.VK, logger)
	require.NoError(t, err)

	ledger := escrow.NewLedger(logger)
	p, err := pool.New(&pool.Config{Denomination: testutil.OneEther, Hasher: hasher.NewMiMC()},
		v, ledger, memory.NewMemoryPersistence(), logger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Init(ctx, 32))

	n, err := note.Generate(hasher.NameMiMC, testutil.OneEther)
	require.NoError(t, err)
	commitment, err := n.Commitment()
	require.NoError(t, err)
	_, err = p.Deposit(ctx, commitment, testutil.OneEther)
	require.NoError(t, err)

	recipient := testutil.RandomAddress(t)
	proof, err := p.Proof(commitment)
	require.NoError(t, err)
	in, err := witness.Build(n, recipient, proof)
	require.NoError(t, err)
	assert.Equal(t, proof.Root.Big().String(), in.Root)

	nullifierHash, err := n.NullifierHash()
	require.NoError(t, err)
	points := fixture.Prove(t, proof.Root, nullifierHash, recipient, n.NullifierWord().Big())

	other := testutil.RandomAddress(t)
	_, err = p.Withdraw(ctx, &pool.WithdrawRequest{
		NullifierHash: nullifierHash,
		Recipient:     other,
		Root:          proof.Root,
		Proof:         points,
	})
	require.ErrorIs(t, err, pool.ErrInvalidProof)

	receipt, err := p.Withdraw(ctx, &pool.WithdrawRequest{
		NullifierHash: nullifierHash,
		Recipient:     recipient,
		Root:          proof.Root,
		Proof:         points,
	})
	require.NoError(t, err)
	assert.Equal(t, recipient, receipt.Recipient)
	assert.True(t, ledger.BalanceOf(recipient).Eq(testutil.OneEther))
	assert.True(t, ledger.BalanceOf(other).IsZero())

	_, err = p.Withdraw(ctx, &pool.WithdrawRequest{
		NullifierHash: nullifierHash,
		Recipient:     recipient,
		Root:          proof.Root,
		Proof:         points,
	})
	require.ErrorIs(t, err, pool.ErrNullifierReuse)
}
