package txseq

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igneous-labs/stake-pool-sdk/pkg/fees"
	"github.com/igneous-labs/stake-pool-sdk/pkg/stakepool"
	"github.com/igneous-labs/stake-pool-sdk/pkg/withdraw"
)

func testBuilder() *Builder {
	return NewBuilder(stakepool.ProgramID, solana.MustPublicKeyFromBase58("5oc4nmbNTda9fx8Tw57ShLD132aqDK65vuHH4RU1K4LZ"), DefaultConfig())
}

func testPoolState(lastUpdateEpoch uint64) *stakepool.StakePool {
	return &stakepool.StakePool{
		AccountType:       stakepool.AccountTypeStakePool,
		ValidatorList:     solana.PublicKey{0x01},
		ReserveStake:      solana.PublicKey{0x02},
		PoolMint:          solana.PublicKey{0x03},
		ManagerFeeAccount: solana.PublicKey{0x04},
		TotalLamports:     1_000_000,
		PoolTokenSupply:   1_000_000,
		LastUpdateEpoch:   lastUpdateEpoch,
	}
}

func testValidatorList(numValidators int, lastUpdateEpoch uint64) *stakepool.ValidatorList {
	list := &stakepool.ValidatorList{AccountType: stakepool.AccountTypeValidatorList}
	for i := 0; i < numValidators; i++ {
		var vote solana.PublicKey
		vote[0] = byte(i + 1)
		list.Validators = append(list.Validators, stakepool.ValidatorStakeInfo{
			VoteAccountAddress:  vote,
			ActiveStakeLamports: 1_000_000,
			LastUpdateEpoch:     lastUpdateEpoch,
		})
	}
	return list
}

func TestRefreshBatches_CurrentSnapshotEmitsNothing(t *testing.T) {
	batches, err := testBuilder().RefreshBatches(testPoolState(100), testValidatorList(7, 100), 100)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestRefreshBatches_ChunksByConfiguredCap(t *testing.T) {
	// 12 stale validators with cap 5: ceil(12/5) = 3 balance batches, then
	// the aggregate batch and the cleanup batch
	batches, err := testBuilder().RefreshBatches(testPoolState(99), testValidatorList(12, 99), 100)
	require.NoError(t, err)
	require.Len(t, batches, 5)

	for _, batch := range batches {
		require.Len(t, batch.Ops, 1)
		assert.Empty(t, batch.Ops[0].Signers)
	}

	// 5 + 5 + 2 validators, two stake accounts each
	counts := []int{}
	for _, batch := range batches[:3] {
		accounts := batch.Ops[0].Instructions[0].Accounts()
		counts = append(counts, (len(accounts)-7)/2)
	}
	assert.Equal(t, []int{5, 5, 2}, counts)
}

func TestRefreshBatches_SkipsCurrentValidators(t *testing.T) {
	list := testValidatorList(6, 99)
	// half the list is already current for epoch 100
	for i := 0; i < 3; i++ {
		list.Validators[i].LastUpdateEpoch = 100
	}

	batches, err := testBuilder().RefreshBatches(testPoolState(99), list, 100)
	require.NoError(t, err)

	// 3 stale validators fit in one balance batch
	require.Len(t, batches, 3)
	accounts := batches[0].Ops[0].Instructions[0].Accounts()
	assert.Len(t, accounts, 7+2*3)
}

func TestDepositSolBatch(t *testing.T) {
	funder := solana.PublicKey{0xaa}
	batch, err := testBuilder().DepositSolBatch(testPoolState(100), DepositSolParams{
		Funder:               funder,
		DestinationTokenAcct: solana.PublicKey{0xbb},
		ReferrerTokenAcct:    solana.PublicKey{0xcc},
		Lamports:             5000,
	})
	require.NoError(t, err)

	require.Len(t, batch.Ops, 1)
	require.Len(t, batch.Ops[0].Instructions, 1)

	data, err := batch.Ops[0].Instructions[0].Data()
	require.NoError(t, err)
	assert.Equal(t, byte(stakepool.InstrTypeDepositSol), data[0])
}

func TestWithdrawBatches_ChunksAndSigners(t *testing.T) {
	var receipts []withdraw.ValidatorWithdrawalReceipt
	for i := 0; i < 9; i++ {
		var vote solana.PublicKey
		vote[0] = byte(i + 1)
		receipts = append(receipts, withdraw.ValidatorWithdrawalReceipt{
			Source:      withdraw.SourceActive,
			VoteAccount: vote,
			Receipt:     fees.WithdrawalReceipt{DropletsUnstaked: 100, LamportsReceived: 100},
		})
	}

	batches, err := testBuilder().WithdrawBatches(testPoolState(100), receipts, WithdrawStakeParams{
		Beneficiary:     solana.PublicKey{0xaa},
		SourceTokenAcct: solana.PublicKey{0xbb},
	})
	require.NoError(t, err)

	// cap 4: 4 + 4 + 1
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Ops, 4)
	assert.Len(t, batches[1].Ops, 4)
	assert.Len(t, batches[2].Ops, 1)

	// every split gets a fresh destination account and its one-time signer
	seen := make(map[solana.PublicKey]bool)
	for _, batch := range batches {
		for _, op := range batch.Ops {
			require.Len(t, op.Instructions, 2)
			require.Len(t, op.Signers, 1)
			dest := op.Signers[0].PublicKey()
			assert.False(t, seen[dest])
			seen[dest] = true
		}
	}
}

func TestWithdrawBatches_ReserveSourceSplitsFromReserve(t *testing.T) {
	pool := testPoolState(100)
	receipts := []withdraw.ValidatorWithdrawalReceipt{{
		Source:  withdraw.SourceReserve,
		Receipt: fees.WithdrawalReceipt{DropletsUnstaked: 10, LamportsReceived: 10},
	}}

	batches, err := testBuilder().WithdrawBatches(pool, receipts, WithdrawStakeParams{
		Beneficiary:     solana.PublicKey{0xaa},
		SourceTokenAcct: solana.PublicKey{0xbb},
	})
	require.NoError(t, err)
	require.Len(t, batches, 1)

	split := batches[0].Ops[0].Instructions[1]
	accounts := split.Accounts()
	assert.Equal(t, pool.ReserveStake, accounts[3].PublicKey)
}
