package withdraw

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igneous-labs/stake-pool-sdk/pkg/stakepool"
)

var testLimits = Limits{
	MinimumActiveStake: 10,
	StakeRentExemption: 100,
}

func onToOnePool() *stakepool.StakePool {
	return &stakepool.StakePool{
		TotalLamports:   1_000_000,
		PoolTokenSupply: 1_000_000,
	}
}

func activeValidator(seed byte, active uint64) stakepool.ValidatorStakeInfo {
	var vote solana.PublicKey
	vote[0] = seed
	return stakepool.ValidatorStakeInfo{
		Status:              stakepool.StakeStatusActive,
		VoteAccountAddress:  vote,
		ActiveStakeLamports: active,
	}
}

func transientValidator(seed byte, transient uint64) stakepool.ValidatorStakeInfo {
	var vote solana.PublicKey
	vote[0] = seed
	return stakepool.ValidatorStakeInfo{
		Status:                 stakepool.StakeStatusDeactivatingTransient,
		VoteAccountAddress:     vote,
		TransientStakeLamports: transient,
	}
}

func TestCalcWithdrawals_EmptyListUsesReserve(t *testing.T) {
	receipts, err := CalcWithdrawals(10, onToOnePool(), nil, testLimits)
	require.NoError(t, err)

	require.Len(t, receipts, 1)
	assert.Equal(t, SourceReserve, receipts[0].Source)
	assert.True(t, receipts[0].VoteAccount.IsZero())
	assert.Equal(t, uint64(10), receipts[0].Receipt.DropletsUnstaked)
}

func TestCalcWithdrawals_LightestValidatorFirst(t *testing.T) {
	validators := []stakepool.ValidatorStakeInfo{
		activeValidator(1, 100),
		activeValidator(2, 50),
		activeValidator(3, 200),
	}

	receipts, err := CalcWithdrawals(20, onToOnePool(), validators, testLimits)
	require.NoError(t, err)

	require.Len(t, receipts, 1)
	assert.Equal(t, byte(2), receipts[0].VoteAccount[0])
	assert.Equal(t, SourceActive, receipts[0].Source)
	assert.Equal(t, uint64(20), receipts[0].Receipt.DropletsUnstaked)
}

func TestCalcWithdrawals_DropletsConserved(t *testing.T) {
	validators := []stakepool.ValidatorStakeInfo{
		activeValidator(1, 5_000),
		activeValidator(2, 3_000),
		activeValidator(3, 20_000),
		transientValidator(4, 10_000),
	}

	const requested = 25_000
	receipts, err := CalcWithdrawals(requested, onToOnePool(), validators, testLimits)
	require.NoError(t, err)
	require.NotEmpty(t, receipts)

	var sum uint64
	for _, r := range receipts {
		assert.NotZero(t, r.Receipt.DropletsUnstaked)
		sum += r.Receipt.DropletsUnstaked
	}
	assert.Equal(t, uint64(requested), sum)
}

func TestCalcWithdrawals_ActivePreferredOverTransient(t *testing.T) {
	validators := []stakepool.ValidatorStakeInfo{
		{
			VoteAccountAddress:     solana.PublicKey{0xaa},
			ActiveStakeLamports:    1_000,
			TransientStakeLamports: 50_000,
		},
	}

	receipts, err := CalcWithdrawals(500, onToOnePool(), validators, testLimits)
	require.NoError(t, err)

	require.Len(t, receipts, 1)
	assert.Equal(t, SourceActive, receipts[0].Source)
}

func TestCalcWithdrawals_RetainedMinimumRespected(t *testing.T) {
	// only 90 lamports above the retained minimum are available
	validators := []stakepool.ValidatorStakeInfo{activeValidator(1, 100)}

	limits := Limits{MinimumActiveStake: 10}
	_, err := CalcWithdrawals(91, onToOnePool(), validators, limits)

	var unserviceable *UnserviceableError
	require.ErrorAs(t, err, &unserviceable)
	assert.Equal(t, uint64(91), unserviceable.Requested)

	receipts, err := CalcWithdrawals(90, onToOnePool(), validators, limits)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
}

func TestCalcWithdrawals_TransientBufferRespected(t *testing.T) {
	// transient accounts reserve rent exemption plus the retained minimum
	validators := []stakepool.ValidatorStakeInfo{transientValidator(1, 1_000)}

	receipts, err := CalcWithdrawals(890, onToOnePool(), validators, testLimits)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, SourceTransient, receipts[0].Source)

	_, err = CalcWithdrawals(891, onToOnePool(), validators, testLimits)
	var unserviceable *UnserviceableError
	require.ErrorAs(t, err, &unserviceable)
}

func TestCalcWithdrawals_PreferredValidatorJumpsQueue(t *testing.T) {
	preferred := solana.PublicKey{0x03}
	pool := onToOnePool()
	pool.PreferredWithdrawVoter = &preferred

	validators := []stakepool.ValidatorStakeInfo{
		activeValidator(1, 100),
		activeValidator(2, 50),
		activeValidator(3, 200),
	}

	receipts, err := CalcWithdrawals(20, pool, validators, testLimits)
	require.NoError(t, err)

	require.Len(t, receipts, 1)
	assert.Equal(t, preferred, receipts[0].VoteAccount)
}

func TestCalcWithdrawalsInverse_ConservativeVersusForward(t *testing.T) {
	pool := &stakepool.StakePool{
		TotalLamports:      3_000_000,
		PoolTokenSupply:    2_000_000,
		StakeWithdrawalFee: stakepool.Fee{Numerator: 1, Denominator: 100},
	}
	validators := []stakepool.ValidatorStakeInfo{
		activeValidator(1, 500_000),
		activeValidator(2, 700_000),
	}

	const lamportsTarget = 600_000

	inverse, err := CalcWithdrawalsInverse(lamportsTarget, pool, validators, testLimits)
	require.NoError(t, err)

	var inverseDroplets uint64
	for _, r := range inverse {
		inverseDroplets += r.Receipt.DropletsUnstaked
	}

	// a forward plan for the same target, derived via the estimator
	forward, err := CalcWithdrawals(inverseDroplets, pool, validators, testLimits)
	require.NoError(t, err)

	forwardLamports, err := TotalWithdrawLamports(forward)
	require.NoError(t, err)

	// the inverse plan is best-effort: double truncation may shed a lamport
	// or two, but it must land essentially on the target, never far under
	assert.GreaterOrEqual(t, forwardLamports+2, uint64(lamportsTarget))
}

func TestTotals(t *testing.T) {
	pool := &stakepool.StakePool{
		TotalLamports:      1_000_000,
		PoolTokenSupply:    1_000_000,
		StakeWithdrawalFee: stakepool.Fee{Numerator: 1, Denominator: 100},
	}
	validators := []stakepool.ValidatorStakeInfo{
		activeValidator(1, 600_000),
		activeValidator(2, 600_000),
	}

	receipts, err := CalcWithdrawals(100_000, pool, validators, testLimits)
	require.NoError(t, err)

	lamports, err := TotalWithdrawLamports(receipts)
	require.NoError(t, err)
	assert.NotZero(t, lamports)

	feeDroplets, err := TotalWithdrawalFeesDroplets(receipts)
	require.NoError(t, err)
	assert.NotZero(t, feeDroplets)
}
