// Package fees reproduces the pool program's deposit and withdrawal
// accounting off-chain. Every function here is pure integer arithmetic over a
// point-in-time pool snapshot and must match the on-chain order of operations
// bit for bit, so that a caller knows the outcome of an operation before
// submitting it.
package fees

import (
	"math"

	"github.com/ryanavella/wide"

	"github.com/igneous-labs/stake-pool-sdk/pkg/safemath"
	"github.com/igneous-labs/stake-pool-sdk/pkg/stakepool"
)

// DepositReceipt is the predicted outcome of depositing lamports into the
// pool. ReferralFeePaid is the portion of DropletsFeePaid directed to the
// referrer, never more than the fee itself.
type DepositReceipt struct {
	LamportsStaked   uint64
	DropletsReceived uint64
	DropletsFeePaid  uint64
	ReferralFeePaid  uint64
}

// WithdrawalReceipt is the predicted outcome of burning droplets against one
// stake account. A zero LamportsReceived is valid output for a withdrawal too
// small to yield anything back.
type WithdrawalReceipt struct {
	DropletsUnstaked uint64
	LamportsReceived uint64
	DropletsFeePaid  uint64
}

// mulDivFloor computes a * b / c with a u128 intermediate, flooring.
func mulDivFloor(a uint64, b uint64, c uint64) (uint64, error) {
	if c == 0 {
		return 0, safemath.ErrDivideByZero
	}

	numerator, err := safemath.CheckedMulU128(wide.Uint128FromUint64(a), wide.Uint128FromUint64(b))
	if err != nil {
		return 0, err
	}

	result := numerator.Div(wide.Uint128FromUint64(c))
	if !result.IsUint64() {
		return 0, safemath.ErrOverflow
	}
	return result.Uint64(), nil
}

// CalcDeposit predicts the outcome of depositing lamportsIn at the supplied
// snapshot. An empty pool (zero total lamports or zero supply) prices
// droplets 1:1. The fee/referral pair differs between SOL deposits and
// stake account deposits; everything else is shared.
func CalcDeposit(lamportsIn uint64, pool *stakepool.StakePool, fee stakepool.Fee, referralPercent uint8) (DepositReceipt, error) {
	minted := lamportsIn
	if pool.TotalLamports != 0 && pool.PoolTokenSupply != 0 {
		var err error
		minted, err = mulDivFloor(lamportsIn, pool.PoolTokenSupply, pool.TotalLamports)
		if err != nil {
			return DepositReceipt{}, err
		}
	}

	var feePaid uint64
	if !fee.IsZero() {
		var err error
		feePaid, err = mulDivFloor(fee.Numerator, minted, fee.Denominator)
		if err != nil {
			return DepositReceipt{}, err
		}
	}

	referralPaid, err := mulDivFloor(feePaid, uint64(referralPercent), 100)
	if err != nil {
		return DepositReceipt{}, err
	}

	// fee fraction < 1 is enforced on-chain, so this cannot underflow
	received, err := safemath.CheckedSubU64(minted, feePaid)
	if err != nil {
		return DepositReceipt{}, err
	}

	return DepositReceipt{
		LamportsStaked:   lamportsIn,
		DropletsReceived: received,
		DropletsFeePaid:  feePaid,
		ReferralFeePaid:  referralPaid,
	}, nil
}

// CalcWithdrawalReceipt predicts the outcome of burning dropletsToUnstake at
// the supplied snapshot. Lamports are rounded up, mirroring the on-chain
// program which always rounds in the protocol's favor; the sub-droplet case
// where the numerator is smaller than the supply pays out zero.
func CalcWithdrawalReceipt(dropletsToUnstake uint64, pool *stakepool.StakePool) (WithdrawalReceipt, error) {
	var feePaid uint64
	if !pool.StakeWithdrawalFee.IsZero() {
		var err error
		feePaid, err = mulDivFloor(pool.StakeWithdrawalFee.Numerator, dropletsToUnstake, pool.StakeWithdrawalFee.Denominator)
		if err != nil {
			return WithdrawalReceipt{}, err
		}
	}

	burnt, err := safemath.CheckedSubU64(dropletsToUnstake, feePaid)
	if err != nil {
		return WithdrawalReceipt{}, err
	}

	numerator, err := safemath.CheckedMulU128(wide.Uint128FromUint64(burnt), wide.Uint128FromUint64(pool.TotalLamports))
	if err != nil {
		return WithdrawalReceipt{}, err
	}

	supply := wide.Uint128FromUint64(pool.PoolTokenSupply)

	var lamports uint64
	if pool.PoolTokenSupply != 0 && numerator.Cmp(supply) >= 0 {
		quotient, err := safemath.CeilDivU128(numerator, supply)
		if err != nil {
			return WithdrawalReceipt{}, err
		}
		if !quotient.IsUint64() {
			return WithdrawalReceipt{}, safemath.ErrOverflow
		}
		lamports = quotient.Uint64()
	}

	return WithdrawalReceipt{
		DropletsUnstaked: dropletsToUnstake,
		LamportsReceived: lamports,
		DropletsFeePaid:  feePaid,
	}, nil
}

// EstDropletsUnstakedByWithdrawal estimates how many droplets must be burnt
// to receive lamportsReceived back. Approximate inverse of
// CalcWithdrawalReceipt: integer truncation loses precision for small
// amounts, so only the forward receipt is authoritative. Saturates instead
// of failing on overflow.
func EstDropletsUnstakedByWithdrawal(lamportsReceived uint64, pool *stakepool.StakePool) uint64 {
	droplets := lamportsReceived
	if pool.TotalLamports != 0 && pool.PoolTokenSupply != 0 {
		var err error
		droplets, err = mulDivFloor(lamportsReceived, pool.PoolTokenSupply, pool.TotalLamports)
		if err != nil {
			return math.MaxUint64
		}
	}

	fee := pool.StakeWithdrawalFee
	if !fee.IsZero() && fee.Denominator > fee.Numerator {
		var err error
		droplets, err = mulDivFloor(droplets, fee.Denominator, fee.Denominator-fee.Numerator)
		if err != nil {
			return math.MaxUint64
		}
	}

	return droplets
}
