// Package withdraw splits a requested withdrawal across the pool's
// validator stake accounts, honoring which sub-accounts are currently
// eligible to be reduced.
package withdraw

import (
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"

	"github.com/igneous-labs/stake-pool-sdk/pkg/fees"
	"github.com/igneous-labs/stake-pool-sdk/pkg/safemath"
	"github.com/igneous-labs/stake-pool-sdk/pkg/stakepool"
	"github.com/igneous-labs/stake-pool-sdk/pkg/util"
)

// StakeSource identifies which of a validator's sub-accounts (or the pool
// reserve) a receipt draws from.
type StakeSource int

const (
	SourceActive StakeSource = iota
	SourceTransient
	SourceReserve
)

func (s StakeSource) String() string {
	switch s {
	case SourceActive:
		return "active"
	case SourceTransient:
		return "transient"
	case SourceReserve:
		return "reserve"
	}
	return "unknown"
}

// ValidatorWithdrawalReceipt binds a withdrawal receipt to the sub-account
// it draws from. VoteAccount is zero when Source is SourceReserve.
type ValidatorWithdrawalReceipt struct {
	Source      StakeSource
	VoteAccount solana.PublicKey
	Receipt     fees.WithdrawalReceipt
}

// UnserviceableError reports that the requested amount cannot be honored
// without violating a rounding or eligibility invariant. The condition is
// usually time-dependent; callers should retry next epoch, not resubmit.
type UnserviceableError struct {
	Requested uint64
	Remaining uint64
	Reason    string
}

func (e *UnserviceableError) Error() string {
	return fmt.Sprintf("cannot service withdrawal of %d droplets (%d unallocated): %s", e.Requested, e.Remaining, e.Reason)
}

// Limits are the per-validator floors the allocator must leave untouched.
// MinimumActiveStake keeps a drained validator removable later;
// StakeRentExemption covers the transient account's rent-exempt reserve.
type Limits struct {
	MinimumActiveStake uint64
	StakeRentExemption uint64
}

func DefaultLimits() Limits {
	return Limits{
		MinimumActiveStake: 1_000_000,
		StakeRentExemption: 2_282_880,
	}
}

// availableLamports returns how much may currently be drawn from a
// validator, and from which sub-account. A validator with any active stake
// must be drained from its active account; only a fully-deactivated one may
// be drained from its transient account.
func availableLamports(info *stakepool.ValidatorStakeInfo, limits Limits) (uint64, StakeSource) {
	if info.ActiveStakeLamports > 0 {
		return safemath.SaturatingSubU64(info.ActiveStakeLamports, limits.MinimumActiveStake), SourceActive
	}
	buffer := safemath.SaturatingAddU64(limits.StakeRentExemption, limits.MinimumActiveStake)
	return safemath.SaturatingSubU64(info.TransientStakeLamports, buffer), SourceTransient
}

// sortForDraining orders validators lightest first, so that lightly-staked
// validators are drained (and become removable) before heavily-weighted ones
// are perturbed. A preferred withdraw validator set on the pool jumps the
// queue. Vote account order breaks ties deterministically.
func sortForDraining(validators []stakepool.ValidatorStakeInfo, preferred *solana.PublicKey) []stakepool.ValidatorStakeInfo {
	sorted := make([]stakepool.ValidatorStakeInfo, len(validators))
	copy(sorted, validators)

	sort.SliceStable(sorted, func(i, j int) bool {
		if preferred != nil {
			if sorted[i].VoteAccountAddress == *preferred {
				return true
			}
			if sorted[j].VoteAccountAddress == *preferred {
				return false
			}
		}
		ti, tj := sorted[i].TotalLamports(), sorted[j].TotalLamports()
		if ti != tj {
			return ti < tj
		}
		return util.PubkeyCmp(sorted[i].VoteAccountAddress, sorted[j].VoteAccountAddress)
	})

	return sorted
}

// CalcWithdrawals splits a withdrawal of totalDroplets into per-sub-account
// receipts whose droplet amounts sum to exactly totalDroplets. An empty
// validator list services the whole amount from the pool's reserve.
func CalcWithdrawals(totalDroplets uint64, pool *stakepool.StakePool, validators []stakepool.ValidatorStakeInfo, limits Limits) ([]ValidatorWithdrawalReceipt, error) {
	if len(validators) == 0 {
		receipt, err := fees.CalcWithdrawalReceipt(totalDroplets, pool)
		if err != nil {
			return nil, err
		}
		return []ValidatorWithdrawalReceipt{{Source: SourceReserve, Receipt: receipt}}, nil
	}

	sorted := sortForDraining(validators, pool.PreferredWithdrawVoter)

	receipts := make([]ValidatorWithdrawalReceipt, 0, len(sorted))
	remaining := totalDroplets

	for i := range sorted {
		if remaining == 0 {
			break
		}

		info := &sorted[i]
		available, source := availableLamports(info, limits)
		if available == 0 {
			continue
		}

		serviceable := fees.EstDropletsUnstakedByWithdrawal(available, pool)
		take := min(remaining, serviceable)
		if take == 0 {
			continue
		}

		receipt, err := fees.CalcWithdrawalReceipt(take, pool)
		if err != nil {
			return nil, err
		}
		if receipt.LamportsReceived > available {
			// rounding pushed the payout past what the sub-account holds;
			// refuse rather than under- or over-draw
			return nil, &UnserviceableError{
				Requested: totalDroplets,
				Remaining: remaining,
				Reason: fmt.Sprintf("receipt for %d droplets needs %d lamports but %s account of %s only has %d available",
					take, receipt.LamportsReceived, source, info.VoteAccountAddress, available),
			}
		}

		receipts = append(receipts, ValidatorWithdrawalReceipt{
			Source:      source,
			VoteAccount: info.VoteAccountAddress,
			Receipt:     receipt,
		})
		remaining -= take

		klog.V(2).Infof("allocated %d droplets (%d lamports) to %s account of %s",
			take, receipt.LamportsReceived, source, info.VoteAccountAddress)
	}

	if remaining > 0 {
		return nil, &UnserviceableError{
			Requested: totalDroplets,
			Remaining: remaining,
			Reason:    "too many validators have stake mid-transition, retry next epoch",
		}
	}

	return receipts, nil
}

// CalcWithdrawalsInverse allocates a target lamport payout across
// validators, returning the droplet amounts to burn per sub-account. The
// droplet totals are estimates and always conservative: summed droplets are
// >= the forward plan's for the same lamport target. Best-effort only; the
// forward allocator is authoritative.
func CalcWithdrawalsInverse(totalLamports uint64, pool *stakepool.StakePool, validators []stakepool.ValidatorStakeInfo, limits Limits) ([]ValidatorWithdrawalReceipt, error) {
	if len(validators) == 0 {
		droplets := fees.EstDropletsUnstakedByWithdrawal(totalLamports, pool)
		receipt, err := fees.CalcWithdrawalReceipt(droplets, pool)
		if err != nil {
			return nil, err
		}
		return []ValidatorWithdrawalReceipt{{Source: SourceReserve, Receipt: receipt}}, nil
	}

	sorted := sortForDraining(validators, pool.PreferredWithdrawVoter)

	receipts := make([]ValidatorWithdrawalReceipt, 0, len(sorted))
	remaining := totalLamports

	for i := range sorted {
		if remaining == 0 {
			break
		}

		info := &sorted[i]
		available, source := availableLamports(info, limits)
		if available == 0 {
			continue
		}

		take := min(remaining, available)
		droplets := fees.EstDropletsUnstakedByWithdrawal(take, pool)
		if droplets == 0 {
			continue
		}

		receipt, err := fees.CalcWithdrawalReceipt(droplets, pool)
		if err != nil {
			return nil, err
		}

		receipts = append(receipts, ValidatorWithdrawalReceipt{
			Source:      source,
			VoteAccount: info.VoteAccountAddress,
			Receipt:     receipt,
		})
		remaining = safemath.SaturatingSubU64(remaining, take)
	}

	if remaining > 0 {
		return nil, &UnserviceableError{
			Requested: totalLamports,
			Remaining: remaining,
			Reason:    "too many validators have stake mid-transition, retry next epoch",
		}
	}

	return receipts, nil
}

// TotalWithdrawLamports sums the lamports paid out across a receipt set.
func TotalWithdrawLamports(receipts []ValidatorWithdrawalReceipt) (uint64, error) {
	var total uint64
	var err error
	for i := range receipts {
		total, err = safemath.CheckedAddU64(total, receipts[i].Receipt.LamportsReceived)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// TotalWithdrawalFeesDroplets sums the droplet fees paid across a receipt set.
func TotalWithdrawalFeesDroplets(receipts []ValidatorWithdrawalReceipt) (uint64, error) {
	var total uint64
	var err error
	for i := range receipts {
		total, err = safemath.CheckedAddU64(total, receipts[i].Receipt.DropletsFeePaid)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
