package txseq

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/samber/lo"

	"github.com/igneous-labs/stake-pool-sdk/pkg/stakepool"
	"github.com/igneous-labs/stake-pool-sdk/pkg/withdraw"
)

const stakeAccountSpace = 200

// Builder assembles transaction sequences against one pool instance.
type Builder struct {
	ProgramID   solana.PublicKey
	PoolAddress solana.PublicKey
	Config      Config
}

func NewBuilder(programID solana.PublicKey, poolAddress solana.PublicKey, cfg Config) *Builder {
	return &Builder{ProgramID: programID, PoolAddress: poolAddress, Config: cfg}
}

type staleEntry struct {
	index int
	info  stakepool.ValidatorStakeInfo
}

// RefreshBatches emits the three-phase refresh: per-validator balance
// batches (validators already current for currentEpoch are skipped), the
// pool aggregate recompute, and the removed-validator cleanup. Returns nil
// when the snapshot is already current.
func (b *Builder) RefreshBatches(pool *stakepool.StakePool, list *stakepool.ValidatorList, currentEpoch uint64) ([]Batch, error) {
	if !pool.IsStale(currentEpoch) {
		return nil, nil
	}

	withdrawAuth, err := stakepool.WithdrawAuthority(b.ProgramID, b.PoolAddress)
	if err != nil {
		return nil, err
	}

	var stale []staleEntry
	for i, info := range list.Validators {
		if info.LastUpdateEpoch < currentEpoch {
			stale = append(stale, staleEntry{index: i, info: info})
		}
	}

	var batches []Batch
	for _, chunk := range lo.Chunk(stale, b.Config.MaxValidatorsPerUpdate) {
		stakeAccounts := make([]solana.PublicKey, 0, 2*len(chunk))
		for _, entry := range chunk {
			mainAcct, err := stakepool.ValidatorStakeAccount(b.ProgramID, entry.info.VoteAccountAddress, b.PoolAddress)
			if err != nil {
				return nil, err
			}
			transientAcct, err := stakepool.TransientStakeAccount(b.ProgramID, entry.info.VoteAccountAddress, b.PoolAddress)
			if err != nil {
				return nil, err
			}
			stakeAccounts = append(stakeAccounts, mainAcct, transientAcct)
		}

		instr := stakepool.NewUpdateValidatorListBalanceInstruction(stakepool.UpdateValidatorListBalanceParams{
			ProgramID:     b.ProgramID,
			Pool:          b.PoolAddress,
			WithdrawAuth:  withdrawAuth,
			ValidatorList: pool.ValidatorList,
			ReserveStake:  pool.ReserveStake,
			StakeAccounts: stakeAccounts,
			StartIndex:    uint32(chunk[0].index),
			NoMerge:       false,
		})
		batches = append(batches, Batch{Ops: []Operation{{Instructions: []solana.Instruction{instr}}}})
	}

	updatePool := stakepool.NewUpdateStakePoolBalanceInstruction(stakepool.UpdateStakePoolBalanceParams{
		ProgramID:         b.ProgramID,
		Pool:              b.PoolAddress,
		WithdrawAuth:      withdrawAuth,
		ValidatorList:     pool.ValidatorList,
		ReserveStake:      pool.ReserveStake,
		ManagerFeeAccount: pool.ManagerFeeAccount,
		PoolMint:          pool.PoolMint,
	})
	batches = append(batches, Batch{Ops: []Operation{{Instructions: []solana.Instruction{updatePool}}}})

	cleanup := stakepool.NewCleanupRemovedValidatorEntriesInstruction(b.ProgramID, b.PoolAddress, pool.ValidatorList)
	batches = append(batches, Batch{Ops: []Operation{{Instructions: []solana.Instruction{cleanup}}}})

	return batches, nil
}

// DepositSolParams carries the caller-side accounts of a SOL deposit.
type DepositSolParams struct {
	Funder               solana.PublicKey
	DestinationTokenAcct solana.PublicKey
	ReferrerTokenAcct    solana.PublicKey
	Lamports             uint64
	// Setup holds instructions to run ahead of the deposit in the same
	// transaction, e.g. creating the destination token account.
	Setup []solana.Instruction
}

// DepositSolBatch emits the single-operation action batch for a SOL deposit.
func (b *Builder) DepositSolBatch(pool *stakepool.StakePool, params DepositSolParams) (Batch, error) {
	withdrawAuth, err := stakepool.WithdrawAuthority(b.ProgramID, b.PoolAddress)
	if err != nil {
		return Batch{}, err
	}

	instr := stakepool.NewDepositSolInstruction(stakepool.DepositSolParams{
		ProgramID:            b.ProgramID,
		Pool:                 b.PoolAddress,
		WithdrawAuth:         withdrawAuth,
		ReserveStake:         pool.ReserveStake,
		Funder:               params.Funder,
		DestinationTokenAcct: params.DestinationTokenAcct,
		ManagerFeeAccount:    pool.ManagerFeeAccount,
		ReferrerTokenAcct:    params.ReferrerTokenAcct,
		PoolMint:             pool.PoolMint,
		DepositAuthority:     pool.SolDepositAuthority,
		Lamports:             params.Lamports,
	})

	instrs := append(append([]solana.Instruction{}, params.Setup...), instr)
	return Batch{Ops: []Operation{{Instructions: instrs}}}, nil
}

// WithdrawStakeParams carries the caller-side accounts of a withdrawal.
type WithdrawStakeParams struct {
	Beneficiary     solana.PublicKey
	SourceTokenAcct solana.PublicKey
}

// WithdrawBatches turns an allocation plan into action batches. Each receipt
// becomes one operation that creates a fresh destination stake account and
// splits into it; the account's one-time identity co-signs the operation.
func (b *Builder) WithdrawBatches(pool *stakepool.StakePool, receipts []withdraw.ValidatorWithdrawalReceipt, params WithdrawStakeParams) ([]Batch, error) {
	withdrawAuth, err := stakepool.WithdrawAuthority(b.ProgramID, b.PoolAddress)
	if err != nil {
		return nil, err
	}

	var batches []Batch
	for _, chunk := range lo.Chunk(receipts, b.Config.MaxWithdrawalsPerTx) {
		batch := Batch{Ops: make([]Operation, 0, len(chunk))}

		for _, receipt := range chunk {
			splitFrom, err := b.splitSource(pool, receipt)
			if err != nil {
				return nil, err
			}

			destKey, err := solana.NewRandomPrivateKey()
			if err != nil {
				return nil, err
			}
			dest := destKey.PublicKey()

			createDest := system.NewCreateAccountInstruction(
				b.Config.StakeRentExemption,
				stakeAccountSpace,
				solana.StakeProgramID,
				params.Beneficiary,
				dest,
			).Build()

			split := stakepool.NewWithdrawStakeInstruction(stakepool.WithdrawStakeParams{
				ProgramID:         b.ProgramID,
				Pool:              b.PoolAddress,
				ValidatorList:     pool.ValidatorList,
				WithdrawAuth:      withdrawAuth,
				SplitFrom:         splitFrom,
				SplitTo:           dest,
				Beneficiary:       params.Beneficiary,
				TransferAuthority: params.Beneficiary,
				SourceTokenAcct:   params.SourceTokenAcct,
				ManagerFeeAccount: pool.ManagerFeeAccount,
				PoolMint:          pool.PoolMint,
				PoolTokens:        receipt.Receipt.DropletsUnstaked,
			})

			batch.Ops = append(batch.Ops, Operation{
				Instructions: []solana.Instruction{createDest, split},
				Signers:      []solana.PrivateKey{destKey},
			})
		}

		batches = append(batches, batch)
	}

	return batches, nil
}

func (b *Builder) splitSource(pool *stakepool.StakePool, receipt withdraw.ValidatorWithdrawalReceipt) (solana.PublicKey, error) {
	switch receipt.Source {
	case withdraw.SourceActive:
		return stakepool.ValidatorStakeAccount(b.ProgramID, receipt.VoteAccount, b.PoolAddress)
	case withdraw.SourceTransient:
		return stakepool.TransientStakeAccount(b.ProgramID, receipt.VoteAccount, b.PoolAddress)
	default:
		return pool.ReserveStake, nil
	}
}
