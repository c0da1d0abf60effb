package stakepool

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// instruction discriminants, matching the on-chain program's enum ordering
const (
	InstrTypeInitialize = iota
	InstrTypeAddValidatorToPool
	InstrTypeRemoveValidatorFromPool
	InstrTypeDecreaseValidatorStake
	InstrTypeIncreaseValidatorStake
	InstrTypeSetPreferredValidator
	InstrTypeUpdateValidatorListBalance
	InstrTypeUpdateStakePoolBalance
	InstrTypeCleanupRemovedValidatorEntries
	InstrTypeDepositStake
	InstrTypeWithdrawStake
	InstrTypeSetManager
	InstrTypeSetFee
	InstrTypeSetStaker
	InstrTypeDepositSol
	InstrTypeSetFundingAuthority
	InstrTypeWithdrawSol
)

type InstrUpdateValidatorListBalance struct {
	StartIndex uint32
	NoMerge    bool
}

func (instr *InstrUpdateValidatorListBalance) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteByte(InstrTypeUpdateValidatorListBalance)
	if err != nil {
		return err
	}

	err = encoder.WriteUint32(instr.StartIndex, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteBool(instr.NoMerge)
}

type InstrDepositSol struct {
	Lamports uint64
}

func (instr *InstrDepositSol) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteByte(InstrTypeDepositSol)
	if err != nil {
		return err
	}

	return encoder.WriteUint64(instr.Lamports, bin.LE)
}

type InstrWithdrawStake struct {
	PoolTokens uint64
}

func (instr *InstrWithdrawStake) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteByte(InstrTypeWithdrawStake)
	if err != nil {
		return err
	}

	return encoder.WriteUint64(instr.PoolTokens, bin.LE)
}

func marshalInstrData(instr interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}) []byte {
	writer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(writer)
	if err := instr.MarshalWithEncoder(encoder); err != nil {
		panic("instruction data encoding cannot fail: " + err.Error())
	}
	return writer.Bytes()
}

// UpdateValidatorListBalanceParams covers one contiguous slice of the
// validator list. StakeAccounts holds the main and transient stake account
// of every validator in the slice, in list order.
type UpdateValidatorListBalanceParams struct {
	ProgramID     solana.PublicKey
	Pool          solana.PublicKey
	WithdrawAuth  solana.PublicKey
	ValidatorList solana.PublicKey
	ReserveStake  solana.PublicKey
	StakeAccounts []solana.PublicKey
	StartIndex    uint32
	NoMerge       bool
}

func NewUpdateValidatorListBalanceInstruction(params UpdateValidatorListBalanceParams) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(params.Pool),
		solana.Meta(params.WithdrawAuth),
		solana.Meta(params.ValidatorList).WRITE(),
		solana.Meta(params.ReserveStake).WRITE(),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.SysVarStakeHistoryPubkey),
		solana.Meta(solana.StakeProgramID),
	}
	for _, acct := range params.StakeAccounts {
		metas = append(metas, solana.Meta(acct).WRITE())
	}

	data := marshalInstrData(&InstrUpdateValidatorListBalance{
		StartIndex: params.StartIndex,
		NoMerge:    params.NoMerge,
	})

	return solana.NewInstruction(params.ProgramID, metas, data)
}

type UpdateStakePoolBalanceParams struct {
	ProgramID         solana.PublicKey
	Pool              solana.PublicKey
	WithdrawAuth      solana.PublicKey
	ValidatorList     solana.PublicKey
	ReserveStake      solana.PublicKey
	ManagerFeeAccount solana.PublicKey
	PoolMint          solana.PublicKey
}

func NewUpdateStakePoolBalanceInstruction(params UpdateStakePoolBalanceParams) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(params.Pool).WRITE(),
		solana.Meta(params.WithdrawAuth),
		solana.Meta(params.ValidatorList).WRITE(),
		solana.Meta(params.ReserveStake),
		solana.Meta(params.ManagerFeeAccount).WRITE(),
		solana.Meta(params.PoolMint).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}

	return solana.NewInstruction(params.ProgramID, metas, []byte{InstrTypeUpdateStakePoolBalance})
}

func NewCleanupRemovedValidatorEntriesInstruction(programID solana.PublicKey, pool solana.PublicKey, validatorList solana.PublicKey) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(pool),
		solana.Meta(validatorList).WRITE(),
	}

	return solana.NewInstruction(programID, metas, []byte{InstrTypeCleanupRemovedValidatorEntries})
}

type DepositSolParams struct {
	ProgramID            solana.PublicKey
	Pool                 solana.PublicKey
	WithdrawAuth         solana.PublicKey
	ReserveStake         solana.PublicKey
	Funder               solana.PublicKey
	DestinationTokenAcct solana.PublicKey
	ManagerFeeAccount    solana.PublicKey
	ReferrerTokenAcct    solana.PublicKey
	PoolMint             solana.PublicKey
	DepositAuthority     *solana.PublicKey
	Lamports             uint64
}

func NewDepositSolInstruction(params DepositSolParams) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(params.Pool).WRITE(),
		solana.Meta(params.WithdrawAuth),
		solana.Meta(params.ReserveStake).WRITE(),
		solana.Meta(params.Funder).WRITE().SIGNER(),
		solana.Meta(params.DestinationTokenAcct).WRITE(),
		solana.Meta(params.ManagerFeeAccount).WRITE(),
		solana.Meta(params.ReferrerTokenAcct).WRITE(),
		solana.Meta(params.PoolMint).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}
	if params.DepositAuthority != nil {
		metas = append(metas, solana.Meta(*params.DepositAuthority).SIGNER())
	}

	data := marshalInstrData(&InstrDepositSol{Lamports: params.Lamports})

	return solana.NewInstruction(params.ProgramID, metas, data)
}

type WithdrawStakeParams struct {
	ProgramID         solana.PublicKey
	Pool              solana.PublicKey
	ValidatorList     solana.PublicKey
	WithdrawAuth      solana.PublicKey
	SplitFrom         solana.PublicKey
	SplitTo           solana.PublicKey
	Beneficiary       solana.PublicKey
	TransferAuthority solana.PublicKey
	SourceTokenAcct   solana.PublicKey
	ManagerFeeAccount solana.PublicKey
	PoolMint          solana.PublicKey
	PoolTokens        uint64
}

func NewWithdrawStakeInstruction(params WithdrawStakeParams) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(params.Pool).WRITE(),
		solana.Meta(params.ValidatorList).WRITE(),
		solana.Meta(params.WithdrawAuth),
		solana.Meta(params.SplitFrom).WRITE(),
		solana.Meta(params.SplitTo).WRITE(),
		solana.Meta(params.Beneficiary),
		solana.Meta(params.TransferAuthority).SIGNER(),
		solana.Meta(params.SourceTokenAcct).WRITE(),
		solana.Meta(params.ManagerFeeAccount).WRITE(),
		solana.Meta(params.PoolMint).WRITE(),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.StakeProgramID),
	}

	data := marshalInstrData(&InstrWithdrawStake{PoolTokens: params.PoolTokens})

	return solana.NewInstruction(params.ProgramID, metas, data)
}

type DepositStakeParams struct {
	ProgramID            solana.PublicKey
	Pool                 solana.PublicKey
	ValidatorList        solana.PublicKey
	DepositAuthority     solana.PublicKey
	WithdrawAuth         solana.PublicKey
	DepositStakeAcct     solana.PublicKey
	ValidatorStakeAcct   solana.PublicKey
	ReserveStake         solana.PublicKey
	DestinationTokenAcct solana.PublicKey
	ManagerFeeAccount    solana.PublicKey
	ReferrerTokenAcct    solana.PublicKey
	PoolMint             solana.PublicKey
}

func NewDepositStakeInstruction(params DepositStakeParams) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(params.Pool).WRITE(),
		solana.Meta(params.ValidatorList).WRITE(),
		solana.Meta(params.DepositAuthority),
		solana.Meta(params.WithdrawAuth),
		solana.Meta(params.DepositStakeAcct).WRITE(),
		solana.Meta(params.ValidatorStakeAcct).WRITE(),
		solana.Meta(params.ReserveStake).WRITE(),
		solana.Meta(params.DestinationTokenAcct).WRITE(),
		solana.Meta(params.ManagerFeeAccount).WRITE(),
		solana.Meta(params.ReferrerTokenAcct).WRITE(),
		solana.Meta(params.PoolMint).WRITE(),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.SysVarStakeHistoryPubkey),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.StakeProgramID),
	}

	return solana.NewInstruction(params.ProgramID, metas, []byte{InstrTypeDepositStake})
}
