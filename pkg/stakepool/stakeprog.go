package stakepool

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// stake program authorize roles
const (
	StakeAuthorizeStaker = iota
	StakeAuthorizeWithdrawer
)

const stakeInstrTypeAuthorize = 1

// NewStakeAuthorizeInstruction hands a stake account's staker or withdrawer
// role to a new authority. Needed when depositing a whole stake account:
// both roles move to the pool's deposit authority first.
func NewStakeAuthorizeInstruction(stakeAccount solana.PublicKey, currentAuthority solana.PublicKey, newAuthority solana.PublicKey, role uint32) solana.Instruction {
	writer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(writer)
	_ = encoder.WriteUint32(stakeInstrTypeAuthorize, bin.LE)
	_ = encoder.WriteBytes(newAuthority[:], false)
	_ = encoder.WriteUint32(role, bin.LE)

	metas := solana.AccountMetaSlice{
		solana.Meta(stakeAccount).WRITE(),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(currentAuthority).SIGNER(),
	}

	return solana.NewInstruction(solana.StakeProgramID, metas, writer.Bytes())
}
