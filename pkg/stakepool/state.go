package stakepool

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/igneous-labs/stake-pool-sdk/pkg/safemath"
)

const (
	AccountTypeUninitialized = iota
	AccountTypeStakePool
	AccountTypeValidatorList
)

const (
	StakeStatusActive = iota
	StakeStatusDeactivatingTransient
	StakeStatusReadyForRemoval
)

// Fee is a rational fee fraction. The on-chain program guarantees
// Numerator/Denominator <= 1 for every fee it stores.
type Fee struct {
	Numerator   uint64
	Denominator uint64
}

func (fee Fee) IsZero() bool {
	return fee.Numerator == 0 || fee.Denominator == 0
}

type Lockup struct {
	UnixTimestamp uint64
	Epoch         uint64
	Custodian     solana.PublicKey
}

// StakePool is a point-in-time copy of the pool account. TotalLamports and
// PoolTokenSupply are jointly valid only as of LastUpdateEpoch.
type StakePool struct {
	AccountType            uint8
	Manager                solana.PublicKey
	Staker                 solana.PublicKey
	StakeDepositAuthority  solana.PublicKey
	StakeWithdrawBumpSeed  uint8
	ValidatorList          solana.PublicKey
	ReserveStake           solana.PublicKey
	PoolMint               solana.PublicKey
	ManagerFeeAccount      solana.PublicKey
	TokenProgramId         solana.PublicKey
	TotalLamports          uint64
	PoolTokenSupply        uint64
	LastUpdateEpoch        uint64
	Lockup                 Lockup
	EpochFee               Fee
	NextEpochFee           *Fee
	PreferredDepositVoter  *solana.PublicKey
	PreferredWithdrawVoter *solana.PublicKey
	StakeDepositFee        Fee
	StakeWithdrawalFee     Fee
	NextWithdrawalFee      *Fee
	StakeReferralFee       uint8
	SolDepositAuthority    *solana.PublicKey
	SolDepositFee          Fee
	SolReferralFee         uint8
	SolWithdrawAuthority   *solana.PublicKey
	SolWithdrawalFee       Fee
}

// IsStale reports whether the snapshot's aggregates predate currentEpoch and
// must be refreshed on-chain before being relied upon.
func (sp *StakePool) IsStale(currentEpoch uint64) bool {
	return sp.LastUpdateEpoch < currentEpoch
}

// ValidatorStakeInfo is one validator's entry in the pool's validator list.
type ValidatorStakeInfo struct {
	Status                 uint8
	VoteAccountAddress     solana.PublicKey
	ActiveStakeLamports    uint64
	TransientStakeLamports uint64
	LastUpdateEpoch        uint64
}

// TotalLamports returns the validator's combined active and transient stake,
// saturating rather than wrapping.
func (info *ValidatorStakeInfo) TotalLamports() uint64 {
	return safemath.SaturatingAddU64(info.ActiveStakeLamports, info.TransientStakeLamports)
}

type ValidatorList struct {
	AccountType   uint8
	MaxValidators uint32
	Validators    []ValidatorStakeInfo
}

func (fee *Fee) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	fee.Denominator, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	fee.Numerator, err = decoder.ReadUint64(bin.LE)
	return err
}

func (lockup *Lockup) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	lockup.UnixTimestamp, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	lockup.Epoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(lockup.Custodian[:], pk)

	return nil
}

func readPubkey(decoder *bin.Decoder, dst *solana.PublicKey) error {
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(dst[:], pk)
	return nil
}

func readOptionPubkey(decoder *bin.Decoder) (*solana.PublicKey, error) {
	present, err := decoder.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}

	var pk solana.PublicKey
	if err = readPubkey(decoder, &pk); err != nil {
		return nil, err
	}
	return &pk, nil
}

func readOptionFee(decoder *bin.Decoder) (*Fee, error) {
	present, err := decoder.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}

	var fee Fee
	if err = fee.UnmarshalWithDecoder(decoder); err != nil {
		return nil, err
	}
	return &fee, nil
}

func (sp *StakePool) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	sp.AccountType, err = decoder.ReadByte()
	if err != nil {
		return err
	}
	if sp.AccountType != AccountTypeStakePool {
		return ErrWrongAccountType
	}

	for _, pk := range []*solana.PublicKey{&sp.Manager, &sp.Staker, &sp.StakeDepositAuthority} {
		if err = readPubkey(decoder, pk); err != nil {
			return err
		}
	}

	sp.StakeWithdrawBumpSeed, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	for _, pk := range []*solana.PublicKey{&sp.ValidatorList, &sp.ReserveStake, &sp.PoolMint, &sp.ManagerFeeAccount, &sp.TokenProgramId} {
		if err = readPubkey(decoder, pk); err != nil {
			return err
		}
	}

	sp.TotalLamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	sp.PoolTokenSupply, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	sp.LastUpdateEpoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	err = sp.Lockup.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = sp.EpochFee.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	sp.NextEpochFee, err = readOptionFee(decoder)
	if err != nil {
		return err
	}

	sp.PreferredDepositVoter, err = readOptionPubkey(decoder)
	if err != nil {
		return err
	}

	sp.PreferredWithdrawVoter, err = readOptionPubkey(decoder)
	if err != nil {
		return err
	}

	err = sp.StakeDepositFee.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = sp.StakeWithdrawalFee.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	sp.NextWithdrawalFee, err = readOptionFee(decoder)
	if err != nil {
		return err
	}

	sp.StakeReferralFee, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	sp.SolDepositAuthority, err = readOptionPubkey(decoder)
	if err != nil {
		return err
	}

	err = sp.SolDepositFee.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	sp.SolReferralFee, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	sp.SolWithdrawAuthority, err = readOptionPubkey(decoder)
	if err != nil {
		return err
	}

	err = sp.SolWithdrawalFee.UnmarshalWithDecoder(decoder)
	return err
}

func (info *ValidatorStakeInfo) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	info.Status, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	if err = readPubkey(decoder, &info.VoteAccountAddress); err != nil {
		return err
	}

	info.ActiveStakeLamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	info.TransientStakeLamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	info.LastUpdateEpoch, err = decoder.ReadUint64(bin.LE)
	return err
}

func (list *ValidatorList) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	list.AccountType, err = decoder.ReadByte()
	if err != nil {
		return err
	}
	if list.AccountType != AccountTypeValidatorList {
		return ErrWrongAccountType
	}

	list.MaxValidators, err = decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}

	numValidators, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}

	list.Validators = make([]ValidatorStakeInfo, numValidators)
	for i := uint32(0); i < numValidators; i++ {
		if err = list.Validators[i].UnmarshalWithDecoder(decoder); err != nil {
			return err
		}
	}

	return nil
}

// UnmarshalStakePool decodes a stake pool account's raw data.
func UnmarshalStakePool(data []byte) (*StakePool, error) {
	sp := new(StakePool)
	decoder := bin.NewBinDecoder(data)
	if err := sp.UnmarshalWithDecoder(decoder); err != nil {
		return nil, err
	}
	return sp, nil
}

// UnmarshalValidatorList decodes a validator list account's raw data.
func UnmarshalValidatorList(data []byte) (*ValidatorList, error) {
	list := new(ValidatorList)
	decoder := bin.NewBinDecoder(data)
	if err := list.UnmarshalWithDecoder(decoder); err != nil {
		return nil, err
	}
	return list, nil
}
