package stakepool

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrWrongAccountType = errors.New("ErrWrongAccountType")
	ErrNoPdaFound       = errors.New("ErrNoPdaFound")
)

// ProgramID is the deployed stake pool program.
var ProgramID = solana.MustPublicKeyFromBase58("SPoo1Ku8WFXoNDMHPsrGSTSG1Y47rzgn41SLUNakuHy")

// Cluster names a deployed pool instance and the endpoint used to reach it.
type Cluster struct {
	Name          string
	RPCEndpoint   string
	ProgramID     solana.PublicKey
	Pool          solana.PublicKey
	ValidatorList solana.PublicKey
}

var MainnetBeta = Cluster{
	Name:          "mainnet-beta",
	RPCEndpoint:   "https://api.mainnet-beta.solana.com",
	ProgramID:     ProgramID,
	Pool:          solana.MustPublicKeyFromBase58("5oc4nmbNTda9fx8Tw57ShLD132aqDK65vuHH4RU1K4LZ"),
	ValidatorList: solana.MustPublicKeyFromBase58("3vQs4QS2gp14kYM7CnispE1gRuCzoGd5Q5hhZhS9uz7B"),
}

var Testnet = Cluster{
	Name:          "testnet",
	RPCEndpoint:   "https://api.testnet.solana.com",
	ProgramID:     ProgramID,
	Pool:          solana.MustPublicKeyFromBase58("FguGmPVjiNL6YJXCrUBaj35CHdqVasbA4PUqtw3B32Jt"),
	ValidatorList: solana.MustPublicKeyFromBase58("J9BmkhV1wSp4XZwCKpvFC8N7gRuYbD8fZ4zrGXyQ8n3t"),
}

var Devnet = Cluster{
	Name:          "devnet",
	RPCEndpoint:   "https://api.devnet.solana.com",
	ProgramID:     ProgramID,
	Pool:          solana.MustPublicKeyFromBase58("HFyGKeQQ4yZV8RrzViiisDtw881ENW7xEFWWAFcwp5CQ"),
	ValidatorList: solana.MustPublicKeyFromBase58("4JGBFujZFHZXw2cYPKXda927EUFBgXUUgs4TyxdUPBMy"),
}

// ClusterByName looks up one of the preset clusters.
func ClusterByName(name string) (Cluster, bool) {
	switch name {
	case MainnetBeta.Name:
		return MainnetBeta, true
	case Testnet.Name:
		return Testnet, true
	case Devnet.Name:
		return Devnet, true
	}
	return Cluster{}, false
}

// WithdrawAuthority derives the pool's withdraw authority PDA.
func WithdrawAuthority(programID solana.PublicKey, pool solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{pool[:], []byte("withdraw")},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, ErrNoPdaFound
	}
	return pda, nil
}

// ValidatorStakeAccount derives the pool's main stake account for a validator.
func ValidatorStakeAccount(programID solana.PublicKey, voteAccount solana.PublicKey, pool solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{voteAccount[:], pool[:]},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, ErrNoPdaFound
	}
	return pda, nil
}

// TransientStakeAccount derives the pool's transient stake account for a
// validator, holding in-flight activations and deactivations.
func TransientStakeAccount(programID solana.PublicKey, voteAccount solana.PublicKey, pool solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("transient"), voteAccount[:], pool[:]},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, ErrNoPdaFound
	}
	return pda, nil
}
