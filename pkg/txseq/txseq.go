// Package txseq turns a computed deposit or withdrawal plan into ordered
// batches of ledger transactions and executes them with a per-batch
// confirmation barrier.
package txseq

import (
	"github.com/gagliardetto/solana-go"
)

// Operation is one atomic ledger transaction: its instructions plus any
// one-time signing identities required beyond the primary wallet.
type Operation struct {
	Instructions []solana.Instruction
	Signers      []solana.PrivateKey
}

// Batch is a set of independent operations confirmed together. Operations
// within a batch carry no ordering guarantee relative to each other.
type Batch struct {
	Ops []Operation
}

// Sequence is an ordered list of batches. Batch i+1 must not be submitted
// until every operation in batch i is confirmed.
type Sequence struct {
	Batches []Batch
}

func (seq *Sequence) Append(batches ...Batch) {
	seq.Batches = append(seq.Batches, batches...)
}

// Config holds the per-batch capacity limits. These are empirically tuned
// to the transport's message-size budget, not business rules; override them
// per target environment.
type Config struct {
	// MaxValidatorsPerUpdate caps how many validators one balance-refresh
	// transaction covers.
	MaxValidatorsPerUpdate int
	// MaxWithdrawalsPerTx caps how many stake splits ride in one
	// withdrawal batch.
	MaxWithdrawalsPerTx int
	// StakeRentExemption funds each freshly created destination stake
	// account.
	StakeRentExemption uint64
}

func DefaultConfig() Config {
	return Config{
		MaxValidatorsPerUpdate: 5,
		MaxWithdrawalsPerTx:    4,
		StakeRentExemption:     2_282_880,
	}
}
