package txseq

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igneous-labs/stake-pool-sdk/pkg/wallet"
)

// fakeTransport records submissions and confirms everything until failAfter
// submissions have been seen.
type fakeTransport struct {
	mu            sync.Mutex
	submitted     int
	attempts      int
	rejectAttempt int   // reject the Nth submission attempt; 0 accepts all
	barriers      []int // submissions seen at each AwaitConfirmations call
	failAfter     int   // 0 means never fail
	pendingTxs    []*solana.Transaction
}

func (f *fakeTransport) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var h solana.Hash
	_, _ = rand.Read(h[:])
	return h, nil
}

func (f *fakeTransport) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.rejectAttempt > 0 && f.attempts == f.rejectAttempt {
		return solana.Signature{}, assert.AnError
	}
	f.submitted++
	f.pendingTxs = append(f.pendingTxs, tx)
	return tx.Signatures[0], nil
}

func (f *fakeTransport) AwaitConfirmations(ctx context.Context, sigs []solana.Signature) ([]solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barriers = append(f.barriers, f.submitted)
	if f.failAfter > 0 && f.submitted >= f.failAfter {
		return sigs[:len(sigs)-1], assert.AnError
	}
	return sigs, nil
}

func testSigner(t *testing.T) wallet.Signer {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return wallet.NewKeypair(key)
}

func transferOp(t *testing.T, from solana.PublicKey) Operation {
	to, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	instr := system.NewTransferInstruction(1, from, to.PublicKey()).Build()
	return Operation{Instructions: []solana.Instruction{instr}}
}

func TestExecutor_BatchBarrier(t *testing.T) {
	signer := testSigner(t)
	transport := new(fakeTransport)

	// batches of 2, 3, and 1 operations
	var seq Sequence
	seq.Append(
		Batch{Ops: []Operation{transferOp(t, signer.Pubkey()), transferOp(t, signer.Pubkey())}},
		Batch{Ops: []Operation{transferOp(t, signer.Pubkey()), transferOp(t, signer.Pubkey()), transferOp(t, signer.Pubkey())}},
		Batch{Ops: []Operation{transferOp(t, signer.Pubkey())}},
	)

	results, err := NewExecutor(transport, signer).Run(context.Background(), seq)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Len(t, results[0], 2)
	assert.Len(t, results[1], 3)
	assert.Len(t, results[2], 1)

	// each barrier saw only the submissions of batches up to and including
	// its own: batch i+1 was never submitted before batch i confirmed
	assert.Equal(t, []int{2, 5, 6}, transport.barriers)
}

func TestExecutor_HaltsOnFailedBatch(t *testing.T) {
	signer := testSigner(t)
	transport := &fakeTransport{failAfter: 3}

	var seq Sequence
	seq.Append(
		Batch{Ops: []Operation{transferOp(t, signer.Pubkey()), transferOp(t, signer.Pubkey())}},
		Batch{Ops: []Operation{transferOp(t, signer.Pubkey())}},
		Batch{Ops: []Operation{transferOp(t, signer.Pubkey())}},
	)

	results, err := NewExecutor(transport, signer).Run(context.Background(), seq)
	require.Error(t, err)

	// first batch confirmed fully, second failed after submit, third never ran
	require.Len(t, results, 2)
	assert.Len(t, results[0], 2)
	assert.Len(t, results[1], 0)
	assert.Equal(t, 3, transport.submitted)
}

func TestExecutor_RejectedSubmissionKeepsSiblingSignatures(t *testing.T) {
	signer := testSigner(t)
	transport := &fakeTransport{rejectAttempt: 2}

	var seq Sequence
	seq.Append(Batch{Ops: []Operation{
		transferOp(t, signer.Pubkey()),
		transferOp(t, signer.Pubkey()),
		transferOp(t, signer.Pubkey()),
	}})

	results, err := NewExecutor(transport, signer).Run(context.Background(), seq)
	require.Error(t, err)

	// the two accepted transactions will land; their signatures are still
	// confirmed and reported despite the sibling rejection
	require.Len(t, results, 1)
	assert.Len(t, results[0], 2)
	assert.Equal(t, 2, transport.submitted)
	assert.Equal(t, []int{2}, transport.barriers)
}

func TestExecutor_MissingSignerFailsFast(t *testing.T) {
	transport := new(fakeTransport)

	var seq Sequence
	seq.Append(Batch{Ops: []Operation{{}}})

	_, err := NewExecutor(transport, nil).Run(context.Background(), seq)
	assert.ErrorIs(t, err, wallet.ErrMissingSigner)
	assert.Zero(t, transport.submitted)
}

func TestExecutor_OneTimeSignersCosign(t *testing.T) {
	signer := testSigner(t)
	transport := new(fakeTransport)

	oneTime, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	instr := system.NewTransferInstruction(1, oneTime.PublicKey(), signer.Pubkey()).Build()

	var seq Sequence
	seq.Append(Batch{Ops: []Operation{{
		Instructions: []solana.Instruction{instr},
		Signers:      []solana.PrivateKey{oneTime},
	}}})

	_, err = NewExecutor(transport, signer).Run(context.Background(), seq)
	require.NoError(t, err)

	require.Len(t, transport.pendingTxs, 1)
	tx := transport.pendingTxs[0]

	// both the wallet and the one-time identity signed
	assert.Len(t, tx.Signatures, 2)
	require.NoError(t, tx.VerifySignatures())
}
