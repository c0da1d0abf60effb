package txseq

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/igneous-labs/stake-pool-sdk/pkg/wallet"
)

// Transport is the submit-and-confirm surface the executor drives.
// rpcclient.RpcClient satisfies it.
type Transport interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	AwaitConfirmations(ctx context.Context, sigs []solana.Signature) ([]solana.Signature, error)
}

// Executor signs, submits, and confirms a Sequence batch by batch. A batch
// is only submitted once every operation of the previous batch is confirmed;
// operations within a batch are submitted concurrently.
type Executor struct {
	transport Transport
	signer    wallet.Signer
}

func NewExecutor(transport Transport, signer wallet.Signer) *Executor {
	return &Executor{transport: transport, signer: signer}
}

// Run executes the sequence. It returns, per executed batch, the signatures
// of exactly the operations that were confirmed, so a caller can tell how
// far the sequence progressed. Confirmed batches stay in effect on failure;
// there is no rollback on the target ledger.
func (e *Executor) Run(ctx context.Context, seq Sequence) ([][]solana.Signature, error) {
	if e.signer == nil || e.signer.Pubkey().IsZero() {
		return nil, wallet.ErrMissingSigner
	}

	results := make([][]solana.Signature, 0, len(seq.Batches))

	for i, batch := range seq.Batches {
		confirmed, err := e.runBatch(ctx, batch)
		results = append(results, confirmed)
		if err != nil {
			klog.Errorf("sequence halted at batch %d/%d: %v", i+1, len(seq.Batches), err)
			return results, err
		}
		klog.V(1).Infof("batch %d/%d confirmed (%d transactions)", i+1, len(seq.Batches), len(confirmed))
	}

	return results, nil
}

func (e *Executor) runBatch(ctx context.Context, batch Batch) ([]solana.Signature, error) {
	blockhash, err := e.transport.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	sigs := make([]solana.Signature, len(batch.Ops))
	opErrs := make([]error, len(batch.Ops))

	// a rejected submission must not cancel its siblings: transactions the
	// ledger already accepted will land regardless, so their signatures have
	// to survive into the batch result
	var group errgroup.Group
	for i, op := range batch.Ops {
		i, op := i, op
		group.Go(func() error {
			tx, err := e.signOperation(op, blockhash)
			if err != nil {
				opErrs[i] = err
				return nil
			}

			sig, err := e.transport.SendTransaction(ctx, tx)
			if err != nil {
				metricTxsFailed.Inc()
				opErrs[i] = err
				return nil
			}

			metricTxsSubmitted.Inc()
			sigs[i] = sig
			return nil
		})
	}
	_ = group.Wait()

	var submitErr error
	submitted := make([]solana.Signature, 0, len(batch.Ops))
	for i, opErr := range opErrs {
		if opErr != nil {
			if submitErr == nil {
				submitErr = opErr
			}
			klog.Errorf("operation %d of batch not submitted: %v", i, opErr)
			continue
		}
		submitted = append(submitted, sigs[i])
	}

	if len(submitted) == 0 {
		return nil, submitErr
	}

	confirmed, err := e.transport.AwaitConfirmations(ctx, submitted)
	metricTxsConfirmed.Add(float64(len(confirmed)))
	if err != nil {
		metricTxsFailed.Add(float64(len(submitted) - len(confirmed)))
		return confirmed, err
	}
	return confirmed, submitErr
}

func (e *Executor) signOperation(op Operation, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(op.Instructions, blockhash, solana.TransactionPayer(e.signer.Pubkey()))
	if err != nil {
		return nil, err
	}

	if len(op.Signers) > 0 {
		_, err = tx.PartialSign(func(pk solana.PublicKey) *solana.PrivateKey {
			for i := range op.Signers {
				if op.Signers[i].PublicKey().Equals(pk) {
					return &op.Signers[i]
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if err = e.signer.Sign(tx); err != nil {
		return nil, err
	}

	return tx, nil
}
