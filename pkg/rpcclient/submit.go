package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"k8s.io/klog/v2"
)

var ErrTransactionFailed = errors.New("ErrTransactionFailed")

const confirmPollInterval = 2 * time.Second

// LatestBlockhash returns a recent blockhash for transaction assembly.
func (fetcher *RpcClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := fetcher.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, remoteErr("getLatestBlockhash", err)
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a fully-signed transaction.
func (fetcher *RpcClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := fetcher.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, remoteErr("sendTransaction", err)
	}
	return sig, nil
}

// statusGetter is the slice of the RPC surface the confirmation poller
// reads from. *rpc.Client satisfies it.
type statusGetter interface {
	GetSignatureStatuses(ctx context.Context, searchTxHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// AwaitConfirmations polls signature statuses until every signature is
// confirmed, any of them fails, or the context is done. It returns the
// signatures confirmed so far; on failure the error wraps
// ErrTransactionFailed with the rejected signature.
func (fetcher *RpcClient) AwaitConfirmations(ctx context.Context, sigs []solana.Signature) ([]solana.Signature, error) {
	return awaitConfirmations(ctx, fetcher.client, sigs, confirmPollInterval)
}

func awaitConfirmations(ctx context.Context, getter statusGetter, sigs []solana.Signature, pollInterval time.Duration) ([]solana.Signature, error) {
	confirmed := make(map[solana.Signature]bool, len(sigs))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := getter.GetSignatureStatuses(ctx, true, sigs...)
		if err != nil {
			return confirmedList(sigs, confirmed), remoteErr("getSignatureStatuses", err)
		}

		pending := 0
		for i, status := range statuses.Value {
			if status == nil {
				pending++
				continue
			}
			if status.Err != nil {
				klog.Errorf("transaction %s rejected: %v", sigs[i], status.Err)
				return confirmedList(sigs, confirmed),
					remoteErr("sendTransaction", fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sigs[i], status.Err))
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				confirmed[sigs[i]] = true
			default:
				pending++
			}
		}

		if pending == 0 {
			return confirmedList(sigs, confirmed), nil
		}

		klog.V(2).Infof("awaiting confirmation of %d/%d transactions", pending, len(sigs))

		select {
		case <-ctx.Done():
			return confirmedList(sigs, confirmed), remoteErr("getSignatureStatuses", ctx.Err())
		case <-ticker.C:
		}
	}
}

func confirmedList(sigs []solana.Signature, confirmed map[solana.Signature]bool) []solana.Signature {
	out := make([]solana.Signature, 0, len(confirmed))
	for _, sig := range sigs {
		if confirmed[sig] {
			out = append(out, sig)
		}
	}
	return out
}
