package rpcclient

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/igneous-labs/stake-pool-sdk/pkg/stakepool"
)

var ErrAccountNotFound = errors.New("ErrAccountNotFound")

func (fetcher *RpcClient) getAccountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	resp, err := fetcher.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, remoteErr("getAccountInfo", ErrAccountNotFound)
		}
		return nil, remoteErr("getAccountInfo", err)
	}
	if resp == nil || resp.Value == nil {
		return nil, remoteErr("getAccountInfo", ErrAccountNotFound)
	}

	return resp.Value.Data.GetBinary(), nil
}

// GetStakePool fetches and decodes the pool account.
func (fetcher *RpcClient) GetStakePool(ctx context.Context, addr solana.PublicKey) (*stakepool.StakePool, error) {
	data, err := fetcher.getAccountData(ctx, addr)
	if err != nil {
		return nil, err
	}
	return stakepool.UnmarshalStakePool(data)
}

// GetValidatorList fetches and decodes the pool's validator list account.
func (fetcher *RpcClient) GetValidatorList(ctx context.Context, addr solana.PublicKey) (*stakepool.ValidatorList, error) {
	data, err := fetcher.getAccountData(ctx, addr)
	if err != nil {
		return nil, err
	}
	return stakepool.UnmarshalValidatorList(data)
}

// AccountExists reports whether an account is present on the ledger.
func (fetcher *RpcClient) AccountExists(ctx context.Context, addr solana.PublicKey) (bool, error) {
	_, err := fetcher.getAccountData(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CurrentEpoch returns the ledger's current epoch.
func (fetcher *RpcClient) CurrentEpoch(ctx context.Context) (uint64, error) {
	info, err := fetcher.client.GetEpochInfo(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, remoteErr("getEpochInfo", err)
	}
	return info.Epoch, nil
}
