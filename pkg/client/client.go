// Package client is the top-level SDK surface: stake into and withdraw
// stake from one deployed pool instance.
package client

import (
	"context"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"k8s.io/klog/v2"

	"github.com/igneous-labs/stake-pool-sdk/pkg/fees"
	"github.com/igneous-labs/stake-pool-sdk/pkg/rpcclient"
	"github.com/igneous-labs/stake-pool-sdk/pkg/stakepool"
	"github.com/igneous-labs/stake-pool-sdk/pkg/txseq"
	"github.com/igneous-labs/stake-pool-sdk/pkg/wallet"
	"github.com/igneous-labs/stake-pool-sdk/pkg/withdraw"
)

// ledger is the read side of the remote boundary. rpcclient.RpcClient
// satisfies it; tests substitute fakes.
type ledger interface {
	GetStakePool(ctx context.Context, addr solana.PublicKey) (*stakepool.StakePool, error)
	GetValidatorList(ctx context.Context, addr solana.PublicKey) (*stakepool.ValidatorList, error)
	CurrentEpoch(ctx context.Context) (uint64, error)
	AccountExists(ctx context.Context, addr solana.PublicKey) (bool, error)
}

type Client struct {
	cluster   stakepool.Cluster
	ledger    ledger
	transport txseq.Transport
	signer    wallet.Signer
	builder   *txseq.Builder
	limits    withdraw.Limits
}

type Option func(*options)

type options struct {
	endpoint string
	seqCfg   txseq.Config
	limits   withdraw.Limits
}

// WithRPCEndpoint overrides the cluster's default RPC endpoint.
func WithRPCEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithSequenceConfig overrides the per-batch capacity limits.
func WithSequenceConfig(cfg txseq.Config) Option {
	return func(o *options) { o.seqCfg = cfg }
}

// WithLimits overrides the allocator's per-validator floors.
func WithLimits(limits withdraw.Limits) Option {
	return func(o *options) { o.limits = limits }
}

func New(cluster stakepool.Cluster, signer wallet.Signer, opts ...Option) *Client {
	o := options{
		endpoint: cluster.RPCEndpoint,
		seqCfg:   txseq.DefaultConfig(),
		limits:   withdraw.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	rc := rpcclient.NewRpcClient(o.endpoint)
	return &Client{
		cluster:   cluster,
		ledger:    rc,
		transport: rc,
		signer:    signer,
		builder:   txseq.NewBuilder(cluster.ProgramID, cluster.Pool, o.seqCfg),
		limits:    o.limits,
	}
}

// snapshot reads the pool, its validator list, and the current epoch. The
// copy is treated as immutable while building one action's sequence.
func (c *Client) snapshot(ctx context.Context) (*stakepool.StakePool, *stakepool.ValidatorList, uint64, error) {
	pool, err := c.ledger.GetStakePool(ctx, c.cluster.Pool)
	if err != nil {
		return nil, nil, 0, err
	}

	list, err := c.ledger.GetValidatorList(ctx, pool.ValidatorList)
	if err != nil {
		return nil, nil, 0, err
	}

	epoch, err := c.ledger.CurrentEpoch(ctx)
	if err != nil {
		return nil, nil, 0, err
	}

	return pool, list, epoch, nil
}

// poolTokenAddress derives the wallet's associated pool token account.
func (c *Client) poolTokenAddress(pool *stakepool.StakePool) (solana.PublicKey, error) {
	tokenAcct, _, err := solana.FindAssociatedTokenAddress(c.signer.Pubkey(), pool.PoolMint)
	return tokenAcct, err
}

// poolTokenSetup derives the wallet's pool token account and, when it does
// not exist yet, returns the instruction creating it.
func (c *Client) poolTokenSetup(ctx context.Context, pool *stakepool.StakePool) (solana.PublicKey, []solana.Instruction, error) {
	owner := c.signer.Pubkey()
	tokenAcct, err := c.poolTokenAddress(pool)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}

	exists, err := c.ledger.AccountExists(ctx, tokenAcct)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if exists {
		return tokenAcct, nil, nil
	}

	create := associatedtokenaccount.NewCreateInstruction(owner, owner, pool.PoolMint).Build()
	return tokenAcct, []solana.Instruction{create}, nil
}

func (c *Client) runSequence(ctx context.Context, pool *stakepool.StakePool, list *stakepool.ValidatorList, epoch uint64, action []txseq.Batch) ([][]solana.Signature, error) {
	refresh, err := c.builder.RefreshBatches(pool, list, epoch)
	if err != nil {
		return nil, err
	}
	if len(refresh) > 0 {
		klog.V(1).Infof("pool snapshot stale (epoch %d < %d), prepending %d refresh batches",
			pool.LastUpdateEpoch, epoch, len(refresh))
	}

	var seq txseq.Sequence
	seq.Append(refresh...)
	seq.Append(action...)

	return txseq.NewExecutor(c.transport, c.signer).Run(ctx, seq)
}

// DepositSol stakes lamports into the pool. It returns the predicted
// receipt along with per-batch confirmation signatures. referrer, when
// non-nil, names the pool token account receiving the referral share of the
// deposit fee.
func (c *Client) DepositSol(ctx context.Context, lamports uint64, referrer *solana.PublicKey) (*fees.DepositReceipt, [][]solana.Signature, error) {
	if c.signer == nil || c.signer.Pubkey().IsZero() {
		return nil, nil, wallet.ErrMissingSigner
	}

	pool, list, epoch, err := c.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	receipt, err := fees.CalcDeposit(lamports, pool, pool.SolDepositFee, pool.SolReferralFee)
	if err != nil {
		return nil, nil, err
	}

	tokenAcct, setup, err := c.poolTokenSetup(ctx, pool)
	if err != nil {
		return nil, nil, err
	}

	referrerAcct := pool.ManagerFeeAccount
	if referrer != nil {
		referrerAcct = *referrer
	}

	batch, err := c.builder.DepositSolBatch(pool, txseq.DepositSolParams{
		Funder:               c.signer.Pubkey(),
		DestinationTokenAcct: tokenAcct,
		ReferrerTokenAcct:    referrerAcct,
		Lamports:             lamports,
		Setup:                setup,
	})
	if err != nil {
		return nil, nil, err
	}

	sigs, err := c.runSequence(ctx, pool, list, epoch, []txseq.Batch{batch})
	return &receipt, sigs, err
}

// DepositStake deposits a whole stake account delegated to voteAccount.
// Both the staker and withdrawer roles are handed to the pool's deposit
// authority in the same transaction as the deposit itself.
func (c *Client) DepositStake(ctx context.Context, stakeAccount solana.PublicKey, voteAccount solana.PublicKey, stakeLamports uint64, referrer *solana.PublicKey) (*fees.DepositReceipt, [][]solana.Signature, error) {
	if c.signer == nil || c.signer.Pubkey().IsZero() {
		return nil, nil, wallet.ErrMissingSigner
	}

	pool, list, epoch, err := c.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	receipt, err := fees.CalcDeposit(stakeLamports, pool, pool.StakeDepositFee, pool.StakeReferralFee)
	if err != nil {
		return nil, nil, err
	}

	tokenAcct, setup, err := c.poolTokenSetup(ctx, pool)
	if err != nil {
		return nil, nil, err
	}

	referrerAcct := pool.ManagerFeeAccount
	if referrer != nil {
		referrerAcct = *referrer
	}

	withdrawAuth, err := stakepool.WithdrawAuthority(c.cluster.ProgramID, c.cluster.Pool)
	if err != nil {
		return nil, nil, err
	}

	validatorStakeAcct, err := stakepool.ValidatorStakeAccount(c.cluster.ProgramID, voteAccount, c.cluster.Pool)
	if err != nil {
		return nil, nil, err
	}

	owner := c.signer.Pubkey()
	instrs := append(setup,
		stakepool.NewStakeAuthorizeInstruction(stakeAccount, owner, pool.StakeDepositAuthority, stakepool.StakeAuthorizeStaker),
		stakepool.NewStakeAuthorizeInstruction(stakeAccount, owner, pool.StakeDepositAuthority, stakepool.StakeAuthorizeWithdrawer),
		stakepool.NewDepositStakeInstruction(stakepool.DepositStakeParams{
			ProgramID:            c.cluster.ProgramID,
			Pool:                 c.cluster.Pool,
			ValidatorList:        pool.ValidatorList,
			DepositAuthority:     pool.StakeDepositAuthority,
			WithdrawAuth:         withdrawAuth,
			DepositStakeAcct:     stakeAccount,
			ValidatorStakeAcct:   validatorStakeAcct,
			ReserveStake:         pool.ReserveStake,
			DestinationTokenAcct: tokenAcct,
			ManagerFeeAccount:    pool.ManagerFeeAccount,
			ReferrerTokenAcct:    referrerAcct,
			PoolMint:             pool.PoolMint,
		}),
	)

	batch := txseq.Batch{Ops: []txseq.Operation{{Instructions: instrs}}}

	sigs, err := c.runSequence(ctx, pool, list, epoch, []txseq.Batch{batch})
	return &receipt, sigs, err
}

// WithdrawStake burns droplets and splits the equivalent stake out of the
// pool's validator accounts into freshly created stake accounts owned by
// the wallet. Returns the allocation plan along with per-batch signatures.
func (c *Client) WithdrawStake(ctx context.Context, droplets uint64) ([]withdraw.ValidatorWithdrawalReceipt, [][]solana.Signature, error) {
	if c.signer == nil || c.signer.Pubkey().IsZero() {
		return nil, nil, wallet.ErrMissingSigner
	}

	pool, list, epoch, err := c.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	receipts, err := withdraw.CalcWithdrawals(droplets, pool, list.Validators, c.limits)
	if err != nil {
		return nil, nil, err
	}

	// the token account necessarily exists, it holds the droplets being
	// burnt; no existence probe needed
	tokenAcct, err := c.poolTokenAddress(pool)
	if err != nil {
		return nil, nil, err
	}

	batches, err := c.builder.WithdrawBatches(pool, receipts, txseq.WithdrawStakeParams{
		Beneficiary:     c.signer.Pubkey(),
		SourceTokenAcct: tokenAcct,
	})
	if err != nil {
		return nil, nil, err
	}

	sigs, err := c.runSequence(ctx, pool, list, epoch, batches)
	return receipts, sigs, err
}

// PoolInfo is a decoded snapshot for display purposes.
type PoolInfo struct {
	Pool       *stakepool.StakePool
	Validators []stakepool.ValidatorStakeInfo
	Epoch      uint64
	Stale      bool
}

// LamportsPerDroplet returns the pool's current exchange rate. Display
// only; all accounting goes through the fees package.
func (info *PoolInfo) LamportsPerDroplet() float64 {
	if info.Pool.PoolTokenSupply == 0 {
		return 1
	}
	return float64(info.Pool.TotalLamports) / float64(info.Pool.PoolTokenSupply)
}

func (c *Client) PoolInfo(ctx context.Context) (*PoolInfo, error) {
	pool, list, epoch, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return &PoolInfo{
		Pool:       pool,
		Validators: list.Validators,
		Epoch:      epoch,
		Stale:      pool.IsStale(epoch),
	}, nil
}
