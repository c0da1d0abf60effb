// Package pool implements the stake pool subcommands.
package pool

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/igneous-labs/stake-pool-sdk/pkg/client"
	"github.com/igneous-labs/stake-pool-sdk/pkg/stakepool"
	"github.com/igneous-labs/stake-pool-sdk/pkg/wallet"
	"github.com/igneous-labs/stake-pool-sdk/pkg/withdraw"
)

var (
	Cmd = cobra.Command{
		Use:   "pool",
		Short: "Stake into and withdraw from the pool",
	}

	configPath  string
	clusterName string
	endpoint    string
	keypairPath string
	referrer    string

	depositSolCmd = cobra.Command{
		Use:   "deposit-sol <lamports>",
		Short: "Deposit SOL into the pool for pool tokens",
		Args:  cobra.ExactArgs(1),
		RunE:  runDepositSol,
	}

	depositStakeCmd = cobra.Command{
		Use:   "deposit-stake <stake-account> <vote-account> <lamports>",
		Short: "Deposit a whole stake account into the pool",
		Args:  cobra.ExactArgs(3),
		RunE:  runDepositStake,
	}

	withdrawStakeCmd = cobra.Command{
		Use:   "withdraw-stake <droplets>",
		Short: "Burn pool tokens for stake accounts",
		Args:  cobra.ExactArgs(1),
		RunE:  runWithdrawStake,
	}

	infoCmd = cobra.Command{
		Use:   "info",
		Short: "Print the pool's current state",
		RunE:  runInfo,
	}
)

func init() {
	Cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path of yaml config file")
	Cmd.PersistentFlags().StringVar(&clusterName, "cluster", "", "Cluster to target (mainnet-beta, testnet, devnet)")
	Cmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "RPC endpoint override")
	Cmd.PersistentFlags().StringVarP(&keypairPath, "keypair", "k", "", "Path of the wallet keypair file")

	depositSolCmd.Flags().StringVar(&referrer, "referrer", "", "Pool token account receiving the referral fee")
	depositStakeCmd.Flags().StringVar(&referrer, "referrer", "", "Pool token account receiving the referral fee")

	Cmd.AddCommand(
		&depositSolCmd,
		&depositStakeCmd,
		&withdrawStakeCmd,
		&infoCmd,
	)
}

// newClient resolves config file and flags into a connected client. The
// keypair is optional for read-only commands.
func newClient(needSigner bool) (*client.Client, error) {
	var cfg Config
	if configPath != "" {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}

	name := cfg.Cluster
	if clusterName != "" {
		name = clusterName
	}
	if name == "" {
		name = stakepool.MainnetBeta.Name
	}
	cluster, ok := stakepool.ClusterByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown cluster %q", name)
	}

	kpPath := cfg.Keypair
	if keypairPath != "" {
		kpPath = keypairPath
	}
	var signer wallet.Signer
	if kpPath != "" {
		kp, err := wallet.NewKeypairFromFile(kpPath)
		if err != nil {
			return nil, err
		}
		signer = kp
	} else if needSigner {
		return nil, wallet.ErrMissingSigner
	}

	var opts []client.Option
	if endpoint != "" {
		opts = append(opts, client.WithRPCEndpoint(endpoint))
	} else if cfg.Endpoint != "" {
		opts = append(opts, client.WithRPCEndpoint(cfg.Endpoint))
	}

	return client.New(cluster, signer, opts...), nil
}

func referrerKey() (*solana.PublicKey, error) {
	if referrer == "" {
		return nil, nil
	}
	pk, err := solana.PublicKeyFromBase58(referrer)
	if err != nil {
		return nil, fmt.Errorf("bad referrer address: %w", err)
	}
	return &pk, nil
}

func parseAmount(arg string, what string) (uint64, error) {
	var amount uint64
	if _, err := fmt.Sscanf(arg, "%d", &amount); err != nil || amount == 0 {
		return 0, fmt.Errorf("bad %s amount %q", what, arg)
	}
	return amount, nil
}

func printSignatures(sigs [][]solana.Signature) {
	for i, batch := range sigs {
		for _, sig := range batch {
			fmt.Printf("batch %d: %s\n", i, sig)
		}
	}
}

func runDepositSol(c *cobra.Command, args []string) error {
	lamports, err := parseAmount(args[0], "lamport")
	if err != nil {
		return err
	}

	ref, err := referrerKey()
	if err != nil {
		return err
	}

	cl, err := newClient(true)
	if err != nil {
		return err
	}

	receipt, sigs, err := cl.DepositSol(c.Context(), lamports, ref)
	if err != nil {
		return err
	}

	fmt.Printf("deposited %d lamports for %d pool tokens (fee %d, referral %d)\n",
		receipt.LamportsStaked, receipt.DropletsReceived, receipt.DropletsFeePaid, receipt.ReferralFeePaid)
	printSignatures(sigs)
	return nil
}

func runDepositStake(c *cobra.Command, args []string) error {
	stakeAcct, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		return fmt.Errorf("bad stake account address: %w", err)
	}
	voteAcct, err := solana.PublicKeyFromBase58(args[1])
	if err != nil {
		return fmt.Errorf("bad vote account address: %w", err)
	}
	lamports, err := parseAmount(args[2], "lamport")
	if err != nil {
		return err
	}

	ref, err := referrerKey()
	if err != nil {
		return err
	}

	cl, err := newClient(true)
	if err != nil {
		return err
	}

	receipt, sigs, err := cl.DepositStake(c.Context(), stakeAcct, voteAcct, lamports, ref)
	if err != nil {
		return err
	}

	fmt.Printf("deposited stake account %s for %d pool tokens (fee %d)\n",
		stakeAcct, receipt.DropletsReceived, receipt.DropletsFeePaid)
	printSignatures(sigs)
	return nil
}

func runWithdrawStake(c *cobra.Command, args []string) error {
	droplets, err := parseAmount(args[0], "pool token")
	if err != nil {
		return err
	}

	cl, err := newClient(true)
	if err != nil {
		return err
	}

	receipts, sigs, err := cl.WithdrawStake(c.Context(), droplets)
	if err != nil {
		var unserviceable *withdraw.UnserviceableError
		if errors.As(err, &unserviceable) {
			klog.Errorf("withdrawal not serviceable: %v", unserviceable)
		}
		return err
	}

	for _, r := range receipts {
		fmt.Printf("%s: %d pool tokens -> %d lamports (fee %d) from %s\n",
			r.VoteAccount, r.Receipt.DropletsUnstaked, r.Receipt.LamportsReceived,
			r.Receipt.DropletsFeePaid, r.Source)
	}
	printSignatures(sigs)
	return nil
}

func runInfo(c *cobra.Command, args []string) error {
	cl, err := newClient(false)
	if err != nil {
		return err
	}

	info, err := cl.PoolInfo(c.Context())
	if err != nil {
		return err
	}

	fmt.Printf("total lamports:    %d\n", info.Pool.TotalLamports)
	fmt.Printf("pool token supply: %d\n", info.Pool.PoolTokenSupply)
	fmt.Printf("exchange rate:     %.9f lamports per pool token\n", info.LamportsPerDroplet())
	fmt.Printf("last update epoch: %d (current %d, stale %v)\n", info.Pool.LastUpdateEpoch, info.Epoch, info.Stale)
	fmt.Printf("validators:        %d\n", len(info.Validators))
	for _, v := range info.Validators {
		fmt.Printf("  %s active=%d transient=%d epoch=%d\n",
			v.VoteAccountAddress, v.ActiveStakeLamports, v.TransientStakeLamports, v.LastUpdateEpoch)
	}
	return nil
}
