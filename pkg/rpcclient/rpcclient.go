// Package rpcclient wraps the ledger RPC surface the SDK needs. Every
// failure coming back over the wire is wrapped in RemoteError so callers can
// tell "the ledger said no" apart from a local computation error.
package rpcclient

import (
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
)

type RpcClient struct {
	client *rpc.Client
}

func NewRpcClient(endpoint string) *RpcClient {
	client := rpc.New(endpoint)
	return &RpcClient{client: client}
}

// RemoteError wraps any failed read or write against the external ledger.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remoteErr(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}
