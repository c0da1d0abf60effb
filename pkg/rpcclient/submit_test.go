package rpcclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStatuses replays one canned statuses response per poll, repeating
// the last one once the script runs out.
type scriptedStatuses struct {
	mu     sync.Mutex
	polls  [][]*rpc.SignatureStatusesResult
	calls  int
	onPoll func(call int)
}

func (s *scriptedStatuses) GetSignatureStatuses(ctx context.Context, searchTxHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	if idx >= len(s.polls) {
		idx = len(s.polls) - 1
	}
	s.calls++
	if s.onPoll != nil {
		s.onPoll(s.calls)
	}
	return &rpc.GetSignatureStatusesResult{Value: s.polls[idx]}, nil
}

func confirmedStatus() *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
}

func sigN(n byte) solana.Signature {
	var sig solana.Signature
	sig[0] = n
	return sig
}

func TestAwaitConfirmations_PollsUntilAllConfirmed(t *testing.T) {
	sigs := []solana.Signature{sigN(1), sigN(2)}
	getter := &scriptedStatuses{polls: [][]*rpc.SignatureStatusesResult{
		{confirmedStatus(), nil},
		{confirmedStatus(), {ConfirmationStatus: rpc.ConfirmationStatusProcessed}},
		{confirmedStatus(), {ConfirmationStatus: rpc.ConfirmationStatusFinalized}},
	}}

	confirmed, err := awaitConfirmations(context.Background(), getter, sigs, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, sigs, confirmed)
	assert.Equal(t, 3, getter.calls)
}

func TestAwaitConfirmations_RejectedTransaction(t *testing.T) {
	sigs := []solana.Signature{sigN(1), sigN(2)}
	getter := &scriptedStatuses{polls: [][]*rpc.SignatureStatusesResult{
		{
			confirmedStatus(),
			{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		},
	}}

	confirmed, err := awaitConfirmations(context.Background(), getter, sigs, time.Millisecond)
	require.ErrorIs(t, err, ErrTransactionFailed)

	var remote *RemoteError
	assert.ErrorAs(t, err, &remote)

	// the rejection surfaces the signatures that did confirm
	assert.Equal(t, []solana.Signature{sigN(1)}, confirmed)
}

func TestAwaitConfirmations_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := []solana.Signature{sigN(1), sigN(2)}
	getter := &scriptedStatuses{polls: [][]*rpc.SignatureStatusesResult{
		{confirmedStatus(), nil},
	}}
	getter.onPoll = func(call int) {
		if call == 2 {
			cancel()
		}
	}

	confirmed, err := awaitConfirmations(ctx, getter, sigs, time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []solana.Signature{sigN(1)}, confirmed)
}
