package service

import (
	"context"
	"sync"
	"time"

	complaintstore "suvidha/internal/complaint/store"
	"suvidha/internal/transfer/store"
	dErrors "suvidha/pkg/domain-errors"
)

// Stores bundles everything a transfer workflow mutates in one unit of work.
type Stores struct {
	Transfers   store.TransferStore
	Complaints  complaintstore.Store
	Connections store.ConnectionStore
}

// StoreTx provides the transactional boundary for transfer workflows. The
// callback receives the context the stores must be called with; database
// implementations attach the open transaction to it.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// shardedWorkflowTx provides fine-grained locking using sharded mutexes.
// Instead of a single global lock, workflows are distributed across N shards
// by a hash of the complaint number, reducing contention under concurrent
// load. Two workflows on the same complaint always serialize.
const numWorkflowShards = 128

// defaultWorkflowTxTimeout is the maximum duration for a workflow transaction.
const defaultWorkflowTxTimeout = 5 * time.Second

type shardedWorkflowTx struct {
	shards  [numWorkflowShards]sync.Mutex
	stores  Stores
	timeout time.Duration
}

// NewShardedTx wraps in-memory stores in a sharded lock keyed by the
// complaint number carried in the context.
func NewShardedTx(stores Stores) StoreTx {
	return &shardedWorkflowTx{stores: stores}
}

func (t *shardedWorkflowTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultWorkflowTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.stores)
}

// selectShard picks a shard from the complaint number in context, or defaults
// to shard 0.
func (t *shardedWorkflowTx) selectShard(ctx context.Context) int {
	if number, ok := ctx.Value(txComplaintKeyCtx).(string); ok && number != "" {
		return int(hashWorkflowString(number) % numWorkflowShards)
	}
	return 0
}

// hashWorkflowString uses FNV-1a for even shard distribution.
func hashWorkflowString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

type txComplaintKey struct{}

var txComplaintKeyCtx = txComplaintKey{}

// withTxKey tags the context with the complaint number the next RunInTx call
// should serialize on.
func withTxKey(ctx context.Context, complaintNumber string) context.Context {
	return context.WithValue(ctx, txComplaintKeyCtx, complaintNumber)
}
