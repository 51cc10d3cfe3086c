package auditor

import (
	"context"
	"sync"
	"time"

	dErrors "suvidha/pkg/domain-errors"
)

// lockedCleanupTx serializes cleanup batches behind one mutex. The cleanup
// pass scans full collections and is invoked deliberately, so contention is
// not a concern; correctness of the all-or-nothing batch is.
type lockedCleanupTx struct {
	mu      sync.Mutex
	stores  Stores
	timeout time.Duration
}

// defaultCleanupTxTimeout bounds one cleanup batch; full-collection scans on
// large datasets should page long before hitting this.
const defaultCleanupTxTimeout = 30 * time.Second

// NewLockedTx wraps in-memory stores in a coarse transaction lock.
func NewLockedTx(stores Stores) StoreTx {
	return &lockedCleanupTx{stores: stores}
}

func (t *lockedCleanupTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultCleanupTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.stores)
}
