package service

import (
	"context"
	"sync"
	"time"

	dErrors "suvidha/pkg/domain-errors"
)

// StoreTx provides the transactional boundary for officer lifecycle
// mutations. The callback receives the context the store must be called
// with; database implementations attach the open transaction to it.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// lockedOfficerTx serializes lifecycle mutations behind one mutex. Officer
// mutations are rare (administrative) compared to transfer workflows, so a
// single lock is enough; code generation for the same prefix must serialize
// anyway.
type lockedOfficerTx struct {
	mu      sync.Mutex
	store   Store
	timeout time.Duration
}

// defaultOfficerTxTimeout is the maximum duration for a lifecycle transaction.
const defaultOfficerTxTimeout = 5 * time.Second

// NewLockedTx wraps an in-memory store in a coarse transaction lock.
func NewLockedTx(store Store) StoreTx {
	return &lockedOfficerTx{store: store}
}

func (t *lockedOfficerTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultOfficerTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}
