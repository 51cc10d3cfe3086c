package main

import (
	"context"
	"database/sql"
	"time"

	"suvidha/internal/auditor"
	officerservice "suvidha/internal/officer/service"
	transferservice "suvidha/internal/transfer/service"
	dErrors "suvidha/pkg/domain-errors"
	txcontext "suvidha/pkg/platform/tx"
)

// The postgres StoreTx adapters open a database transaction and smuggle it to
// the stores through the context; every store picks it up via
// txcontext.From, so all writes inside the callback commit or roll back
// together.

const defaultPostgresTxTimeout = 5 * time.Second

func runInPostgresTx(ctx context.Context, db *sql.DB, timeout time.Duration, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

type officerPostgresTx struct {
	db    *sql.DB
	store officerservice.Store
}

func (t *officerPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store officerservice.Store) error) error {
	return runInPostgresTx(ctx, t.db, defaultPostgresTxTimeout, func(ctx context.Context) error {
		return fn(ctx, t.store)
	})
}

type transferPostgresTx struct {
	db     *sql.DB
	stores transferservice.Stores
}

func (t *transferPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores transferservice.Stores) error) error {
	return runInPostgresTx(ctx, t.db, defaultPostgresTxTimeout, func(ctx context.Context) error {
		return fn(ctx, t.stores)
	})
}

type cleanupPostgresTx struct {
	db     *sql.DB
	stores auditor.Stores
}

// The cleanup batch scans full collections, so it gets a wider deadline than
// the request-scoped workflows.
func (t *cleanupPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores auditor.Stores) error) error {
	return runInPostgresTx(ctx, t.db, 30*time.Second, func(ctx context.Context) error {
		return fn(ctx, t.stores)
	})
}
