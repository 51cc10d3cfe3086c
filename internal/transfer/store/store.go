// Package store persists transfer records and department connections.
//
// The single-pending-per-complaint invariant is enforced here, inside the
// store write, so a concurrent initiator that loses the race gets a
// deterministic conflict instead of a second pending record.
package store

import (
	"context"
	"time"

	"suvidha/internal/transfer/models"
	"suvidha/pkg/domain"
)

type TransferStore interface {
	// Create inserts a pending transfer. Returns sentinel.ErrConflict when
	// the complaint already has a pending transfer.
	Create(ctx context.Context, t *models.Transfer) error
	FindByID(ctx context.Context, id domain.TransferID) (*models.Transfer, error)
	// Execute loads the transfer, runs validate, applies mutate and persists
	// the result as one atomic step against concurrent resolvers.
	Execute(ctx context.Context, id domain.TransferID, validate func(*models.Transfer) error, mutate func(*models.Transfer)) (*models.Transfer, error)
	// PendingByComplaint returns the complaint's open transfer, or
	// sentinel.ErrNotFound when there is none.
	PendingByComplaint(ctx context.Context, number domain.ComplaintNumber) (*models.Transfer, error)
	// PendingByDepartment returns open transfers targeting a department,
	// oldest first.
	PendingByDepartment(ctx context.Context, dept domain.DepartmentID) ([]*models.Transfer, error)
	// HistoryByComplaint returns every transfer of a complaint, newest first.
	HistoryByComplaint(ctx context.Context, number domain.ComplaintNumber) ([]*models.Transfer, error)
	// ListByDepartmentAndRange returns transfers touching a department as
	// source or target, initiated inside [from, to).
	ListByDepartmentAndRange(ctx context.Context, dept domain.DepartmentID, from, to time.Time) ([]*models.Transfer, error)
}

type ConnectionStore interface {
	// Get resolves the unordered pair to its connection, or
	// sentinel.ErrNotFound.
	Get(ctx context.Context, a, b domain.DepartmentID) (*models.Connection, error)
	// Create inserts a connection. Returns sentinel.ErrAlreadyExists when
	// the unordered pair is already connected.
	Create(ctx context.Context, c *models.Connection) error
	Update(ctx context.Context, c *models.Connection) error
	List(ctx context.Context) ([]*models.Connection, error)
}
