// Package store persists complaints. The embedded transfer history is read
// and written whole with its complaint; the canonical transfer records live
// in the transfer store.
package store

import (
	"context"

	"suvidha/internal/complaint/models"
	"suvidha/pkg/domain"
)

type Store interface {
	Create(ctx context.Context, c *models.Complaint) error
	FindByNumber(ctx context.Context, number domain.ComplaintNumber) (*models.Complaint, error)
	Update(ctx context.Context, c *models.Complaint) error
	// ListAssigned returns every complaint that currently references an
	// officer, for consistency scans.
	ListAssigned(ctx context.Context) ([]*models.Complaint, error)
}
