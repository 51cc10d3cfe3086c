package models

import (
	"time"

	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
)

// Connection is the undirected relationship record between two departments
// that have exchanged at least one transfer. Exactly one record exists per
// unordered pair; DepartmentA sorts before DepartmentB so the pair key is
// canonical regardless of argument order.
type Connection struct {
	DepartmentA     domain.DepartmentID
	DepartmentB     domain.DepartmentID
	TransferEnabled bool
	EstablishedBy   string
	Active          bool
	TransferCount   int64
	LastTransferAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PairKey returns the canonical unordered key for two departments, so that
// (A,B) and (B,A) address the same connection.
func PairKey(a, b domain.DepartmentID) (domain.DepartmentID, domain.DepartmentID) {
	if b < a {
		return b, a
	}
	return a, b
}

// NewConnection constructs a transfer-enabled connection for an unordered
// department pair. Self-loops are forbidden.
func NewConnection(a, b domain.DepartmentID, establishedBy string, now time.Time) (*Connection, error) {
	if a == b {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "department %s cannot connect to itself", a)
	}
	a, b = PairKey(a, b)
	return &Connection{
		DepartmentA:     a,
		DepartmentB:     b,
		TransferEnabled: true,
		EstablishedBy:   establishedBy,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// RecordTransfer bumps the transfer counter and last-activity timestamp, and
// revives a soft-deactivated connection instead of letting a duplicate appear.
func (c *Connection) RecordTransfer(now time.Time) {
	c.Active = true
	c.TransferEnabled = true
	c.TransferCount++
	c.LastTransferAt = &now
	c.UpdatedAt = now
}

// Deactivate soft-disables the connection; the record and its counters stay.
func (c *Connection) Deactivate(now time.Time) {
	c.Active = false
	c.UpdatedAt = now
}
