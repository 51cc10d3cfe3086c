package directory

import (
	"context"

	"suvidha/pkg/domain"
)

// Reader is the lookup surface consumed by the integrity validator and the
// workflow services. Implementations return sentinel.ErrNotFound for unknown
// codes.
type Reader interface {
	GetDepartment(ctx context.Context, id domain.DepartmentID) (*Department, error)
	GetSubDepartment(ctx context.Context, id domain.SubDepartmentID) (*SubDepartment, error)
}

// Store adds the enumeration and repair surface used by seeding and the
// consistency auditor. Kept separate from Reader so workflow services cannot
// reach the mutating methods.
type Store interface {
	Reader
	ListDepartments(ctx context.Context) ([]*Department, error)
	ListSubDepartments(ctx context.Context) ([]*SubDepartment, error)
	SaveDepartment(ctx context.Context, d *Department) error
	SaveSubDepartment(ctx context.Context, sd *SubDepartment) error
	DeactivateSubDepartment(ctx context.Context, id domain.SubDepartmentID) error
}
