// Package directory is the read-side lookup of the organizational structure.
// Workflow services never mutate it; only seeding and the consistency
// auditor's repair pass reach the mutating methods, through the wider Store
// surface.
package directory

import (
	"time"

	"suvidha/pkg/domain"
)

// Department is a high-level organizational unit.
type Department struct {
	ID        domain.DepartmentID
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubDepartment is a desk within a department. ParentID must reference an
// existing department; the integrity validator enforces the pairing on every
// assignment.
type SubDepartment struct {
	ID        domain.SubDepartmentID
	ParentID  domain.DepartmentID
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
