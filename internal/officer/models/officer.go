package models

import (
	"time"

	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
)

// Officer is a staff account bound to exactly one department/sub-department
// pair.
//
// Invariants:
//   - Code is immutable after construction and unique system-wide
//   - Department is set iff SubDepartment is set; the integrity validator
//     additionally requires the sub-department's parent to equal Department
//   - History is append-only, ordered by At
//
// A half-set assignment can only arise from partial-failure drift; the
// consistency auditor detects and repairs it.
type Officer struct {
	Code              domain.OfficerCode
	Name              string
	Contact           string
	PasswordHash      string
	TemporaryPassword bool
	Role              domain.Role
	Department        domain.DepartmentID
	SubDepartment     domain.SubDepartmentID
	Active            bool
	History           []AssignmentChange
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AssignmentChange is one reassignment in the officer's embedded history.
type AssignmentChange struct {
	FromDepartment    domain.DepartmentID
	FromSubDepartment domain.SubDepartmentID
	ToDepartment      domain.DepartmentID
	ToSubDepartment   domain.SubDepartmentID
	InitiatedBy       string
	Reason            string
	At                time.Time
}

// NewOfficer constructs an active officer with a freshly generated code and
// hashed temporary credential.
func NewOfficer(code domain.OfficerCode, name, contact, passwordHash string, dept domain.DepartmentID, sub domain.SubDepartmentID, now time.Time) (*Officer, error) {
	if code.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "officer code cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "officer name cannot be empty")
	}
	if dept.IsZero() || sub.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "officer assignment must name both department and sub-department")
	}
	return &Officer{
		Code:              code,
		Name:              name,
		Contact:           contact,
		PasswordHash:      passwordHash,
		TemporaryPassword: true,
		Role:              domain.RoleOfficer,
		Department:        dept,
		SubDepartment:     sub,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// AssignmentComplete reports whether the department/sub-department pair is
// either fully set or fully absent.
func (o *Officer) AssignmentComplete() bool {
	return o.Department.IsZero() == o.SubDepartment.IsZero()
}

// AssignedTo reports whether the officer currently sits at the given pair.
func (o *Officer) AssignedTo(dept domain.DepartmentID, sub domain.SubDepartmentID) bool {
	return o.Department == dept && o.SubDepartment == sub
}

// CanTransferTo checks whether a reassignment to the destination pair is
// allowed. Use with ApplyTransfer inside the store's Execute callback.
func (o *Officer) CanTransferTo(dept domain.DepartmentID, sub domain.SubDepartmentID) error {
	if !o.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "officer is inactive")
	}
	if o.AssignedTo(dept, sub) {
		return dErrors.New(dErrors.CodeInvariantViolation, "officer is already assigned to the destination")
	}
	return nil
}

// ApplyTransfer moves the officer to the destination pair and appends the
// history entry. Call CanTransferTo first to validate the transition.
func (o *Officer) ApplyTransfer(dept domain.DepartmentID, sub domain.SubDepartmentID, initiatedBy, reason string, now time.Time) {
	o.History = append(o.History, AssignmentChange{
		FromDepartment:    o.Department,
		FromSubDepartment: o.SubDepartment,
		ToDepartment:      dept,
		ToSubDepartment:   sub,
		InitiatedBy:       initiatedBy,
		Reason:            reason,
		At:                now,
	})
	o.Department = dept
	o.SubDepartment = sub
	o.UpdatedAt = now
}

// ClearAssignment strips a half-set assignment during consistency repair.
func (o *Officer) ClearAssignment(now time.Time) {
	o.Department = ""
	o.SubDepartment = ""
	o.Active = false
	o.UpdatedAt = now
}
