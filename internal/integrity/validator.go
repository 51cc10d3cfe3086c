package integrity

import (
	"context"
	"errors"
	"fmt"

	"suvidha/internal/directory"
	"suvidha/internal/officer/models"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/platform/sentinel"
)

// OfficerReader is the slice of the officer store the validator needs.
type OfficerReader interface {
	FindByCode(ctx context.Context, code domain.OfficerCode) (*models.Officer, error)
}

// Validator checks assignment and transfer preconditions against the
// directory and officer records. It reads and decides; it never mutates.
type Validator struct {
	directory directory.Reader
	officers  OfficerReader
}

func NewValidator(dir directory.Reader, officers OfficerReader) *Validator {
	return &Validator{directory: dir, officers: officers}
}

// AssignmentDetails is the resolved snapshot returned on success so callers
// can message with names without re-querying.
type AssignmentDetails struct {
	Department    *directory.Department
	SubDepartment *directory.SubDepartment
	Officer       *models.Officer
}

// ValidateAssignment checks that the department exists and is active, the
// sub-department exists, is active and belongs to the department, and - when
// an officer code is given - that the officer exists with role OFFICER and is
// active. Rule failures come back as Violations; missing records are hard
// NotFound errors.
func (v *Validator) ValidateAssignment(ctx context.Context, officerCode domain.OfficerCode, dept domain.DepartmentID, sub domain.SubDepartmentID) (*AssignmentDetails, error) {
	details := &AssignmentDetails{}

	d, err := v.directory.GetDepartment(ctx, dept)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "department %s not found", dept)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
	}
	if !d.Active {
		return nil, Violation{
			Constraint: ConstraintDepartmentInactive,
			Entity:     "department",
			Detail:     fmt.Sprintf("department %s is inactive", dept),
		}
	}
	details.Department = d

	sd, err := v.directory.GetSubDepartment(ctx, sub)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "sub-department %s not found", sub)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sub-department")
	}
	if !sd.Active {
		return nil, Violation{
			Constraint: ConstraintSubDepartmentInactive,
			Entity:     "sub_department",
			Detail:     fmt.Sprintf("sub-department %s is inactive", sub),
		}
	}
	if sd.ParentID != dept {
		return nil, Violation{
			Constraint: ConstraintSubDepartmentParent,
			Entity:     "sub_department",
			Detail:     fmt.Sprintf("sub-department %s belongs to %s, not %s", sub, sd.ParentID, dept),
		}
	}
	details.SubDepartment = sd

	if !officerCode.IsZero() {
		o, err := v.officers.FindByCode(ctx, officerCode)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Newf(dErrors.CodeNotFound, "officer %s not found", officerCode)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load officer")
		}
		if o.Role != domain.RoleOfficer {
			return nil, Violation{
				Constraint: ConstraintOfficerRoleRequired,
				Entity:     "officer",
				Detail:     fmt.Sprintf("account %s does not hold the OFFICER role", officerCode),
			}
		}
		if !o.Active {
			return nil, Violation{
				Constraint: ConstraintOfficerInactive,
				Entity:     "officer",
				Detail:     fmt.Sprintf("officer %s is inactive", officerCode),
			}
		}
		details.Officer = o
	}

	return details, nil
}

// TransferRequest is the validator's view of a proposed complaint transfer.
type TransferRequest struct {
	Actor             domain.Actor
	FromDepartment    domain.DepartmentID
	FromSubDepartment domain.SubDepartmentID
	ToDepartment      domain.DepartmentID
	// ToSubDepartment is empty for department-level transfers.
	ToSubDepartment domain.SubDepartmentID
}

// ValidateTransferConstraints checks role, destination validity, the
// stale-client guard and the from/to distinctness rule. Rule failures are
// accumulated and returned together; authority and missing-record failures
// abort immediately.
func (v *Validator) ValidateTransferConstraints(ctx context.Context, req TransferRequest) error {
	if !req.Actor.Role.AtLeast(domain.RoleOfficer) {
		return dErrors.WithReason(dErrors.CodeForbidden, dErrors.ReasonInsufficientAuthority,
			"transferring a complaint requires the OFFICER role or above")
	}

	var violations Violations

	// An officer's client may be looking at a stale desk: their recorded
	// assignment must still match the declared source pair.
	if req.Actor.Role == domain.RoleOfficer {
		code, err := domain.ParseOfficerCode(req.Actor.ID)
		if err != nil {
			return dErrors.New(dErrors.CodeUnauthorized, "actor is not a recognized officer")
		}
		o, err := v.officers.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "officer %s not found", code)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load acting officer")
		}
		switch {
		case !o.AssignmentComplete():
			violations = append(violations, Violation{
				Constraint: ConstraintAssignmentIncomplete,
				Entity:     "officer",
				Detail:     fmt.Sprintf("officer %s has a half-set assignment (%q/%q)", code, o.Department, o.SubDepartment),
			})
		case !o.AssignedTo(req.FromDepartment, req.FromSubDepartment):
			violations = append(violations, Violation{
				Constraint: ConstraintStaleSourceAssignment,
				Entity:     "officer",
				Detail: fmt.Sprintf("officer %s is assigned to %s/%s, not the declared source %s/%s",
					code, o.Department, o.SubDepartment, req.FromDepartment, req.FromSubDepartment),
			})
		}
	}

	if req.ToSubDepartment.IsZero() {
		// Department-level transfer: destination department must exist and be
		// active, and moving a complaint to its own department is a no-op.
		d, err := v.directory.GetDepartment(ctx, req.ToDepartment)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "department %s not found", req.ToDepartment)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load destination department")
		}
		if !d.Active {
			violations = append(violations, Violation{
				Constraint: ConstraintDepartmentInactive,
				Entity:     "department",
				Detail:     fmt.Sprintf("department %s is inactive", req.ToDepartment),
			})
		}
		if req.ToDepartment == req.FromDepartment {
			violations = append(violations, sameTransferViolation(req))
		}
		return violations.ErrOrNil()
	}

	if _, err := v.ValidateAssignment(ctx, "", req.ToDepartment, req.ToSubDepartment); err != nil {
		var violation Violation
		if errors.As(err, &violation) {
			violations = append(violations, violation)
		} else {
			return err
		}
	}
	if req.ToDepartment == req.FromDepartment && req.ToSubDepartment == req.FromSubDepartment {
		violations = append(violations, sameTransferViolation(req))
	}
	return violations.ErrOrNil()
}

func sameTransferViolation(req TransferRequest) Violation {
	return Violation{
		Constraint: ConstraintSameDepartmentTransfer,
		Entity:     "transfer",
		Detail: fmt.Sprintf("source and destination are identical (%s/%s)",
			req.FromDepartment, req.FromSubDepartment),
	}
}
