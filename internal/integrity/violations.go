// Package integrity holds the pure precondition checks shared by the officer
// lifecycle and transfer workflow services. Business-rule failures come back
// as typed Violations the caller can correct; missing records and role
// failures are hard errors.
package integrity

import (
	"errors"
	"fmt"
	"strings"
)

// Constraint names a business rule. Values are stable and surfaced to callers
// verbatim.
type Constraint string

const (
	ConstraintDepartmentInactive     Constraint = "DEPARTMENT_INACTIVE"
	ConstraintSubDepartmentInactive  Constraint = "SUBDEPARTMENT_INACTIVE"
	ConstraintSubDepartmentParent    Constraint = "SUBDEPARTMENT_PARENT_MISMATCH"
	ConstraintOfficerInactive        Constraint = "OFFICER_INACTIVE"
	ConstraintOfficerRoleRequired    Constraint = "OFFICER_ROLE_REQUIRED"
	ConstraintStaleSourceAssignment  Constraint = "STALE_SOURCE_ASSIGNMENT"
	ConstraintSameDepartmentTransfer Constraint = "SAME_DEPARTMENT_SUBDEPARTMENT_TRANSFER"
	ConstraintAssignmentIncomplete   Constraint = "ASSIGNMENT_INCOMPLETE"
)

// Violation is a structured failure of one business-rule precondition,
// distinct from infrastructure errors.
type Violation struct {
	Constraint Constraint
	Entity     string
	Detail     string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s on %s: %s", v.Constraint, v.Entity, v.Detail)
}

// Violations accumulates every failed precondition of one request so the
// caller can fix them all at once instead of replaying the request per rule.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.Error()
	}
	return strings.Join(parts, "; ")
}

// ErrOrNil returns the accumulated violations as an error, or nil when none.
func (vs Violations) ErrOrNil() error {
	if len(vs) == 0 {
		return nil
	}
	return vs
}

// HasConstraint reports whether err carries a violation of the given
// constraint, directly or inside an accumulated set.
func HasConstraint(err error, c Constraint) bool {
	var v Violation
	if errors.As(err, &v) {
		return v.Constraint == c
	}
	var vs Violations
	if errors.As(err, &vs) {
		for _, v := range vs {
			if v.Constraint == c {
				return true
			}
		}
	}
	return false
}
