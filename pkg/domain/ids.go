// Package domain holds the typed identifiers and closed value types shared by
// every service. Construct values via the Parse helpers at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dErrors "suvidha/pkg/domain-errors"
)

// DepartmentID is the short uppercase code of a department (e.g. "WATER").
type DepartmentID string

// SubDepartmentID is the short uppercase code of a sub-department
// (e.g. "BILLING"). Sub-department codes are unique across departments.
type SubDepartmentID string

func (d DepartmentID) IsZero() bool    { return d == "" }
func (s SubDepartmentID) IsZero() bool { return s == "" }

// TransferID identifies a complaint transfer record.
type TransferID uuid.UUID

func NewTransferID() TransferID {
	return TransferID(uuid.New())
}

func (t TransferID) IsNil() bool {
	return uuid.UUID(t) == uuid.Nil
}

func (t TransferID) String() string {
	return uuid.UUID(t).String()
}

// MarshalText renders the canonical UUID form, for JSON and log encoding.
func (t TransferID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(t).String()), nil
}

func (t *TransferID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return fmt.Errorf("parse transfer ID: %w", err)
	}
	*t = TransferID(parsed)
	return nil
}

// Value and Scan let a TransferID pass through database/sql as text.
func (t TransferID) Value() (driver.Value, error) {
	return uuid.UUID(t).String(), nil
}

func (t *TransferID) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into TransferID", src)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("scan transfer ID: %w", err)
	}
	*t = TransferID(parsed)
	return nil
}

// ParseTransferID constructs a TransferID from external input.
func ParseTransferID(s string) (TransferID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || parsed == uuid.Nil {
		return TransferID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid transfer ID")
	}
	return TransferID(parsed), nil
}

// ParseDepartmentID normalizes and validates a department code.
func ParseDepartmentID(s string) (DepartmentID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "department code is required")
	}
	return DepartmentID(s), nil
}

// ParseSubDepartmentID normalizes and validates a sub-department code.
func ParseSubDepartmentID(s string) (SubDepartmentID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "sub-department code is required")
	}
	return SubDepartmentID(s), nil
}
