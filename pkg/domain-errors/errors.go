// Package domainerrors provides the error taxonomy shared by all services.
//
// Every failure a caller can act on carries a Code (the broad class) and,
// where the class alone is ambiguous, a stable machine-readable Reason string
// (e.g. DUPLICATE_PENDING_TRANSFER). Infrastructure facts (record missing,
// already consumed) originate as pkg/platform/sentinel errors and are
// translated into these at the service layer.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for boundary translation and retry policy.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
)

// Stable reason strings surfaced to callers alongside the code. These must
// remain byte-stable; clients branch on them.
const (
	ReasonDuplicatePendingTransfer = "DUPLICATE_PENDING_TRANSFER"
	ReasonTransferNotPending       = "TRANSFER_NOT_PENDING"
	ReasonConnectionAlreadyExists  = "CONNECTION_ALREADY_EXISTS"
	ReasonSameDepartmentTransfer   = "SAME_DEPARTMENT_SUBDEPARTMENT_TRANSFER"
	ReasonInvalidRejectionReason   = "INVALID_REJECTION_REASON"
	ReasonInsufficientAuthority    = "INSUFFICIENT_AUTHORITY"
)

// Error is the concrete error type carried across service boundaries.
type Error struct {
	Code    Code
	Reason  string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an error with a code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an error with a code and formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithReason creates an error carrying a stable machine-readable reason.
func WithReason(code Code, reason, msg string) error {
	return &Error{Code: code, Reason: reason, Message: msg}
}

// Wrap annotates an underlying error with a code and message while keeping
// the cause available to errors.Is/As.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.cause
		if err == nil {
			break
		}
		e = nil
	}
	return false
}

// HasReason reports whether any error in the chain carries the given reason.
func HasReason(err error, reason string) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Reason == reason {
			return true
		}
		err = e.cause
		if err == nil {
			break
		}
		e = nil
	}
	return false
}

// ReasonOf returns the first stable reason in the chain, or empty.
func ReasonOf(err error) string {
	var e *Error
	for errors.As(err, &e) {
		if e.Reason != "" {
			return e.Reason
		}
		err = e.cause
		if err == nil {
			break
		}
		e = nil
	}
	return ""
}

// CodeOf returns the outermost code in the chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is delegates to errors.Is so call sites can stay on one import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
