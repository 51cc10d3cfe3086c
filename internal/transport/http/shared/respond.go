// Package shared holds the response helpers every handler uses, so the JSON
// error envelope stays identical across domains.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"suvidha/internal/integrity"
	dErrors "suvidha/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope. Code and Reason are stable
// machine-readable strings; Message is for humans. Violations carries the
// accumulated business-rule failures when the integrity validator rejects a
// request.
type ErrorResponse struct {
	Code       string              `json:"code"`
	Reason     string              `json:"reason,omitempty"`
	Message    string              `json:"message"`
	Violations []ViolationResponse `json:"violations,omitempty"`
}

type ViolationResponse struct {
	Constraint string `json:"constraint"`
	Entity     string `json:"entity"`
	Detail     string `json:"detail"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a service error into the JSON error envelope.
// Integrity violations map to 422; domain error codes map through
// statusForCode.
func WriteError(w http.ResponseWriter, err error) {
	var violation integrity.Violation
	var violations integrity.Violations
	switch {
	case errors.As(err, &violations):
	case errors.As(err, &violation):
		violations = integrity.Violations{violation}
	}
	if len(violations) > 0 {
		resp := ErrorResponse{
			Code:    string(dErrors.CodeValidation),
			Message: "request violates integrity constraints",
		}
		if len(violations) == 1 {
			resp.Reason = string(violations[0].Constraint)
		}
		for _, v := range violations {
			resp.Violations = append(resp.Violations, ViolationResponse{
				Constraint: string(v.Constraint),
				Entity:     v.Entity,
				Detail:     v.Detail,
			})
		}
		WriteJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	code := dErrors.CodeOf(err)
	message := "internal error"
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	WriteJSON(w, statusForCode(code), ErrorResponse{
		Code:    string(code),
		Reason:  dErrors.ReasonOf(err),
		Message: message,
	})
}

func statusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
