// Package audit captures the immutable trail of lifecycle and transfer
// mutations. Domain services emit events through the Publisher; stores and
// sinks fan out from there. For officer and transfer mutations the event is
// appended through the same transaction as the mutation it documents, so
// neither can exist without the other.
package audit

import (
	"time"

	"github.com/google/uuid"

	"suvidha/pkg/domain"
)

// Action names an audited operation. Values are stable; consumers filter on them.
type Action string

const (
	ActionOfficerCreated     Action = "OFFICER_CREATED"
	ActionOfficerTransfer    Action = "OFFICER_TRANSFER"
	ActionOfficerRetired     Action = "OFFICER_RETIRED"
	ActionTransferInitiated  Action = "TRANSFER_INITIATED"
	ActionTransferAccepted   Action = "TRANSFER_ACCEPTED"
	ActionTransferRejected   Action = "TRANSFER_REJECTED"
	ActionConnectionCreated  Action = "CONNECTION_ESTABLISHED"
	ActionConsistencyCleanup Action = "CONSISTENCY_CLEANUP"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID
	Timestamp  time.Time
	Action     Action
	ActorID    string
	ActorRole  domain.Role
	EntityType string
	EntityID   string
	RequestID  string
	Details    Details
}

// Details is the closed set of per-action payloads. Each action carries a
// fixed field set rather than an open map so the taxonomy stays testable.
type Details interface {
	auditDetails()
}

type OfficerCreatedDetails struct {
	Code          domain.OfficerCode     `json:"code"`
	Name          string                 `json:"name"`
	Department    domain.DepartmentID    `json:"department"`
	SubDepartment domain.SubDepartmentID `json:"sub_department"`
}

type OfficerTransferDetails struct {
	Code              domain.OfficerCode     `json:"code"`
	FromDepartment    domain.DepartmentID    `json:"from_department"`
	FromSubDepartment domain.SubDepartmentID `json:"from_sub_department"`
	ToDepartment      domain.DepartmentID    `json:"to_department"`
	ToSubDepartment   domain.SubDepartmentID `json:"to_sub_department"`
	Reason            string                 `json:"reason"`
}

// OfficerRetiredDetails is the full snapshot taken before the identity record
// is deleted; it is the only surviving trace of the officer.
type OfficerRetiredDetails struct {
	Code              domain.OfficerCode       `json:"code"`
	Name              string                   `json:"name"`
	LastDepartment    domain.DepartmentID      `json:"last_department"`
	LastSubDepartment domain.SubDepartmentID   `json:"last_sub_department"`
	History           []OfficerTransferDetails `json:"history"`
}

type TransferInitiatedDetails struct {
	TransferID        domain.TransferID      `json:"transfer_id"`
	ComplaintNumber   domain.ComplaintNumber `json:"complaint_number"`
	FromDepartment    domain.DepartmentID    `json:"from_department"`
	FromSubDepartment domain.SubDepartmentID `json:"from_sub_department"`
	ToDepartment      domain.DepartmentID    `json:"to_department"`
	ToSubDepartment   domain.SubDepartmentID `json:"to_sub_department"`
	Type              string                 `json:"type"`
	Reason            string                 `json:"reason"`
	ConnectionCreated bool                   `json:"connection_created"`
}

type TransferResolvedDetails struct {
	TransferID      domain.TransferID      `json:"transfer_id"`
	ComplaintNumber domain.ComplaintNumber `json:"complaint_number"`
	Outcome         string                 `json:"outcome"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
}

type ConnectionCreatedDetails struct {
	DepartmentA domain.DepartmentID `json:"department_a"`
	DepartmentB domain.DepartmentID `json:"department_b"`
	Reactivated bool                `json:"reactivated"`
}

type CleanupDetails struct {
	OrphanedSubDepartments int `json:"orphaned_sub_departments"`
	IncompleteOfficers     int `json:"incomplete_officers"`
	ClearedAssignments     int `json:"cleared_assignments"`
}

func (OfficerCreatedDetails) auditDetails() {}
func (OfficerTransferDetails) auditDetails() {}
func (OfficerRetiredDetails) auditDetails() {}
func (TransferInitiatedDetails) auditDetails() {}
func (TransferResolvedDetails) auditDetails() {}
func (ConnectionCreatedDetails) auditDetails() {}
func (CleanupDetails) auditDetails() {}
