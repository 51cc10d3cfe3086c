package models

import (
	"time"

	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
)

// Type classifies a transfer by its target shape.
type Type string

const (
	// TypeDepartment moves the complaint to another department without naming
	// a desk; the receiving department routes it internally.
	TypeDepartment Type = "DEPARTMENT"
	// TypeSubDepartment moves the complaint to a specific desk.
	TypeSubDepartment Type = "SUB_DEPARTMENT"
	// TypeEscalation moves the complaint upward for supervisory attention.
	TypeEscalation Type = "ESCALATION"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeDepartment, TypeSubDepartment, TypeEscalation:
		return Type(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown transfer type %q", s)
	}
}

// Reason is the closed set of grounds for initiating a transfer.
type Reason string

const (
	ReasonWrongDepartment        Reason = "WRONG_DEPARTMENT"
	ReasonWorkloadBalancing      Reason = "WORKLOAD_BALANCING"
	ReasonSpecializationRequired Reason = "SPECIALIZATION_REQUIRED"
	ReasonJurisdiction           Reason = "JURISDICTION"
	ReasonEscalation             Reason = "ESCALATION"
)

func ParseReason(s string) (Reason, error) {
	switch Reason(s) {
	case ReasonWrongDepartment, ReasonWorkloadBalancing, ReasonSpecializationRequired,
		ReasonJurisdiction, ReasonEscalation:
		return Reason(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown transfer reason %q", s)
	}
}

// Status is the transfer state machine: PENDING resolves exactly once into
// ACCEPTED or REJECTED, both terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// MinRejectionReasonLen is the shortest rejection reason accepted; anything
// shorter is not actionable for the initiator.
const MinRejectionReasonLen = 10

// Transfer is the canonical record of one proposed complaint move. The
// from-pair is a snapshot taken at initiation; the complaint itself may have
// moved on by the time the transfer resolves.
type Transfer struct {
	ID                domain.TransferID
	ComplaintNumber   domain.ComplaintNumber
	FromDepartment    domain.DepartmentID
	FromSubDepartment domain.SubDepartmentID
	ToDepartment      domain.DepartmentID
	// ToSubDepartment is empty for department-level transfers.
	ToSubDepartment domain.SubDepartmentID
	Type            Type
	Reason          Reason
	Notes           string
	InitiatedBy     string
	InitiatorRole   domain.Role
	Status          Status
	ResolvedBy      string
	ResolvedAt      *time.Time
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New constructs a pending transfer. The from-pair is the complaint's
// location at initiation time.
func New(complaintNumber domain.ComplaintNumber, fromDept domain.DepartmentID, fromSub domain.SubDepartmentID,
	toDept domain.DepartmentID, toSub domain.SubDepartmentID,
	typ Type, reason Reason, notes string, actor domain.Actor, now time.Time) *Transfer {
	return &Transfer{
		ID:                domain.NewTransferID(),
		ComplaintNumber:   complaintNumber,
		FromDepartment:    fromDept,
		FromSubDepartment: fromSub,
		ToDepartment:      toDept,
		ToSubDepartment:   toSub,
		Type:              typ,
		Reason:            reason,
		Notes:             notes,
		InitiatedBy:       actor.ID,
		InitiatorRole:     actor.Role,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// DepartmentLevel reports whether the transfer targets a whole department
// rather than a specific desk.
func (t *Transfer) DepartmentLevel() bool {
	return t.ToSubDepartment.IsZero()
}

// CanResolve checks that the transfer is still open. Accept and reject are
// mutually exclusive terminal transitions; the loser of a race gets a
// deterministic conflict.
func (t *Transfer) CanResolve() error {
	if t.Status != StatusPending {
		return dErrors.WithReason(dErrors.CodeConflict, dErrors.ReasonTransferNotPending,
			"transfer has already been resolved as "+string(t.Status))
	}
	return nil
}

// ApplyAccept records the terminal ACCEPTED state.
func (t *Transfer) ApplyAccept(by string, now time.Time) {
	t.Status = StatusAccepted
	t.ResolvedBy = by
	t.ResolvedAt = &now
	t.UpdatedAt = now
}

// CanReject additionally validates the rejection reason.
func (t *Transfer) CanReject(reason string) error {
	if err := t.CanResolve(); err != nil {
		return err
	}
	if len(reason) < MinRejectionReasonLen {
		return dErrors.WithReason(dErrors.CodeInvalidInput, dErrors.ReasonInvalidRejectionReason,
			"rejection reason must be at least 10 characters")
	}
	return nil
}

// ApplyReject records the terminal REJECTED state with its reason.
func (t *Transfer) ApplyReject(by, reason string, now time.Time) {
	t.Status = StatusRejected
	t.ResolvedBy = by
	t.ResolvedAt = &now
	t.RejectionReason = reason
	t.UpdatedAt = now
}

// ProcessingTime is the pending-to-resolution duration, zero while pending.
func (t *Transfer) ProcessingTime() time.Duration {
	if t.ResolvedAt == nil {
		return 0
	}
	return t.ResolvedAt.Sub(t.CreatedAt)
}
