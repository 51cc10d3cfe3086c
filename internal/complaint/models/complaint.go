package models

import (
	"time"

	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
)

// Status is the complaint lifecycle state, orthogonal to any transfer's state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusRejected   Status = "REJECTED"
)

// Complaint is a citizen grievance routed to a department/sub-department.
//
// Invariants:
//   - Number is immutable and sequential per year
//   - Department/SubDepartment always denote a directory-validated pair
//     (SubDepartment may be empty after a department-level transfer, until
//     the receiving department routes it to a desk)
//   - TransferHistory is append-only; entries are denormalized copies of each
//     transfer's key fields, correlated to the canonical record by TransferID
type Complaint struct {
	Number          domain.ComplaintNumber
	Subject         string
	Description     string
	CitizenContact  string
	Department      domain.DepartmentID
	SubDepartment   domain.SubDepartmentID
	Status          Status
	AssignedOfficer domain.OfficerCode
	TransferHistory []TransferHistoryEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TransferHistoryEntry is the complaint-embedded copy of one transfer.
// TransferID links it to the canonical transfer record; near-simultaneous
// transfers to the same target stay distinguishable that way.
type TransferHistoryEntry struct {
	TransferID        domain.TransferID
	FromDepartment    domain.DepartmentID
	FromSubDepartment domain.SubDepartmentID
	ToDepartment      domain.DepartmentID
	ToSubDepartment   domain.SubDepartmentID
	Type              string
	Reason            string
	InitiatedBy       string
	InitiatedAt       time.Time
	Status            string
	ResolvedAt        *time.Time
	RejectionReason   string
}

// New constructs a pending complaint.
func New(number domain.ComplaintNumber, subject, description, contact string, dept domain.DepartmentID, sub domain.SubDepartmentID, now time.Time) (*Complaint, error) {
	if number.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "complaint number cannot be empty")
	}
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "complaint subject cannot be empty")
	}
	if dept.IsZero() || sub.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "complaint must name a department and sub-department")
	}
	return &Complaint{
		Number:         number,
		Subject:        subject,
		Description:    description,
		CitizenContact: contact,
		Department:     dept,
		SubDepartment:  sub,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RecordTransferInitiated appends the pending history entry for a new transfer.
func (c *Complaint) RecordTransferInitiated(entry TransferHistoryEntry, now time.Time) {
	c.TransferHistory = append(c.TransferHistory, entry)
	c.UpdatedAt = now
}

// MarkTransferAccepted moves the complaint to the transfer's target, clears
// the current officer assignment so the receiving unit can claim it, and
// resolves the matching history entry.
func (c *Complaint) MarkTransferAccepted(transferID domain.TransferID, toDept domain.DepartmentID, toSub domain.SubDepartmentID, now time.Time) error {
	entry := c.historyEntry(transferID)
	if entry == nil {
		return dErrors.Newf(dErrors.CodeInternal, "complaint %s has no history entry for transfer %s", c.Number, transferID)
	}
	entry.Status = "ACCEPTED"
	entry.ResolvedAt = &now
	c.Department = toDept
	c.SubDepartment = toSub
	c.AssignedOfficer = ""
	c.UpdatedAt = now
	return nil
}

// MarkTransferRejected resolves the matching history entry; the complaint
// stays where it was.
func (c *Complaint) MarkTransferRejected(transferID domain.TransferID, reason string, now time.Time) error {
	entry := c.historyEntry(transferID)
	if entry == nil {
		return dErrors.Newf(dErrors.CodeInternal, "complaint %s has no history entry for transfer %s", c.Number, transferID)
	}
	entry.Status = "REJECTED"
	entry.ResolvedAt = &now
	entry.RejectionReason = reason
	c.UpdatedAt = now
	return nil
}

// ClearAssignment drops a dangling officer reference during consistency repair.
func (c *Complaint) ClearAssignment(now time.Time) {
	c.AssignedOfficer = ""
	c.UpdatedAt = now
}

func (c *Complaint) historyEntry(transferID domain.TransferID) *TransferHistoryEntry {
	for i := range c.TransferHistory {
		if c.TransferHistory[i].TransferID == transferID {
			return &c.TransferHistory[i]
		}
	}
	return nil
}
