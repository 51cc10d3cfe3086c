package service

import (
	"context"
	"errors"

	"suvidha/internal/audit"
	"suvidha/internal/transfer/models"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/platform/sentinel"
	"suvidha/pkg/requestcontext"
)

// AcceptTransfer resolves a pending transfer in favor of the move: the
// complaint adopts the target department/sub-department and is unclaimed so
// the receiving unit can pick it up. A department-level transfer adopts the
// department without narrowing to a desk.
func (s *Service) AcceptTransfer(ctx context.Context, actor domain.Actor, id domain.TransferID) (*models.Transfer, error) {
	transfer, err := s.loadForResolution(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ctx = withTxKey(ctx, string(transfer.ComplaintNumber))
	now := requestcontext.Now(ctx)

	var resolved *models.Transfer
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		resolved, err = stores.Transfers.Execute(ctx, id,
			func(t *models.Transfer) error { return t.CanResolve() },
			func(t *models.Transfer) { t.ApplyAccept(actor.ID, now) })
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "transfer %s not found", id)
			}
			return err
		}

		complaint, err := stores.Complaints.FindByNumber(ctx, resolved.ComplaintNumber)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load complaint for accepted transfer")
		}
		if err := complaint.MarkTransferAccepted(resolved.ID, resolved.ToDepartment, resolved.ToSubDepartment, now); err != nil {
			return err
		}
		if err := stores.Complaints.Update(ctx, complaint); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to move complaint")
		}

		return s.auditResolution(ctx, actor, audit.ActionTransferAccepted, resolved)
	})
	if err != nil {
		return nil, err
	}

	s.recordResolution(ctx, resolved, "transfer accepted")
	return resolved, nil
}

// RejectTransfer resolves a pending transfer against the move. The complaint
// stays where it was; only the transfer record and its embedded history entry
// change. The rejection reason must be substantial enough for the initiator
// to act on.
func (s *Service) RejectTransfer(ctx context.Context, actor domain.Actor, id domain.TransferID, rejectionReason string) (*models.Transfer, error) {
	transfer, err := s.loadForResolution(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ctx = withTxKey(ctx, string(transfer.ComplaintNumber))
	now := requestcontext.Now(ctx)

	var resolved *models.Transfer
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		resolved, err = stores.Transfers.Execute(ctx, id,
			func(t *models.Transfer) error { return t.CanReject(rejectionReason) },
			func(t *models.Transfer) { t.ApplyReject(actor.ID, rejectionReason, now) })
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "transfer %s not found", id)
			}
			return err
		}

		complaint, err := stores.Complaints.FindByNumber(ctx, resolved.ComplaintNumber)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load complaint for rejected transfer")
		}
		if err := complaint.MarkTransferRejected(resolved.ID, rejectionReason, now); err != nil {
			return err
		}
		if err := stores.Complaints.Update(ctx, complaint); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record rejection on complaint")
		}

		return s.auditResolution(ctx, actor, audit.ActionTransferRejected, resolved)
	})
	if err != nil {
		return nil, err
	}

	s.recordResolution(ctx, resolved, "transfer rejected")
	return resolved, nil
}

// loadForResolution fetches the transfer and enforces the acceptor rule: an
// officer may only resolve transfers targeting their own desk (or their own
// department, for department-level transfers); admin roles are exempt. The
// target fields are immutable after initiation, so this pre-transaction read
// is safe; the PENDING check happens again inside the transaction.
func (s *Service) loadForResolution(ctx context.Context, actor domain.Actor, id domain.TransferID) (*models.Transfer, error) {
	transfer, err := s.stores.Transfers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "transfer %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer")
	}

	if actor.Role != domain.RoleOfficer {
		if !actor.Role.AtLeast(domain.RoleAdmin) {
			return nil, dErrors.WithReason(dErrors.CodeForbidden, dErrors.ReasonInsufficientAuthority,
				"resolving a transfer requires the OFFICER role or above")
		}
		return transfer, nil
	}

	code, err := domain.ParseOfficerCode(actor.ID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is not a recognized officer")
	}
	officer, err := s.officers.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "officer %s not found", code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load acting officer")
	}
	if transfer.DepartmentLevel() {
		if officer.Department != transfer.ToDepartment {
			return nil, dErrors.WithReason(dErrors.CodeForbidden, dErrors.ReasonInsufficientAuthority,
				"only officers of the target department may resolve this transfer")
		}
		return transfer, nil
	}
	if officer.SubDepartment != transfer.ToSubDepartment {
		return nil, dErrors.WithReason(dErrors.CodeForbidden, dErrors.ReasonInsufficientAuthority,
			"only officers of the target sub-department may resolve this transfer")
	}
	return transfer, nil
}

func (s *Service) auditResolution(ctx context.Context, actor domain.Actor, action audit.Action, t *models.Transfer) error {
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:     action,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		EntityType: "transfer",
		EntityID:   t.ID.String(),
		Details: audit.TransferResolvedDetails{
			TransferID:      t.ID,
			ComplaintNumber: t.ComplaintNumber,
			Outcome:         string(t.Status),
			RejectionReason: t.RejectionReason,
		},
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit transfer resolution")
	}
	return nil
}

func (s *Service) recordResolution(ctx context.Context, t *models.Transfer, msg string) {
	s.logAudit(ctx, msg,
		"transfer_id", t.ID.String(),
		"complaint", string(t.ComplaintNumber),
		"outcome", string(t.Status))
	if s.metrics != nil {
		s.metrics.TransfersResolved.WithLabelValues(string(t.Status)).Inc()
		s.metrics.TransferResolution.Observe(t.ProcessingTime().Seconds())
	}
}
