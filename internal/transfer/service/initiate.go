package service

import (
	"context"
	"errors"
	"time"

	"suvidha/internal/audit"
	complaintmodels "suvidha/internal/complaint/models"
	"suvidha/internal/integrity"
	"suvidha/internal/transfer/models"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/platform/sentinel"
	"suvidha/pkg/requestcontext"
)

// InitiateRequest carries the validated inputs for a new transfer.
type InitiateRequest struct {
	ComplaintNumber domain.ComplaintNumber
	ToDepartment    domain.DepartmentID
	// ToSubDepartment is empty for department-level transfers.
	ToSubDepartment domain.SubDepartmentID
	Type            models.Type
	Reason          models.Reason
	Notes           string
}

// InitiateResult reports the created transfer and whether the workflow had to
// establish a new department connection on the way.
type InitiateResult struct {
	Transfer          *models.Transfer
	ConnectionCreated bool
}

// InitiateTransfer proposes moving a complaint to another department or desk.
// Any officer may transfer any complaint; there is no ownership restriction.
// The single-pending-per-complaint invariant is re-verified inside the
// transaction, so a concurrent initiator that loses the race gets a
// deterministic DUPLICATE_PENDING_TRANSFER.
func (s *Service) InitiateTransfer(ctx context.Context, actor domain.Actor, req InitiateRequest) (*InitiateResult, error) {
	if req.ToSubDepartment.IsZero() && req.Type == models.TypeSubDepartment {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "sub-department transfer requires a target sub-department")
	}

	ctx = withTxKey(ctx, string(req.ComplaintNumber))
	now := requestcontext.Now(ctx)

	var result InitiateResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		complaint, err := stores.Complaints.FindByNumber(ctx, req.ComplaintNumber)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "complaint %s not found", req.ComplaintNumber)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load complaint")
		}

		if err := s.validator.ValidateTransferConstraints(ctx, integrity.TransferRequest{
			Actor:             actor,
			FromDepartment:    complaint.Department,
			FromSubDepartment: complaint.SubDepartment,
			ToDepartment:      req.ToDepartment,
			ToSubDepartment:   req.ToSubDepartment,
		}); err != nil {
			return err
		}

		if _, err := stores.Transfers.PendingByComplaint(ctx, req.ComplaintNumber); err == nil {
			return dErrors.WithReason(dErrors.CodeConflict, dErrors.ReasonDuplicatePendingTransfer,
				"complaint already has a pending transfer")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending transfers")
		}

		transfer := models.New(req.ComplaintNumber, complaint.Department, complaint.SubDepartment,
			req.ToDepartment, req.ToSubDepartment, req.Type, req.Reason, req.Notes, actor, now)
		if err := stores.Transfers.Create(ctx, transfer); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.WithReason(dErrors.CodeConflict, dErrors.ReasonDuplicatePendingTransfer,
					"complaint already has a pending transfer")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create transfer")
		}

		complaint.RecordTransferInitiated(complaintmodels.TransferHistoryEntry{
			TransferID:        transfer.ID,
			FromDepartment:    transfer.FromDepartment,
			FromSubDepartment: transfer.FromSubDepartment,
			ToDepartment:      transfer.ToDepartment,
			ToSubDepartment:   transfer.ToSubDepartment,
			Type:              string(transfer.Type),
			Reason:            string(transfer.Reason),
			InitiatedBy:       transfer.InitiatedBy,
			InitiatedAt:       now,
			Status:            string(models.StatusPending),
		}, now)
		if err := stores.Complaints.Update(ctx, complaint); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transfer on complaint")
		}

		created := false
		if req.ToDepartment != complaint.Department {
			created, err = s.touchConnection(ctx, stores, complaint.Department, req.ToDepartment, actor, now)
			if err != nil {
				return err
			}
		}

		if err := s.auditPublisher.Emit(ctx, audit.Event{
			Action:     audit.ActionTransferInitiated,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			EntityType: "transfer",
			EntityID:   transfer.ID.String(),
			Details: audit.TransferInitiatedDetails{
				TransferID:        transfer.ID,
				ComplaintNumber:   transfer.ComplaintNumber,
				FromDepartment:    transfer.FromDepartment,
				FromSubDepartment: transfer.FromSubDepartment,
				ToDepartment:      transfer.ToDepartment,
				ToSubDepartment:   transfer.ToSubDepartment,
				Type:              string(transfer.Type),
				Reason:            string(transfer.Reason),
				ConnectionCreated: created,
			},
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit transfer initiation")
		}

		result = InitiateResult{Transfer: transfer, ConnectionCreated: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "transfer initiated",
		"transfer_id", result.Transfer.ID.String(),
		"complaint", string(req.ComplaintNumber),
		"to_department", string(req.ToDepartment),
		"type", string(req.Type))
	if s.metrics != nil {
		s.metrics.TransfersInitiated.WithLabelValues(string(req.Type)).Inc()
		if result.ConnectionCreated {
			s.metrics.ConnectionsEstablished.Inc()
		}
	}
	return &result, nil
}

// touchConnection gets or creates the undirected connection for a department
// pair and bumps its transfer activity. Idempotent: a lost create race falls
// back to updating the row the winner inserted; an inactive connection is
// reactivated rather than duplicated.
func (s *Service) touchConnection(ctx context.Context, stores Stores, a, b domain.DepartmentID, actor domain.Actor, now time.Time) (created bool, err error) {
	conn, err := stores.Connections.Get(ctx, a, b)
	switch {
	case err == nil:
		created = !conn.Active
	case errors.Is(err, sentinel.ErrNotFound):
		conn, err = models.NewConnection(a, b, actor.ID, now)
		if err != nil {
			return false, err
		}
		conn.RecordTransfer(now)
		switch createErr := stores.Connections.Create(ctx, conn); {
		case createErr == nil:
			return true, s.auditConnection(ctx, actor, conn, false)
		case errors.Is(createErr, sentinel.ErrAlreadyExists):
			// Another workflow won the insert; fall through to update theirs.
			conn, err = stores.Connections.Get(ctx, a, b)
			if err != nil {
				return false, dErrors.WithReason(dErrors.CodeConflict, dErrors.ReasonConnectionAlreadyExists,
					"department connection was created concurrently")
			}
		default:
			return false, dErrors.Wrap(createErr, dErrors.CodeInternal, "failed to create department connection")
		}
	default:
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department connection")
	}

	reactivated := !conn.Active
	conn.RecordTransfer(now)
	if err := stores.Connections.Update(ctx, conn); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update department connection")
	}
	if reactivated {
		if err := s.auditConnection(ctx, actor, conn, true); err != nil {
			return false, err
		}
	}
	return created, nil
}

func (s *Service) auditConnection(ctx context.Context, actor domain.Actor, conn *models.Connection, reactivated bool) error {
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:     audit.ActionConnectionCreated,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		EntityType: "department_connection",
		EntityID:   string(conn.DepartmentA) + "|" + string(conn.DepartmentB),
		Details: audit.ConnectionCreatedDetails{
			DepartmentA: conn.DepartmentA,
			DepartmentB: conn.DepartmentB,
			Reactivated: reactivated,
		},
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit connection establishment")
	}
	return nil
}
