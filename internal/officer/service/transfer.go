package service

import (
	"context"
	"errors"
	"strings"

	"suvidha/internal/audit"
	"suvidha/internal/officer/models"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/platform/sentinel"
	"suvidha/pkg/requestcontext"
)

// TransferRequest carries the destination for an officer reassignment.
type TransferRequest struct {
	ToDepartment    domain.DepartmentID
	ToSubDepartment domain.SubDepartmentID
	Reason          string
}

// TransferOfficer reassigns an active officer to another validated
// department/sub-department pair, appending the move to the officer's
// embedded history. The reassignment, history append and audit event land in
// one unit of work.
func (s *Service) TransferOfficer(ctx context.Context, actor domain.Actor, code domain.OfficerCode, req TransferRequest) (*models.Officer, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "transfer reason is required")
	}

	if _, err := s.validator.ValidateAssignment(ctx, "", req.ToDepartment, req.ToSubDepartment); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)

	var transferred *models.Officer
	var from struct {
		dept domain.DepartmentID
		sub  domain.SubDepartmentID
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		var err error
		transferred, err = store.Execute(ctx, code,
			func(o *models.Officer) error {
				from.dept, from.sub = o.Department, o.SubDepartment
				return o.CanTransferTo(req.ToDepartment, req.ToSubDepartment)
			},
			func(o *models.Officer) {
				o.ApplyTransfer(req.ToDepartment, req.ToSubDepartment, actor.ID, req.Reason, now)
			})
		if err != nil {
			return translateNotFound(err, code)
		}

		if err := s.auditPublisher.Emit(ctx, audit.Event{
			Action:     audit.ActionOfficerTransfer,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			EntityType: "officer",
			EntityID:   code.String(),
			Details: audit.OfficerTransferDetails{
				Code:              code,
				FromDepartment:    from.dept,
				FromSubDepartment: from.sub,
				ToDepartment:      req.ToDepartment,
				ToSubDepartment:   req.ToSubDepartment,
				Reason:            req.Reason,
			},
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit officer transfer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "officer transferred",
		"code", code.String(),
		"to_department", string(req.ToDepartment),
		"to_sub_department", string(req.ToSubDepartment))
	if s.metrics != nil {
		s.metrics.OfficersTransferred.Inc()
	}
	return transferred, nil
}

func translateNotFound(err error, code domain.OfficerCode) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "officer %s not found", code)
	}
	return err
}
