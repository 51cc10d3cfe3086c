package service

import (
	"context"

	"suvidha/internal/audit"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
)

// RetireOfficer permanently deletes an officer identity. The audit snapshot,
// written in the same unit of work before the delete, is the only surviving
// trace: name, code, last assignment and the entire reassignment history.
//
// Complaints still referencing the officer are deliberately left alone here;
// the consistency auditor clears those dangling references in its cleanup
// pass.
func (s *Service) RetireOfficer(ctx context.Context, actor domain.Actor, code domain.OfficerCode) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		officer, err := store.FindByCode(ctx, code)
		if err != nil {
			return translateNotFound(err, code)
		}
		if officer.Role != domain.RoleOfficer {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "account %s does not hold the OFFICER role", code)
		}

		history := make([]audit.OfficerTransferDetails, 0, len(officer.History))
		for _, change := range officer.History {
			history = append(history, audit.OfficerTransferDetails{
				Code:              code,
				FromDepartment:    change.FromDepartment,
				FromSubDepartment: change.FromSubDepartment,
				ToDepartment:      change.ToDepartment,
				ToSubDepartment:   change.ToSubDepartment,
				Reason:            change.Reason,
			})
		}

		// Snapshot first: once Delete runs there is nothing left to read.
		if err := s.auditPublisher.Emit(ctx, audit.Event{
			Action:     audit.ActionOfficerRetired,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			EntityType: "officer",
			EntityID:   code.String(),
			Details: audit.OfficerRetiredDetails{
				Code:              code,
				Name:              officer.Name,
				LastDepartment:    officer.Department,
				LastSubDepartment: officer.SubDepartment,
				History:           history,
			},
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit officer retirement")
		}

		if err := store.Delete(ctx, code); err != nil {
			return translateNotFound(err, code)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, "officer retired", "code", code.String())
	if s.metrics != nil {
		s.metrics.OfficersRetired.Inc()
	}
	return nil
}
