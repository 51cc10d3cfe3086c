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
	"suvidha/pkg/secrets"
)

// CreateRequest carries the inputs for a new officer account.
type CreateRequest struct {
	Name          string
	Contact       string
	Department    domain.DepartmentID
	SubDepartment domain.SubDepartmentID
}

// CreateResult is the created officer plus the one-time plaintext credential.
// The plaintext is never stored and never retrievable again.
type CreateResult struct {
	Officer           *models.Officer
	TemporaryPassword string
}

// CreateOfficer provisions an officer for a validated department/
// sub-department pair. The code sequence is derived from the greatest
// existing code for the {dept}_{subdept}_{year} prefix inside the
// transaction; if two administrators race the same prefix, the loser's
// insert fails on the code's uniqueness and surfaces as a retryable
// conflict.
func (s *Service) CreateOfficer(ctx context.Context, actor domain.Actor, req CreateRequest) (*CreateResult, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "officer name is required")
	}

	if _, err := s.validator.ValidateAssignment(ctx, "", req.Department, req.SubDepartment); err != nil {
		return nil, err
	}

	plaintext, err := secrets.GenerateTemporaryPassword()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate temporary password")
	}
	hash, err := secrets.Hash(plaintext)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash temporary password")
	}

	now := requestcontext.Now(ctx)
	year := now.Year()

	var officer *models.Officer
	err = s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		prefix := domain.OfficerCodePrefix(req.Department, req.SubDepartment, year)
		current, err := store.MaxCodeForPrefix(ctx, prefix)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute officer code")
		}
		code, err := domain.NextOfficerCode(req.Department, req.SubDepartment, year, current)
		if err != nil {
			return err
		}

		officer, err = models.NewOfficer(code, req.Name, req.Contact, hash, req.Department, req.SubDepartment, now)
		if err != nil {
			return err
		}
		if err := store.Create(ctx, officer); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return dErrors.Newf(dErrors.CodeConflict, "officer code %s was taken concurrently, retry", code)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create officer")
		}

		if err := s.auditPublisher.Emit(ctx, audit.Event{
			Action:     audit.ActionOfficerCreated,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			EntityType: "officer",
			EntityID:   code.String(),
			Details: audit.OfficerCreatedDetails{
				Code:          code,
				Name:          officer.Name,
				Department:    officer.Department,
				SubDepartment: officer.SubDepartment,
			},
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit officer creation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "officer created",
		"code", officer.Code.String(),
		"department", string(officer.Department),
		"sub_department", string(officer.SubDepartment))
	if s.metrics != nil {
		s.metrics.OfficersCreated.Inc()
	}
	return &CreateResult{Officer: officer, TemporaryPassword: plaintext}, nil
}
