package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"suvidha/internal/audit"
	"suvidha/internal/directory"
	"suvidha/internal/integrity"
	"suvidha/internal/officer/models"
	"suvidha/internal/officer/service/mocks"
	officerstore "suvidha/internal/officer/store"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/requestcontext"
)

type OfficerServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	store      *officerstore.InMemory
	directory  *directory.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service

	superAdmin domain.Actor
}

func TestOfficerServiceSuite(t *testing.T) {
	suite.Run(t, new(OfficerServiceSuite))
}

func (s *OfficerServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = officerstore.NewInMemory()
	s.directory = directory.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.superAdmin = domain.Actor{ID: "root-admin", Role: domain.RoleSuperAdmin}

	s.seedDirectory()

	validator := integrity.NewValidator(s.directory, s.store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(NewLockedTx(s.store), s.store, validator, audit.NewPublisher(s.auditStore),
		WithLogger(logger))
}

func (s *OfficerServiceSuite) seedDirectory() {
	for _, d := range []*directory.Department{
		{ID: "WATER", Name: "Water Supply", Active: true, CreatedAt: s.now, UpdatedAt: s.now},
		{ID: "SANITATION", Name: "Sanitation", Active: true, CreatedAt: s.now, UpdatedAt: s.now},
		{ID: "ROADS", Name: "Roads", Active: false, CreatedAt: s.now, UpdatedAt: s.now},
	} {
		s.Require().NoError(s.directory.SaveDepartment(s.ctx, d))
	}
	for _, sd := range []*directory.SubDepartment{
		{ID: "BILLING", ParentID: "WATER", Name: "Billing", Active: true, CreatedAt: s.now, UpdatedAt: s.now},
		{ID: "QUALITY", ParentID: "WATER", Name: "Quality", Active: true, CreatedAt: s.now, UpdatedAt: s.now},
		{ID: "SEWAGE", ParentID: "SANITATION", Name: "Sewage", Active: true, CreatedAt: s.now, UpdatedAt: s.now},
	} {
		s.Require().NoError(s.directory.SaveSubDepartment(s.ctx, sd))
	}
}

func (s *OfficerServiceSuite) createOfficer(dept domain.DepartmentID, sub domain.SubDepartmentID) *models.Officer {
	result, err := s.service.CreateOfficer(s.ctx, s.superAdmin, CreateRequest{
		Name:          "Asha Verma",
		Contact:       "asha@example.gov",
		Department:    dept,
		SubDepartment: sub,
	})
	s.Require().NoError(err)
	return result.Officer
}

func (s *OfficerServiceSuite) TestCreateOfficer() {
	s.Run("generates sequential codes per prefix", func() {
		first := s.createOfficer("WATER", "BILLING")
		s.Equal(domain.OfficerCode("WATER_BILLING_2026_0001"), first.Code)

		second := s.createOfficer("WATER", "BILLING")
		s.Equal(domain.OfficerCode("WATER_BILLING_2026_0002"), second.Code)

		// A different desk starts its own sequence.
		other := s.createOfficer("WATER", "QUALITY")
		s.Equal(domain.OfficerCode("WATER_QUALITY_2026_0001"), other.Code)
	})

	s.Run("returns a one-time credential and stores only the hash", func() {
		result, err := s.service.CreateOfficer(s.ctx, s.superAdmin, CreateRequest{
			Name:          "Ravi Kumar",
			Department:    "SANITATION",
			SubDepartment: "SEWAGE",
		})
		s.Require().NoError(err)
		s.NotEmpty(result.TemporaryPassword)
		s.NotEmpty(result.Officer.PasswordHash)
		s.NotEqual(result.TemporaryPassword, result.Officer.PasswordHash)
		s.True(result.Officer.TemporaryPassword)
		s.Equal(domain.RoleOfficer, result.Officer.Role)
		s.True(result.Officer.Active)
	})

	s.Run("emits the creation audit event", func() {
		officer := s.createOfficer("WATER", "BILLING")

		events, err := s.auditStore.ListByEntity(s.ctx, "officer", officer.Code.String())
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionOfficerCreated, events[0].Action)
		details, ok := events[0].Details.(audit.OfficerCreatedDetails)
		s.Require().True(ok)
		s.Equal(officer.Code, details.Code)
		s.Equal(domain.DepartmentID("WATER"), details.Department)
	})

	s.Run("rejects callers below SUPER_ADMIN", func() {
		for _, role := range []domain.Role{domain.RoleCitizen, domain.RoleOfficer, domain.RoleAdmin} {
			_, err := s.service.CreateOfficer(s.ctx, domain.Actor{ID: "someone", Role: role}, CreateRequest{
				Name:          "Nobody",
				Department:    "WATER",
				SubDepartment: "BILLING",
			})
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "role %s", role)
			s.Equal(dErrors.ReasonInsufficientAuthority, dErrors.ReasonOf(err))
		}
	})

	s.Run("rejects blank names", func() {
		_, err := s.service.CreateOfficer(s.ctx, s.superAdmin, CreateRequest{
			Name:          "   ",
			Department:    "WATER",
			SubDepartment: "BILLING",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unknown departments", func() {
		_, err := s.service.CreateOfficer(s.ctx, s.superAdmin, CreateRequest{
			Name:          "Lost Soul",
			Department:    "ELECTRICITY",
			SubDepartment: "BILLING",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects inactive departments as a violation", func() {
		_, err := s.service.CreateOfficer(s.ctx, s.superAdmin, CreateRequest{
			Name:          "Road Worker",
			Department:    "ROADS",
			SubDepartment: "BILLING",
		})
		s.Require().Error(err)
		s.True(integrity.HasConstraint(err, integrity.ConstraintDepartmentInactive))
	})

	s.Run("rejects sub-departments of another parent", func() {
		_, err := s.service.CreateOfficer(s.ctx, s.superAdmin, CreateRequest{
			Name:          "Mismatched",
			Department:    "WATER",
			SubDepartment: "SEWAGE",
		})
		s.Require().Error(err)
		s.True(integrity.HasConstraint(err, integrity.ConstraintSubDepartmentParent))
	})
}

func (s *OfficerServiceSuite) TestTransferOfficer() {
	officer := s.createOfficer("WATER", "BILLING")

	s.Run("moves the officer and appends history", func() {
		transferred, err := s.service.TransferOfficer(s.ctx, s.superAdmin, officer.Code, TransferRequest{
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Reason:          "staffing shortage at sewage desk",
		})
		s.Require().NoError(err)
		s.Equal(domain.DepartmentID("SANITATION"), transferred.Department)
		s.Equal(domain.SubDepartmentID("SEWAGE"), transferred.SubDepartment)
		s.Require().Len(transferred.History, 1)
		change := transferred.History[0]
		s.Equal(domain.DepartmentID("WATER"), change.FromDepartment)
		s.Equal(domain.SubDepartmentID("BILLING"), change.FromSubDepartment)
		s.Equal(domain.DepartmentID("SANITATION"), change.ToDepartment)
		s.Equal(s.superAdmin.ID, change.InitiatedBy)

		// The code is immutable across reassignments.
		s.Equal(officer.Code, transferred.Code)

		events, err := s.auditStore.ListByEntity(s.ctx, "officer", officer.Code.String())
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(audit.ActionOfficerTransfer, events[1].Action)
	})

	s.Run("rejects a transfer to the current desk", func() {
		_, err := s.service.TransferOfficer(s.ctx, s.superAdmin, officer.Code, TransferRequest{
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Reason:          "no-op move",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("requires a reason", func() {
		_, err := s.service.TransferOfficer(s.ctx, s.superAdmin, officer.Code, TransferRequest{
			ToDepartment:    "WATER",
			ToSubDepartment: "BILLING",
			Reason:          "  ",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown officer is NotFound", func() {
		_, err := s.service.TransferOfficer(s.ctx, s.superAdmin, "WATER_BILLING_2026_9999", TransferRequest{
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Reason:          "ghost move",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("requires SUPER_ADMIN", func() {
		_, err := s.service.TransferOfficer(s.ctx, domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}, officer.Code, TransferRequest{
			ToDepartment:    "WATER",
			ToSubDepartment: "BILLING",
			Reason:          "unauthorized move",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *OfficerServiceSuite) TestRetireOfficer() {
	s.Run("deletes the record and leaves the snapshot as the only trace", func() {
		officer := s.createOfficer("WATER", "BILLING")
		_, err := s.service.TransferOfficer(s.ctx, s.superAdmin, officer.Code, TransferRequest{
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Reason:          "pre-retirement reshuffle",
		})
		s.Require().NoError(err)

		s.Require().NoError(s.service.RetireOfficer(s.ctx, s.superAdmin, officer.Code))

		_, err = s.service.Get(s.ctx, officer.Code)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		events, err := s.auditStore.ListByEntity(s.ctx, "officer", officer.Code.String())
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.Equal(audit.ActionOfficerRetired, events[2].Action)
		details, ok := events[2].Details.(audit.OfficerRetiredDetails)
		s.Require().True(ok)
		s.Equal(officer.Name, details.Name)
		s.Equal(domain.DepartmentID("SANITATION"), details.LastDepartment)
		s.Require().Len(details.History, 1)
		s.Equal(domain.DepartmentID("WATER"), details.History[0].FromDepartment)
	})

	s.Run("retiring twice is NotFound", func() {
		officer := s.createOfficer("WATER", "QUALITY")
		s.Require().NoError(s.service.RetireOfficer(s.ctx, s.superAdmin, officer.Code))
		err := s.service.RetireOfficer(s.ctx, s.superAdmin, officer.Code)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("refuses accounts without the OFFICER role", func() {
		admin := &models.Officer{
			Code:         "WATER_BILLING_2026_0500",
			Name:         "Embedded Admin",
			PasswordHash: "x",
			Role:         domain.RoleAdmin,
			Active:       true,
			CreatedAt:    s.now,
			UpdatedAt:    s.now,
		}
		s.Require().NoError(s.store.Create(s.ctx, admin))

		err := s.service.RetireOfficer(s.ctx, s.superAdmin, admin.Code)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("requires SUPER_ADMIN", func() {
		officer := s.createOfficer("SANITATION", "SEWAGE")
		err := s.service.RetireOfficer(s.ctx, domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}, officer.Code)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, getErr := s.service.Get(s.ctx, officer.Code)
		s.NoError(getErr, "officer must survive a forbidden retirement attempt")
	})
}

// TestRetireAbortsWhenAuditFails pins the fail-closed contract: if the
// retirement snapshot cannot be written, the delete must not happen.
func TestRetireAbortsWhenAuditFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	store := officerstore.NewInMemory()
	dir := directory.NewInMemoryStore()
	if err := dir.SaveDepartment(ctx, &directory.Department{ID: "WATER", Name: "Water Supply", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := dir.SaveSubDepartment(ctx, &directory.SubDepartment{ID: "BILLING", ParentID: "WATER", Name: "Billing", Active: true}); err != nil {
		t.Fatal(err)
	}

	officer, err := models.NewOfficer("WATER_BILLING_2026_0001", "Asha Verma", "", "hash", "WATER", "BILLING", now)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, officer); err != nil {
		t.Fatal(err)
	}

	publisher := mocks.NewMockAuditPublisher(ctrl)
	publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(dErrors.New(dErrors.CodeInternal, "outbox unavailable"))

	svc := New(NewLockedTx(store), store, integrity.NewValidator(dir, store), publisher)

	actor := domain.Actor{ID: "root-admin", Role: domain.RoleSuperAdmin}
	if err := svc.RetireOfficer(ctx, actor, officer.Code); err == nil {
		t.Fatal("expected retirement to fail when the audit event cannot be written")
	}

	if _, err := store.FindByCode(ctx, officer.Code); err != nil {
		t.Fatalf("officer must still exist after an aborted retirement: %v", err)
	}
}

// TestBareConstructorAudits pins that a Service built with only the required
// dependencies and no options mutates and audits safely.
func TestBareConstructorAudits(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	store := officerstore.NewInMemory()
	dir := directory.NewInMemoryStore()
	if err := dir.SaveDepartment(ctx, &directory.Department{ID: "WATER", Name: "Water Supply", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := dir.SaveSubDepartment(ctx, &directory.SubDepartment{ID: "BILLING", ParentID: "WATER", Name: "Billing", Active: true}); err != nil {
		t.Fatal(err)
	}

	auditStore := audit.NewInMemoryStore()
	svc := New(NewLockedTx(store), store, integrity.NewValidator(dir, store), audit.NewPublisher(auditStore))

	actor := domain.Actor{ID: "root-admin", Role: domain.RoleSuperAdmin}
	result, err := svc.CreateOfficer(ctx, actor, CreateRequest{
		Name:          "Asha Verma",
		Department:    "WATER",
		SubDepartment: "BILLING",
	})
	if err != nil {
		t.Fatal(err)
	}

	events, err := auditStore.ListByEntity(ctx, "officer", result.Officer.Code.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(events))
	}
}
