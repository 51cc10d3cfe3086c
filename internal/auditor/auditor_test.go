package auditor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"suvidha/internal/audit"
	complaintmodels "suvidha/internal/complaint/models"
	complaintstore "suvidha/internal/complaint/store"
	"suvidha/internal/directory"
	officermodels "suvidha/internal/officer/models"
	officerstore "suvidha/internal/officer/store"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/platform/sentinel"
	"suvidha/pkg/requestcontext"
)

type AuditorSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	directory  *directory.InMemoryStore
	officers   *officerstore.InMemory
	complaints *complaintstore.InMemory
	auditStore *audit.InMemoryStore
	auditor    *Auditor

	admin domain.Actor
}

func TestAuditorSuite(t *testing.T) {
	suite.Run(t, new(AuditorSuite))
}

func (s *AuditorSuite) SetupTest() {
	s.now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.directory = directory.NewInMemoryStore()
	s.officers = officerstore.NewInMemory()
	s.complaints = complaintstore.NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	s.admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	stores := Stores{Directory: s.directory, Officers: s.officers, Complaints: s.complaints}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.auditor = New(NewLockedTx(stores), stores, audit.NewPublisher(s.auditStore),
		WithLogger(logger))
}

// seedDrift sets up one instance of every inconsistency the auditor knows:
// a sub-department whose parent department was deactivated, an officer with a
// half-set assignment, an active officer with no assignment at all, and a
// complaint still pointing at an officer that was deleted.
func (s *AuditorSuite) seedDrift() {
	s.Require().NoError(s.directory.SaveDepartment(s.ctx, &directory.Department{ID: "WATER", Name: "Water Supply", Active: true}))
	s.Require().NoError(s.directory.SaveDepartment(s.ctx, &directory.Department{ID: "LEGACY", Name: "Dissolved Unit", Active: false}))
	s.Require().NoError(s.directory.SaveSubDepartment(s.ctx, &directory.SubDepartment{ID: "BILLING", ParentID: "WATER", Name: "Billing", Active: true}))
	s.Require().NoError(s.directory.SaveSubDepartment(s.ctx, &directory.SubDepartment{ID: "ARCHIVES", ParentID: "LEGACY", Name: "Archives", Active: true}))

	healthy, err := officermodels.NewOfficer("WATER_BILLING_2026_0001", "Asha Verma", "", "hash", "WATER", "BILLING", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.officers.Create(s.ctx, healthy))

	halfSet := &officermodels.Officer{
		Code: "WATER_BILLING_2026_0002", Name: "Half Set", PasswordHash: "hash",
		Role: domain.RoleOfficer, Department: "WATER", Active: true,
		CreatedAt: s.now, UpdatedAt: s.now,
	}
	s.Require().NoError(s.officers.Create(s.ctx, halfSet))

	unassigned := &officermodels.Officer{
		Code: "WATER_BILLING_2026_0003", Name: "Benched", PasswordHash: "hash",
		Role: domain.RoleOfficer, Active: true,
		CreatedAt: s.now, UpdatedAt: s.now,
	}
	s.Require().NoError(s.officers.Create(s.ctx, unassigned))

	s.seedComplaint(1, healthy.Code)
	s.seedComplaint(2, "WATER_BILLING_2025_0009") // retired long ago, record deleted
	s.seedComplaint(3, halfSet.Code)
}

func (s *AuditorSuite) seedComplaint(seq int, assigned domain.OfficerCode) {
	number := domain.FormatComplaintNumber(2026, seq)
	c, err := complaintmodels.New(number, "Subject", "", "", "WATER", "BILLING", s.now)
	s.Require().NoError(err)
	c.AssignedOfficer = assigned
	s.Require().NoError(s.complaints.Create(s.ctx, c))
}

func (s *AuditorSuite) findingByKind(report *Report, kind string) *Finding {
	for i := range report.Findings {
		if report.Findings[i].Kind == kind {
			return &report.Findings[i]
		}
	}
	return nil
}

func (s *AuditorSuite) TestAuditDataConsistency() {
	s.Run("a clean system is healthy", func() {
		report, err := s.auditor.AuditDataConsistency(s.ctx)
		s.Require().NoError(err)
		s.True(report.Healthy())
		s.Equal(s.now, report.GeneratedAt)
	})

	s.Run("every drift class is reported without mutating anything", func() {
		s.seedDrift()

		report, err := s.auditor.AuditDataConsistency(s.ctx)
		s.Require().NoError(err)
		s.False(report.Healthy())
		s.Equal(3, report.OfficersScanned)
		s.Equal(2, report.SubDepartments)
		s.Equal(3, report.ComplaintsScanned)

		incomplete := s.findingByKind(report, KindIncompleteOfficer)
		s.Require().NotNil(incomplete)
		s.Equal(SeverityError, incomplete.Severity)
		s.Equal([]string{"WATER_BILLING_2026_0002"}, incomplete.Entities)

		unassigned := s.findingByKind(report, KindUnassignedOfficer)
		s.Require().NotNil(unassigned)
		s.Equal(SeverityWarning, unassigned.Severity)
		s.Equal([]string{"WATER_BILLING_2026_0003"}, unassigned.Entities)

		orphaned := s.findingByKind(report, KindOrphanedSubDepartment)
		s.Require().NotNil(orphaned)
		s.Equal([]string{"ARCHIVES"}, orphaned.Entities)

		dangling := s.findingByKind(report, KindDanglingAssignment)
		s.Require().NotNil(dangling)
		s.Equal(1, dangling.Count)
		s.Equal([]string{domain.FormatComplaintNumber(2026, 2).String()}, dangling.Entities)

		// The scan is read-only.
		sd, err := s.directory.GetSubDepartment(s.ctx, "ARCHIVES")
		s.Require().NoError(err)
		s.True(sd.Active)
	})
}

func (s *AuditorSuite) TestCleanupOrphanedRecords() {
	s.seedDrift()

	s.Run("requires the ADMIN role", func() {
		_, err := s.auditor.CleanupOrphanedRecords(s.ctx, domain.Actor{ID: "WATER_BILLING_2026_0001", Role: domain.RoleOfficer})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(dErrors.ReasonInsufficientAuthority, dErrors.ReasonOf(err))
	})

	s.Run("repairs every drift class in one batch", func() {
		result, err := s.auditor.CleanupOrphanedRecords(s.ctx, s.admin)
		s.Require().NoError(err)
		s.Equal(1, result.OrphanedSubDepartments)
		s.Equal(1, result.IncompleteOfficers)
		// The dangling complaint plus the one assigned to the officer the
		// batch itself just deactivated.
		s.Equal(2, result.ClearedAssignments)
		s.Equal(4, result.Repairs())

		sd, err := s.directory.GetSubDepartment(s.ctx, "ARCHIVES")
		s.Require().NoError(err)
		s.False(sd.Active)

		stripped, err := s.officers.FindByCode(s.ctx, "WATER_BILLING_2026_0002")
		s.Require().NoError(err)
		s.False(stripped.Active)
		s.True(stripped.Department.IsZero())
		s.True(stripped.SubDepartment.IsZero())

		cleared, err := s.complaints.FindByNumber(s.ctx, domain.FormatComplaintNumber(2026, 2))
		s.Require().NoError(err)
		s.True(cleared.AssignedOfficer.IsZero())

		kept, err := s.complaints.FindByNumber(s.ctx, domain.FormatComplaintNumber(2026, 1))
		s.Require().NoError(err)
		s.Equal(domain.OfficerCode("WATER_BILLING_2026_0001"), kept.AssignedOfficer)

		events := s.auditStore.All()
		s.Require().Len(events, 1)
		s.Equal(audit.ActionConsistencyCleanup, events[0].Action)
		details, ok := events[0].Details.(audit.CleanupDetails)
		s.Require().True(ok)
		s.Equal(2, details.ClearedAssignments)
	})

	s.Run("only the unassigned-officer warning survives the cleanup", func() {
		report, err := s.auditor.AuditDataConsistency(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(report.Findings, 1)
		s.Equal(KindUnassignedOfficer, report.Findings[0].Kind)
	})

	s.Run("an idle second run repairs nothing and stays silent", func() {
		result, err := s.auditor.CleanupOrphanedRecords(s.ctx, s.admin)
		s.Require().NoError(err)
		s.Equal(0, result.Repairs())
		s.Len(s.auditStore.All(), 1, "no audit event for a no-op batch")
	})
}

// vanishedOfficerStore simulates an officer hard-deleted by a concurrent
// retirement between the cleanup scan and the repair write.
type vanishedOfficerStore struct {
	*officerstore.InMemory
	vanished domain.OfficerCode
}

func (s *vanishedOfficerStore) Update(ctx context.Context, o *officermodels.Officer) error {
	if o.Code == s.vanished {
		return sentinel.ErrNotFound
	}
	return s.InMemory.Update(ctx, o)
}

// TestCleanupToleratesOfficersRetiredMidBatch pins the all-or-nothing batch
// contract: a record that vanishes between scan and write no longer needs its
// repair, and must not abort the batch after other repairs were applied.
func TestCleanupToleratesOfficersRetiredMidBatch(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	dir := directory.NewInMemoryStore()
	if err := dir.SaveDepartment(ctx, &directory.Department{ID: "WATER", Name: "Water Supply", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := dir.SaveDepartment(ctx, &directory.Department{ID: "LEGACY", Name: "Dissolved Unit", Active: false}); err != nil {
		t.Fatal(err)
	}
	if err := dir.SaveSubDepartment(ctx, &directory.SubDepartment{ID: "ARCHIVES", ParentID: "LEGACY", Name: "Archives", Active: true}); err != nil {
		t.Fatal(err)
	}

	officers := &vanishedOfficerStore{InMemory: officerstore.NewInMemory(), vanished: "WATER_BILLING_2026_0004"}
	for _, code := range []domain.OfficerCode{"WATER_BILLING_2026_0002", "WATER_BILLING_2026_0004"} {
		halfSet := &officermodels.Officer{
			Code: code, Name: "Half Set", PasswordHash: "hash",
			Role: domain.RoleOfficer, Department: "WATER", Active: true,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := officers.Create(ctx, halfSet); err != nil {
			t.Fatal(err)
		}
	}

	complaints := complaintstore.NewInMemory()
	dangling, err := complaintmodels.New(domain.FormatComplaintNumber(2026, 1), "Subject", "", "", "WATER", "BILLING", now)
	if err != nil {
		t.Fatal(err)
	}
	dangling.AssignedOfficer = "WATER_BILLING_2025_0009"
	if err := complaints.Create(ctx, dangling); err != nil {
		t.Fatal(err)
	}

	stores := Stores{Directory: dir, Officers: officers, Complaints: complaints}
	auditStore := audit.NewInMemoryStore()
	a := New(NewLockedTx(stores), stores, audit.NewPublisher(auditStore))

	result, err := a.CleanupOrphanedRecords(ctx, domain.Actor{ID: "admin-1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("a mid-batch vanish must not abort the batch: %v", err)
	}
	if result.OrphanedSubDepartments != 1 || result.IncompleteOfficers != 1 || result.ClearedAssignments != 1 {
		t.Fatalf("unexpected repair counts: %+v", result)
	}

	sd, err := dir.GetSubDepartment(ctx, "ARCHIVES")
	if err != nil {
		t.Fatal(err)
	}
	if sd.Active {
		t.Fatal("orphaned sub-department must stay deactivated")
	}
	stripped, err := officers.FindByCode(ctx, "WATER_BILLING_2026_0002")
	if err != nil {
		t.Fatal(err)
	}
	if stripped.Active {
		t.Fatal("the surviving half-set officer must still be repaired")
	}
	if got := len(auditStore.All()); got != 1 {
		t.Fatalf("expected one cleanup audit event, got %d", got)
	}
}
