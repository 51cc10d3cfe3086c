package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"suvidha/internal/audit"
	complaintmodels "suvidha/internal/complaint/models"
	complaintstore "suvidha/internal/complaint/store"
	"suvidha/internal/directory"
	"suvidha/internal/integrity"
	officermodels "suvidha/internal/officer/models"
	officerstore "suvidha/internal/officer/store"
	"suvidha/internal/transfer/models"
	"suvidha/internal/transfer/store"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/platform/sentinel"
	"suvidha/pkg/requestcontext"
)

type TransferServiceSuite struct {
	suite.Suite
	ctx         context.Context
	now         time.Time
	transfers   *store.InMemoryTransfers
	connections *store.InMemoryConnections
	complaints  *complaintstore.InMemory
	officers    *officerstore.InMemory
	directory   *directory.InMemoryStore
	auditStore  *audit.InMemoryStore
	service     *Service

	waterOfficer  domain.Actor // WATER/BILLING
	sewageOfficer domain.Actor // SANITATION/SEWAGE
	admin         domain.Actor
}

func TestTransferServiceSuite(t *testing.T) {
	suite.Run(t, new(TransferServiceSuite))
}

func (s *TransferServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.transfers = store.NewInMemoryTransfers()
	s.connections = store.NewInMemoryConnections()
	s.complaints = complaintstore.NewInMemory()
	s.officers = officerstore.NewInMemory()
	s.directory = directory.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()

	s.seedDirectory()
	s.waterOfficer = s.seedOfficer("WATER", "BILLING")
	s.sewageOfficer = s.seedOfficer("SANITATION", "SEWAGE")
	s.admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	stores := Stores{Transfers: s.transfers, Complaints: s.complaints, Connections: s.connections}
	validator := integrity.NewValidator(s.directory, s.officers)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(NewShardedTx(stores), stores, validator, s.officers, audit.NewPublisher(s.auditStore),
		WithLogger(logger))
}

func (s *TransferServiceSuite) seedDirectory() {
	for _, d := range []*directory.Department{
		{ID: "WATER", Name: "Water Supply", Active: true},
		{ID: "SANITATION", Name: "Sanitation", Active: true},
		{ID: "HEALTH", Name: "Public Health", Active: true},
		{ID: "ROADS", Name: "Roads", Active: false},
	} {
		s.Require().NoError(s.directory.SaveDepartment(s.ctx, d))
	}
	for _, sd := range []*directory.SubDepartment{
		{ID: "BILLING", ParentID: "WATER", Name: "Billing", Active: true},
		{ID: "QUALITY", ParentID: "WATER", Name: "Quality", Active: true},
		{ID: "SEWAGE", ParentID: "SANITATION", Name: "Sewage", Active: true},
		{ID: "CLINICS", ParentID: "HEALTH", Name: "Clinics", Active: true},
	} {
		s.Require().NoError(s.directory.SaveSubDepartment(s.ctx, sd))
	}
}

func (s *TransferServiceSuite) seedOfficer(dept domain.DepartmentID, sub domain.SubDepartmentID) domain.Actor {
	code := domain.FormatOfficerCode(dept, sub, 2026, 1)
	officer, err := officermodels.NewOfficer(code, "Officer "+string(sub), "", "hash", dept, sub, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.officers.Create(s.ctx, officer))
	return domain.Actor{ID: code.String(), Role: domain.RoleOfficer}
}

func (s *TransferServiceSuite) seedComplaint(seq int) *complaintmodels.Complaint {
	number := domain.FormatComplaintNumber(2026, seq)
	c, err := complaintmodels.New(number, "No water supply", "Taps dry since Monday", "citizen@example.in", "WATER", "BILLING", s.now)
	s.Require().NoError(err)
	c.AssignedOfficer = domain.OfficerCode(s.waterOfficer.ID)
	s.Require().NoError(s.complaints.Create(s.ctx, c))
	return c
}

func (s *TransferServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *TransferServiceSuite) TestInitiateTransfer() {
	s.Run("cross-department transfer creates a connection", func() {
		complaint := s.seedComplaint(1)
		result, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
			Notes:           "sewage backflow, not billing",
		})
		s.Require().NoError(err)
		s.True(result.ConnectionCreated)

		transfer := result.Transfer
		s.Equal(models.StatusPending, transfer.Status)
		s.Equal(domain.DepartmentID("WATER"), transfer.FromDepartment)
		s.Equal(domain.SubDepartmentID("BILLING"), transfer.FromSubDepartment)
		s.Equal(s.waterOfficer.ID, transfer.InitiatedBy)
		s.Equal(domain.RoleOfficer, transfer.InitiatorRole)

		// The complaint carries a pending history entry correlated by ID.
		updated, err := s.complaints.FindByNumber(s.ctx, complaint.Number)
		s.Require().NoError(err)
		s.Require().Len(updated.TransferHistory, 1)
		s.Equal(transfer.ID, updated.TransferHistory[0].TransferID)
		s.Equal(string(models.StatusPending), updated.TransferHistory[0].Status)

		// Connection is stored under the sorted pair.
		conn, err := s.connections.Get(s.ctx, "WATER", "SANITATION")
		s.Require().NoError(err)
		s.Equal(domain.DepartmentID("SANITATION"), conn.DepartmentA)
		s.Equal(domain.DepartmentID("WATER"), conn.DepartmentB)
		s.True(conn.Active)
		s.True(conn.TransferEnabled)
		s.Equal(int64(1), conn.TransferCount)
		s.Require().NotNil(conn.LastTransferAt)
		s.Equal(s.now, *conn.LastTransferAt)

		events, err := s.auditStore.ListByEntity(s.ctx, "transfer", transfer.ID.String())
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionTransferInitiated, events[0].Action)
	})

	s.Run("transfer within the department leaves the connection graph alone", func() {
		complaint := s.seedComplaint(2)
		result, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "WATER",
			ToSubDepartment: "QUALITY",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonSpecializationRequired,
		})
		s.Require().NoError(err)
		s.False(result.ConnectionCreated)
	})

	s.Run("sub-department type requires a target sub-department", func() {
		complaint := s.seedComplaint(3)
		_, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown complaint is NotFound", func() {
		_, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: "SUV2026999999",
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("transfer to the current desk is a violation", func() {
		complaint := s.seedComplaint(4)
		_, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "WATER",
			ToSubDepartment: "BILLING",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWorkloadBalancing,
		})
		s.Require().Error(err)
		s.True(integrity.HasConstraint(err, integrity.ConstraintSameDepartmentTransfer))
	})

	s.Run("officer with a stale source assignment is rejected", func() {
		complaint := s.seedComplaint(5)
		_, err := s.service.InitiateTransfer(s.ctx, s.sewageOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "HEALTH",
			ToSubDepartment: "CLINICS",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonJurisdiction,
		})
		s.Require().Error(err)
		s.True(integrity.HasConstraint(err, integrity.ConstraintStaleSourceAssignment))
	})

	s.Run("inactive destination department is a violation", func() {
		complaint := s.seedComplaint(6)
		_, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "ROADS",
			Type:            models.TypeDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.Require().Error(err)
		s.True(integrity.HasConstraint(err, integrity.ConstraintDepartmentInactive))
	})

	s.Run("citizens cannot initiate transfers", func() {
		complaint := s.seedComplaint(7)
		_, err := s.service.InitiateTransfer(s.ctx, domain.Actor{ID: "citizen-9", Role: domain.RoleCitizen}, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(dErrors.ReasonInsufficientAuthority, dErrors.ReasonOf(err))
	})

	s.Run("second pending transfer for the same complaint is rejected", func() {
		complaint := s.seedComplaint(8)
		_, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.Require().NoError(err)

		_, err = s.service.InitiateTransfer(s.ctx, s.admin, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "HEALTH",
			ToSubDepartment: "CLINICS",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonJurisdiction,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(dErrors.ReasonDuplicatePendingTransfer, dErrors.ReasonOf(err))
	})
}

// TestConcurrentInitiate verifies that racing initiators for one complaint
// produce exactly one pending transfer and one history entry.
func (s *TransferServiceSuite) TestConcurrentInitiate() {
	complaint := s.seedComplaint(10)
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, duplicateCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.InitiateTransfer(s.ctx, s.admin, InitiateRequest{
				ComplaintNumber: complaint.Number,
				ToDepartment:    "SANITATION",
				Type:            models.TypeDepartment,
				Reason:          models.ReasonWrongDepartment,
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case dErrors.HasReason(err, dErrors.ReasonDuplicatePendingTransfer):
				duplicateCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one initiate should win")
	s.Equal(int32(goroutines-1), duplicateCount.Load(), "all losers should see the duplicate reason")

	pending, err := s.transfers.PendingByComplaint(s.ctx, complaint.Number)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, pending.Status)

	updated, err := s.complaints.FindByNumber(s.ctx, complaint.Number)
	s.Require().NoError(err)
	s.Len(updated.TransferHistory, 1)
}

func (s *TransferServiceSuite) TestAcceptTransfer() {
	s.Run("moves the complaint and unclaims it", func() {
		complaint := s.seedComplaint(20)
		result, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.Require().NoError(err)

		resolveAt := s.now.Add(2 * time.Hour)
		resolved, err := s.service.AcceptTransfer(s.ctxAt(resolveAt), s.sewageOfficer, result.Transfer.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusAccepted, resolved.Status)
		s.Equal(s.sewageOfficer.ID, resolved.ResolvedBy)
		s.Require().NotNil(resolved.ResolvedAt)
		s.Equal(2*time.Hour, resolved.ProcessingTime())

		moved, err := s.complaints.FindByNumber(s.ctx, complaint.Number)
		s.Require().NoError(err)
		s.Equal(domain.DepartmentID("SANITATION"), moved.Department)
		s.Equal(domain.SubDepartmentID("SEWAGE"), moved.SubDepartment)
		s.True(moved.AssignedOfficer.IsZero(), "accepted complaint must be unclaimed")
		s.Require().Len(moved.TransferHistory, 1)
		s.Equal("ACCEPTED", moved.TransferHistory[0].Status)
		s.Require().NotNil(moved.TransferHistory[0].ResolvedAt)

		events, err := s.auditStore.ListByEntity(s.ctx, "transfer", resolved.ID.String())
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(audit.ActionTransferAccepted, events[1].Action)
	})

	s.Run("resolving twice is a deterministic conflict", func() {
		complaint := s.seedComplaint(21)
		result, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.Require().NoError(err)

		_, err = s.service.AcceptTransfer(s.ctx, s.sewageOfficer, result.Transfer.ID)
		s.Require().NoError(err)

		_, err = s.service.AcceptTransfer(s.ctx, s.sewageOfficer, result.Transfer.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(dErrors.ReasonTransferNotPending, dErrors.ReasonOf(err))

		_, err = s.service.RejectTransfer(s.ctx, s.sewageOfficer, result.Transfer.ID, "already resolved elsewhere")
		s.Equal(dErrors.ReasonTransferNotPending, dErrors.ReasonOf(err))
	})

	s.Run("only officers of the target desk may accept", func() {
		complaint := s.seedComplaint(22)
		result, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.Require().NoError(err)

		_, err = s.service.AcceptTransfer(s.ctx, s.waterOfficer, result.Transfer.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(dErrors.ReasonInsufficientAuthority, dErrors.ReasonOf(err))

		// Admins are exempt from the desk check.
		_, err = s.service.AcceptTransfer(s.ctx, s.admin, result.Transfer.ID)
		s.NoError(err)
	})

	s.Run("department-level accept adopts the department without a desk", func() {
		complaint := s.seedComplaint(23)
		result, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			Type:            models.TypeDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.Require().NoError(err)
		s.True(result.Transfer.DepartmentLevel())

		resolved, err := s.service.AcceptTransfer(s.ctx, s.sewageOfficer, result.Transfer.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusAccepted, resolved.Status)

		moved, err := s.complaints.FindByNumber(s.ctx, complaint.Number)
		s.Require().NoError(err)
		s.Equal(domain.DepartmentID("SANITATION"), moved.Department)
		s.True(moved.SubDepartment.IsZero(), "receiving department routes it to a desk later")
	})

	s.Run("unknown transfer is NotFound", func() {
		_, err := s.service.AcceptTransfer(s.ctx, s.admin, domain.NewTransferID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *TransferServiceSuite) TestRejectTransfer() {
	complaint := s.seedComplaint(30)
	result, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
		ComplaintNumber: complaint.Number,
		ToDepartment:    "SANITATION",
		ToSubDepartment: "SEWAGE",
		Type:            models.TypeSubDepartment,
		Reason:          models.ReasonWrongDepartment,
	})
	s.Require().NoError(err)

	s.Run("rejection reason below the minimum is rejected, transfer stays pending", func() {
		_, err := s.service.RejectTransfer(s.ctx, s.sewageOfficer, result.Transfer.ID, "nope!")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal(dErrors.ReasonInvalidRejectionReason, dErrors.ReasonOf(err))

		still, err := s.transfers.FindByID(s.ctx, result.Transfer.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, still.Status)
	})

	s.Run("a substantial reason resolves the transfer in place", func() {
		resolved, err := s.service.RejectTransfer(s.ctx, s.sewageOfficer, result.Transfer.ID, "not a sewage issue, check the billing meter")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, resolved.Status)
		s.Equal("not a sewage issue, check the billing meter", resolved.RejectionReason)

		stayed, err := s.complaints.FindByNumber(s.ctx, complaint.Number)
		s.Require().NoError(err)
		s.Equal(domain.DepartmentID("WATER"), stayed.Department)
		s.Equal(domain.SubDepartmentID("BILLING"), stayed.SubDepartment)
		s.Require().Len(stayed.TransferHistory, 1)
		s.Equal("REJECTED", stayed.TransferHistory[0].Status)
		s.Equal("not a sewage issue, check the billing meter", stayed.TransferHistory[0].RejectionReason)

		events, err := s.auditStore.ListByEntity(s.ctx, "transfer", resolved.ID.String())
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(audit.ActionTransferRejected, events[1].Action)
	})
}

// TestRepeatedTransferToSameTarget pins that history entries are matched by
// transfer ID, so a rejected and a later accepted move to the same target stay
// distinguishable.
func (s *TransferServiceSuite) TestRepeatedTransferToSameTarget() {
	complaint := s.seedComplaint(40)
	target := InitiateRequest{
		ComplaintNumber: complaint.Number,
		ToDepartment:    "SANITATION",
		ToSubDepartment: "SEWAGE",
		Type:            models.TypeSubDepartment,
		Reason:          models.ReasonWrongDepartment,
	}

	first, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, target)
	s.Require().NoError(err)
	_, err = s.service.RejectTransfer(s.ctx, s.sewageOfficer, first.Transfer.ID, "needs billing clarification first")
	s.Require().NoError(err)

	second, err := s.service.InitiateTransfer(s.ctxAt(s.now.Add(time.Hour)), s.waterOfficer, target)
	s.Require().NoError(err)
	s.NotEqual(first.Transfer.ID, second.Transfer.ID)

	_, err = s.service.AcceptTransfer(s.ctxAt(s.now.Add(2*time.Hour)), s.sewageOfficer, second.Transfer.ID)
	s.Require().NoError(err)

	updated, err := s.complaints.FindByNumber(s.ctx, complaint.Number)
	s.Require().NoError(err)
	s.Require().Len(updated.TransferHistory, 2)
	s.Equal(first.Transfer.ID, updated.TransferHistory[0].TransferID)
	s.Equal("REJECTED", updated.TransferHistory[0].Status)
	s.Equal(second.Transfer.ID, updated.TransferHistory[1].TransferID)
	s.Equal("ACCEPTED", updated.TransferHistory[1].Status)
}

func (s *TransferServiceSuite) TestConnectionLifecycle() {
	complaint := s.seedComplaint(50)

	first, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
		ComplaintNumber: complaint.Number,
		ToDepartment:    "SANITATION",
		ToSubDepartment: "SEWAGE",
		Type:            models.TypeSubDepartment,
		Reason:          models.ReasonWrongDepartment,
	})
	s.Require().NoError(err)
	s.True(first.ConnectionCreated)

	_, err = s.service.AcceptTransfer(s.ctx, s.sewageOfficer, first.Transfer.ID)
	s.Require().NoError(err)

	s.Run("the reverse direction reuses the same record", func() {
		// The complaint now sits at SANITATION/SEWAGE; send it back.
		back, err := s.service.InitiateTransfer(s.ctx, s.sewageOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "WATER",
			ToSubDepartment: "BILLING",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonJurisdiction,
		})
		s.Require().NoError(err)
		s.False(back.ConnectionCreated)

		ab, err := s.connections.Get(s.ctx, "WATER", "SANITATION")
		s.Require().NoError(err)
		ba, err := s.connections.Get(s.ctx, "SANITATION", "WATER")
		s.Require().NoError(err)
		s.Equal(ab.DepartmentA, ba.DepartmentA)
		s.Equal(int64(2), ab.TransferCount)

		all, err := s.connections.List(s.ctx)
		s.Require().NoError(err)
		s.Len(all, 1, "one record per unordered pair")

		_, err = s.service.RejectTransfer(s.ctx, s.waterOfficer, back.Transfer.ID, "stays with sanitation for now")
		s.Require().NoError(err)
	})

	s.Run("a deactivated connection is revived, not duplicated", func() {
		conn, err := s.connections.Get(s.ctx, "WATER", "SANITATION")
		s.Require().NoError(err)
		conn.Deactivate(s.now)
		s.Require().NoError(s.connections.Update(s.ctx, conn))

		again, err := s.service.InitiateTransfer(s.ctx, s.sewageOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "WATER",
			ToSubDepartment: "QUALITY",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonSpecializationRequired,
		})
		s.Require().NoError(err)
		s.True(again.ConnectionCreated, "reviving an inactive connection counts as establishing it")

		revived, err := s.connections.Get(s.ctx, "WATER", "SANITATION")
		s.Require().NoError(err)
		s.True(revived.Active)
		s.Equal(int64(3), revived.TransferCount)

		all, err := s.connections.List(s.ctx)
		s.Require().NoError(err)
		s.Len(all, 1)
	})
}

func (s *TransferServiceSuite) TestQueries() {
	s.Run("history requires an existing complaint", func() {
		_, err := s.service.HistoryByComplaint(s.ctx, "SUV2026999998")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("history is newest first, pending queue oldest first", func() {
		complaint := s.seedComplaint(60)

		first, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWrongDepartment,
		})
		s.Require().NoError(err)
		_, err = s.service.RejectTransfer(s.ctx, s.sewageOfficer, first.Transfer.ID, "keep it in water for now")
		s.Require().NoError(err)

		second, err := s.service.InitiateTransfer(s.ctxAt(s.now.Add(time.Hour)), s.waterOfficer, InitiateRequest{
			ComplaintNumber: complaint.Number,
			ToDepartment:    "SANITATION",
			Type:            models.TypeDepartment,
			Reason:          models.ReasonEscalation,
		})
		s.Require().NoError(err)

		other := s.seedComplaint(61)
		third, err := s.service.InitiateTransfer(s.ctxAt(s.now.Add(2*time.Hour)), s.waterOfficer, InitiateRequest{
			ComplaintNumber: other.Number,
			ToDepartment:    "SANITATION",
			ToSubDepartment: "SEWAGE",
			Type:            models.TypeSubDepartment,
			Reason:          models.ReasonWorkloadBalancing,
		})
		s.Require().NoError(err)

		history, err := s.service.HistoryByComplaint(s.ctx, complaint.Number)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Equal(second.Transfer.ID, history[0].ID)
		s.Equal(first.Transfer.ID, history[1].ID)

		queue, err := s.service.PendingByDepartment(s.ctx, "SANITATION")
		s.Require().NoError(err)
		s.Require().Len(queue, 2)
		s.Equal(second.Transfer.ID, queue[0].ID)
		s.Equal(third.Transfer.ID, queue[1].ID)
	})
}

func (s *TransferServiceSuite) TestStatsByDepartment() {
	complaintA := s.seedComplaint(70)
	complaintB := s.seedComplaint(71)
	complaintC := s.seedComplaint(72)

	// Accepted after 2h.
	a, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
		ComplaintNumber: complaintA.Number,
		ToDepartment:    "SANITATION",
		ToSubDepartment: "SEWAGE",
		Type:            models.TypeSubDepartment,
		Reason:          models.ReasonWrongDepartment,
	})
	s.Require().NoError(err)
	_, err = s.service.AcceptTransfer(s.ctxAt(s.now.Add(2*time.Hour)), s.sewageOfficer, a.Transfer.ID)
	s.Require().NoError(err)

	// Accepted after 4h.
	b, err := s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
		ComplaintNumber: complaintB.Number,
		ToDepartment:    "SANITATION",
		ToSubDepartment: "SEWAGE",
		Type:            models.TypeSubDepartment,
		Reason:          models.ReasonWrongDepartment,
	})
	s.Require().NoError(err)
	_, err = s.service.AcceptTransfer(s.ctxAt(s.now.Add(4*time.Hour)), s.sewageOfficer, b.Transfer.ID)
	s.Require().NoError(err)

	// Still pending.
	_, err = s.service.InitiateTransfer(s.ctx, s.waterOfficer, InitiateRequest{
		ComplaintNumber: complaintC.Number,
		ToDepartment:    "SANITATION",
		Type:            models.TypeDepartment,
		Reason:          models.ReasonEscalation,
	})
	s.Require().NoError(err)

	from := s.now.Add(-time.Hour)
	to := s.now.Add(24 * time.Hour)

	stats, err := s.service.StatsByDepartment(s.ctx, "WATER", from, to)
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(2, stats.ByOutcome[models.StatusAccepted].Count)
	s.Equal(3*time.Hour, stats.ByOutcome[models.StatusAccepted].MeanProcessingTime)
	s.Equal(1, stats.ByOutcome[models.StatusPending].Count)
	s.Equal(time.Duration(0), stats.ByOutcome[models.StatusPending].MeanProcessingTime)

	// The receiving side sees the same transfers.
	receiving, err := s.service.StatsByDepartment(s.ctx, "SANITATION", from, to)
	s.Require().NoError(err)
	s.Equal(3, receiving.Total)

	// A window before the activity is empty.
	empty, err := s.service.StatsByDepartment(s.ctx, "WATER", s.now.Add(-48*time.Hour), from)
	s.Require().NoError(err)
	s.Equal(0, empty.Total)
	s.Empty(empty.ByOutcome)
}

// TestPendingCheckInsideTransaction exercises the store-level guard directly:
// even if a pending row appears between the service's read and its insert, the
// store refuses the second pending transfer.
func (s *TransferServiceSuite) TestPendingCheckInsideTransaction() {
	complaint := s.seedComplaint(80)
	existing := models.New(complaint.Number, "WATER", "BILLING", "SANITATION", "SEWAGE",
		models.TypeSubDepartment, models.ReasonWrongDepartment, "", s.admin, s.now)
	s.Require().NoError(s.transfers.Create(s.ctx, existing))

	racing := models.New(complaint.Number, "WATER", "BILLING", "HEALTH", "CLINICS",
		models.TypeSubDepartment, models.ReasonJurisdiction, "", s.admin, s.now)
	err := s.transfers.Create(s.ctx, racing)
	s.ErrorIs(err, sentinel.ErrConflict)
}
