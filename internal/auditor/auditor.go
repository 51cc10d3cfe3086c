// Package auditor implements the consistency scans and the corrective
// cleanup batch. The audit pass only reads; the cleanup pass repairs drift
// left behind by partial failures and officer retirement, as one
// all-or-nothing batch.
package auditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"suvidha/internal/audit"
	complaintmodels "suvidha/internal/complaint/models"
	complaintstore "suvidha/internal/complaint/store"
	"suvidha/internal/directory"
	officermodels "suvidha/internal/officer/models"
	officerservice "suvidha/internal/officer/service"
	"suvidha/internal/platform/metrics"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/platform/sentinel"
	"suvidha/pkg/requestcontext"
)

// Stores bundles every collection the cleanup batch may repair.
type Stores struct {
	Directory  directory.Store
	Officers   officerservice.Store
	Complaints complaintstore.Store
}

// StoreTx provides the transactional boundary for the cleanup batch. The
// callback receives the context the stores must be called with; database
// implementations attach the open transaction to it.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Auditor scans the shared collections for drift. Scans are full-collection
// reads, so both entry points are meant to be invoked deliberately, not on
// every request.
type Auditor struct {
	tx             StoreTx
	stores         Stores
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(a *Auditor)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Auditor) {
		a.metrics = m
	}
}

// New constructs an Auditor. The publisher is a hard dependency: a cleanup
// batch that repaired anything must leave an audit event behind.
func New(tx StoreTx, stores Stores, publisher AuditPublisher, opts ...Option) *Auditor {
	a := &Auditor{tx: tx, stores: stores, auditPublisher: publisher}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Severity grades a finding.
type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Finding kinds. Values are stable; operators filter on them.
const (
	KindIncompleteOfficer     = "OFFICER_ASSIGNMENT_INCOMPLETE"
	KindUnassignedOfficer     = "OFFICER_UNASSIGNED"
	KindOrphanedSubDepartment = "SUBDEPARTMENT_ORPHANED"
	KindDanglingAssignment    = "COMPLAINT_DANGLING_ASSIGNMENT"
)

// Finding aggregates one class of inconsistency.
type Finding struct {
	Kind     string
	Severity Severity
	Count    int
	// Entities lists the affected record identifiers.
	Entities []string
}

// Report is the outcome of one read-only consistency pass.
type Report struct {
	GeneratedAt       time.Time
	OfficersScanned   int
	SubDepartments    int
	ComplaintsScanned int
	Findings          []Finding
}

// Healthy reports whether the pass found nothing to repair.
func (r *Report) Healthy() bool {
	return len(r.Findings) == 0
}

// AuditDataConsistency runs the read-only scans concurrently and aggregates
// their findings. It never mutates; pair it with CleanupOrphanedRecords to
// act on the report.
func (a *Auditor) AuditDataConsistency(ctx context.Context) (*Report, error) {
	report := &Report{GeneratedAt: requestcontext.Now(ctx)}

	var (
		officers       []*officermodels.Officer
		subDepartments []*directory.SubDepartment
		departments    []*directory.Department
		complaints     []*complaintmodels.Complaint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		officers, err = a.stores.Officers.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		subDepartments, err = a.stores.Directory.ListSubDepartments(gctx)
		if err != nil {
			return err
		}
		departments, err = a.stores.Directory.ListDepartments(gctx)
		return err
	})
	g.Go(func() (err error) {
		complaints, err = a.stores.Complaints.ListAssigned(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "consistency scan failed")
	}

	report.OfficersScanned = len(officers)
	report.SubDepartments = len(subDepartments)
	report.ComplaintsScanned = len(complaints)

	activeOfficers := make(map[domain.OfficerCode]bool, len(officers))
	var incomplete, unassigned []string
	for _, o := range officers {
		activeOfficers[o.Code] = o.Active
		if !o.Active {
			continue
		}
		switch {
		case !o.AssignmentComplete():
			incomplete = append(incomplete, o.Code.String())
		case o.Department.IsZero():
			unassigned = append(unassigned, o.Code.String())
		}
	}
	if len(incomplete) > 0 {
		report.Findings = append(report.Findings, Finding{
			Kind: KindIncompleteOfficer, Severity: SeverityError,
			Count: len(incomplete), Entities: incomplete,
		})
	}
	if len(unassigned) > 0 {
		report.Findings = append(report.Findings, Finding{
			Kind: KindUnassignedOfficer, Severity: SeverityWarning,
			Count: len(unassigned), Entities: unassigned,
		})
	}

	activeDepartments := make(map[domain.DepartmentID]bool, len(departments))
	for _, d := range departments {
		activeDepartments[d.ID] = d.Active
	}
	var orphaned []string
	for _, sd := range subDepartments {
		if sd.Active && !activeDepartments[sd.ParentID] {
			orphaned = append(orphaned, string(sd.ID))
		}
	}
	if len(orphaned) > 0 {
		report.Findings = append(report.Findings, Finding{
			Kind: KindOrphanedSubDepartment, Severity: SeverityError,
			Count: len(orphaned), Entities: orphaned,
		})
	}

	var dangling []string
	for _, c := range complaints {
		if !activeOfficers[c.AssignedOfficer] {
			dangling = append(dangling, c.Number.String())
		}
	}
	if len(dangling) > 0 {
		report.Findings = append(report.Findings, Finding{
			Kind: KindDanglingAssignment, Severity: SeverityError,
			Count: len(dangling), Entities: dangling,
		})
	}

	if a.logger != nil {
		a.logger.InfoContext(ctx, "consistency audit completed",
			"officers", report.OfficersScanned,
			"sub_departments", report.SubDepartments,
			"assigned_complaints", report.ComplaintsScanned,
			"findings", len(report.Findings))
	}
	return report, nil
}

// CleanupResult reports what the corrective batch repaired.
type CleanupResult struct {
	OrphanedSubDepartments int
	IncompleteOfficers     int
	ClearedAssignments     int
}

// Repairs is the total number of corrections applied.
func (r *CleanupResult) Repairs() int {
	return r.OrphanedSubDepartments + r.IncompleteOfficers + r.ClearedAssignments
}

// CleanupOrphanedRecords repairs the drift the audit pass detects:
// deactivates orphaned sub-departments, strips and deactivates officers with
// half-set assignments, and un-assigns complaints pointing at officers that
// no longer exist or are inactive. The whole batch commits or rolls back as
// one unit.
func (a *Auditor) CleanupOrphanedRecords(ctx context.Context, actor domain.Actor) (*CleanupResult, error) {
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return nil, dErrors.WithReason(dErrors.CodeForbidden, dErrors.ReasonInsufficientAuthority,
			"consistency cleanup requires the ADMIN role or above")
	}

	now := requestcontext.Now(ctx)
	var result CleanupResult
	err := a.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		result = CleanupResult{}

		// Collect the whole repair set before touching anything. The postgres
		// boundary rolls back on failure; the in-memory boundary has no
		// rollback, so the apply phase below must not be able to abort midway.
		departments, err := stores.Directory.ListDepartments(ctx)
		if err != nil {
			return err
		}
		activeDepartments := make(map[domain.DepartmentID]bool, len(departments))
		for _, d := range departments {
			activeDepartments[d.ID] = d.Active
		}
		subDepartments, err := stores.Directory.ListSubDepartments(ctx)
		if err != nil {
			return err
		}
		var orphanedSubs []domain.SubDepartmentID
		for _, sd := range subDepartments {
			if sd.Active && !activeDepartments[sd.ParentID] {
				orphanedSubs = append(orphanedSubs, sd.ID)
			}
		}

		officers, err := stores.Officers.ListAll(ctx)
		if err != nil {
			return err
		}
		activeOfficers := make(map[domain.OfficerCode]bool, len(officers))
		var halfSet []*officermodels.Officer
		for _, o := range officers {
			activeOfficers[o.Code] = o.Active
			if o.Active && !o.AssignmentComplete() {
				activeOfficers[o.Code] = false
				halfSet = append(halfSet, o)
			}
		}

		complaints, err := stores.Complaints.ListAssigned(ctx)
		if err != nil {
			return err
		}
		var dangling []*complaintmodels.Complaint
		for _, c := range complaints {
			if !activeOfficers[c.AssignedOfficer] {
				dangling = append(dangling, c)
			}
		}

		// Apply. Records deleted since the scan (officer retirement holds a
		// different lock on the in-memory path) no longer need the repair, so
		// NotFound is a skip, not an abort.
		for _, id := range orphanedSubs {
			if err := stores.Directory.DeactivateSubDepartment(ctx, id); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					continue
				}
				return fmt.Errorf("deactivate sub-department %s: %w", id, err)
			}
			result.OrphanedSubDepartments++
		}
		for _, o := range halfSet {
			o.ClearAssignment(now)
			if err := stores.Officers.Update(ctx, o); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					continue
				}
				return fmt.Errorf("strip officer %s: %w", o.Code, err)
			}
			result.IncompleteOfficers++
		}
		for _, c := range dangling {
			c.ClearAssignment(now)
			if err := stores.Complaints.Update(ctx, c); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					continue
				}
				return fmt.Errorf("unassign complaint %s: %w", c.Number, err)
			}
			result.ClearedAssignments++
		}

		if result.Repairs() == 0 {
			return nil
		}
		if err := a.auditPublisher.Emit(ctx, audit.Event{
			Action:     audit.ActionConsistencyCleanup,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			EntityType: "system",
			EntityID:   "consistency_cleanup",
			Details: audit.CleanupDetails{
				OrphanedSubDepartments: result.OrphanedSubDepartments,
				IncompleteOfficers:     result.IncompleteOfficers,
				ClearedAssignments:     result.ClearedAssignments,
			},
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit consistency cleanup")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if a.logger != nil {
		a.logger.InfoContext(ctx, "consistency cleanup completed",
			"orphaned_sub_departments", result.OrphanedSubDepartments,
			"incomplete_officers", result.IncompleteOfficers,
			"cleared_assignments", result.ClearedAssignments)
	}
	if a.metrics != nil {
		a.metrics.CleanupRepairs.WithLabelValues("orphaned_sub_department").Add(float64(result.OrphanedSubDepartments))
		a.metrics.CleanupRepairs.WithLabelValues("incomplete_officer").Add(float64(result.IncompleteOfficers))
		a.metrics.CleanupRepairs.WithLabelValues("cleared_assignment").Add(float64(result.ClearedAssignments))
	}
	return &result, nil
}
