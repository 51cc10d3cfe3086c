package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"suvidha/internal/auditor"
	"suvidha/internal/transport/http/shared"
	"suvidha/pkg/domain"
	"suvidha/pkg/requestcontext"
)

// AuditorService is the consistency surface the transport depends on.
type AuditorService interface {
	AuditDataConsistency(ctx context.Context) (*auditor.Report, error)
	CleanupOrphanedRecords(ctx context.Context, actor domain.Actor) (*auditor.CleanupResult, error)
}

type findingJSON struct {
	Kind     string   `json:"kind"`
	Severity string   `json:"severity"`
	Count    int      `json:"count"`
	Entities []string `json:"entities"`
}

type auditReportResponse struct {
	GeneratedAt       time.Time     `json:"generated_at"`
	Healthy           bool          `json:"healthy"`
	OfficersScanned   int           `json:"officers_scanned"`
	SubDepartments    int           `json:"sub_departments_scanned"`
	ComplaintsScanned int           `json:"assigned_complaints_scanned"`
	Findings          []findingJSON `json:"findings"`
}

type cleanupResponse struct {
	OrphanedSubDepartments int `json:"orphaned_sub_departments"`
	IncompleteOfficers     int `json:"incomplete_officers"`
	ClearedAssignments     int `json:"cleared_assignments"`
	TotalRepairs           int `json:"total_repairs"`
}

func (h *Handler) registerAuditorRoutes(r chi.Router) {
	r.Get("/consistency/audit", h.handleConsistencyAudit)
	r.Post("/consistency/cleanup", h.handleConsistencyCleanup)
}

func (h *Handler) handleConsistencyAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.auditor.AuditDataConsistency(r.Context())
	if err != nil {
		h.logError(r.Context(), "consistency audit failed", err)
		shared.WriteError(w, err)
		return
	}

	resp := auditReportResponse{
		GeneratedAt:       report.GeneratedAt,
		Healthy:           report.Healthy(),
		OfficersScanned:   report.OfficersScanned,
		SubDepartments:    report.SubDepartments,
		ComplaintsScanned: report.ComplaintsScanned,
		Findings:          make([]findingJSON, 0, len(report.Findings)),
	}
	for _, f := range report.Findings {
		resp.Findings = append(resp.Findings, findingJSON{
			Kind:     f.Kind,
			Severity: string(f.Severity),
			Count:    f.Count,
			Entities: f.Entities,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleConsistencyCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	result, err := h.auditor.CleanupOrphanedRecords(ctx, actor)
	if err != nil {
		h.logError(ctx, "consistency cleanup failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cleanupResponse{
		OrphanedSubDepartments: result.OrphanedSubDepartments,
		IncompleteOfficers:     result.IncompleteOfficers,
		ClearedAssignments:     result.ClearedAssignments,
		TotalRepairs:           result.Repairs(),
	})
}
