package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	transfermodels "suvidha/internal/transfer/models"
	transferservice "suvidha/internal/transfer/service"
	"suvidha/internal/transport/http/shared"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/requestcontext"
)

// TransferService is the workflow surface the transport depends on.
type TransferService interface {
	InitiateTransfer(ctx context.Context, actor domain.Actor, req transferservice.InitiateRequest) (*transferservice.InitiateResult, error)
	AcceptTransfer(ctx context.Context, actor domain.Actor, id domain.TransferID) (*transfermodels.Transfer, error)
	RejectTransfer(ctx context.Context, actor domain.Actor, id domain.TransferID, rejectionReason string) (*transfermodels.Transfer, error)
	PendingByDepartment(ctx context.Context, dept domain.DepartmentID) ([]*transfermodels.Transfer, error)
	HistoryByComplaint(ctx context.Context, number domain.ComplaintNumber) ([]*transfermodels.Transfer, error)
	StatsByDepartment(ctx context.Context, dept domain.DepartmentID, from, to time.Time) (*transferservice.Stats, error)
}

type initiateTransferRequest struct {
	ToDepartment    string `json:"to_department"`
	ToSubDepartment string `json:"to_sub_department,omitempty"`
	Type            string `json:"type"`
	Reason          string `json:"reason"`
	Notes           string `json:"notes,omitempty"`
}

type rejectTransferRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

type transferResponse struct {
	ID                string     `json:"id"`
	ComplaintNumber   string     `json:"complaint_number"`
	FromDepartment    string     `json:"from_department"`
	FromSubDepartment string     `json:"from_sub_department,omitempty"`
	ToDepartment      string     `json:"to_department"`
	ToSubDepartment   string     `json:"to_sub_department,omitempty"`
	Type              string     `json:"type"`
	Reason            string     `json:"reason"`
	Notes             string     `json:"notes,omitempty"`
	InitiatedBy       string     `json:"initiated_by"`
	Status            string     `json:"status"`
	ResolvedBy        string     `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	RejectionReason   string     `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type initiateTransferResponse struct {
	Transfer          transferResponse `json:"transfer"`
	ConnectionCreated bool             `json:"connection_created"`
}

type statsResponse struct {
	Department string                       `json:"department"`
	From       time.Time                    `json:"from"`
	To         time.Time                    `json:"to"`
	Total      int                          `json:"total"`
	ByOutcome  map[string]outcomeStatsJSON  `json:"by_outcome"`
}

type outcomeStatsJSON struct {
	Count                  int     `json:"count"`
	MeanProcessingSeconds  float64 `json:"mean_processing_seconds"`
}

func toTransferResponse(t *transfermodels.Transfer) transferResponse {
	return transferResponse{
		ID:                t.ID.String(),
		ComplaintNumber:   t.ComplaintNumber.String(),
		FromDepartment:    string(t.FromDepartment),
		FromSubDepartment: string(t.FromSubDepartment),
		ToDepartment:      string(t.ToDepartment),
		ToSubDepartment:   string(t.ToSubDepartment),
		Type:              string(t.Type),
		Reason:            string(t.Reason),
		Notes:             t.Notes,
		InitiatedBy:       t.InitiatedBy,
		Status:            string(t.Status),
		ResolvedBy:        t.ResolvedBy,
		ResolvedAt:        t.ResolvedAt,
		RejectionReason:   t.RejectionReason,
		CreatedAt:         t.CreatedAt,
	}
}

func toTransferResponses(transfers []*transfermodels.Transfer) []transferResponse {
	out := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, toTransferResponse(t))
	}
	return out
}

func (h *Handler) registerTransferRoutes(r chi.Router) {
	r.Post("/complaints/{number}/transfers", h.handleInitiateTransfer)
	r.Get("/complaints/{number}/transfers", h.handleTransferHistory)
	r.Post("/transfers/{id}/accept", h.handleAcceptTransfer)
	r.Post("/transfers/{id}/reject", h.handleRejectTransfer)
	r.Get("/departments/{department}/transfers/pending", h.handlePendingTransfers)
	r.Get("/departments/{department}/transfers/stats", h.handleTransferStats)
}

func (h *Handler) handleInitiateTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	number, err := domain.ParseComplaintNumber(chi.URLParam(r, "number"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req initiateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	toDept, err := domain.ParseDepartmentID(req.ToDepartment)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var toSub domain.SubDepartmentID
	if req.ToSubDepartment != "" {
		if toSub, err = domain.ParseSubDepartmentID(req.ToSubDepartment); err != nil {
			shared.WriteError(w, err)
			return
		}
	}
	typ, err := transfermodels.ParseType(req.Type)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	reason, err := transfermodels.ParseReason(req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.transfers.InitiateTransfer(ctx, actor, transferservice.InitiateRequest{
		ComplaintNumber: number,
		ToDepartment:    toDept,
		ToSubDepartment: toSub,
		Type:            typ,
		Reason:          reason,
		Notes:           req.Notes,
	})
	if err != nil {
		h.logError(ctx, "initiate transfer failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, initiateTransferResponse{
		Transfer:          toTransferResponse(result.Transfer),
		ConnectionCreated: result.ConnectionCreated,
	})
}

func (h *Handler) handleAcceptTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	id, err := domain.ParseTransferID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transfer, err := h.transfers.AcceptTransfer(ctx, actor, id)
	if err != nil {
		h.logError(ctx, "accept transfer failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTransferResponse(transfer))
}

func (h *Handler) handleRejectTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	id, err := domain.ParseTransferID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req rejectTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	transfer, err := h.transfers.RejectTransfer(ctx, actor, id, req.RejectionReason)
	if err != nil {
		h.logError(ctx, "reject transfer failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTransferResponse(transfer))
}

func (h *Handler) handlePendingTransfers(w http.ResponseWriter, r *http.Request) {
	dept, err := domain.ParseDepartmentID(chi.URLParam(r, "department"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transfers, err := h.transfers.PendingByDepartment(r.Context(), dept)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTransferResponses(transfers))
}

func (h *Handler) handleTransferHistory(w http.ResponseWriter, r *http.Request) {
	number, err := domain.ParseComplaintNumber(chi.URLParam(r, "number"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transfers, err := h.transfers.HistoryByComplaint(r.Context(), number)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTransferResponses(transfers))
}

func (h *Handler) handleTransferStats(w http.ResponseWriter, r *http.Request) {
	dept, err := domain.ParseDepartmentID(chi.URLParam(r, "department"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	stats, err := h.transfers.StatsByDepartment(r.Context(), dept, from, to)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := statsResponse{
		Department: string(stats.Department),
		From:       stats.From,
		To:         stats.To,
		Total:      stats.Total,
		ByOutcome:  make(map[string]outcomeStatsJSON, len(stats.ByOutcome)),
	}
	for outcome, s := range stats.ByOutcome {
		resp.ByOutcome[string(outcome)] = outcomeStatsJSON{
			Count:                 s.Count,
			MeanProcessingSeconds: s.MeanProcessingTime.Seconds(),
		}
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// parseDateRange reads the from/to query parameters as RFC 3339 timestamps,
// defaulting to the last 30 days.
func parseDateRange(r *http.Request) (from, to time.Time, err error) {
	now := requestcontext.Now(r.Context())
	from, to = now.AddDate(0, 0, -30), now
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			return from, to, dErrors.New(dErrors.CodeInvalidInput, "from must be an RFC 3339 timestamp")
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			return from, to, dErrors.New(dErrors.CodeInvalidInput, "to must be an RFC 3339 timestamp")
		}
	}
	if !from.Before(to) {
		return from, to, dErrors.New(dErrors.CodeInvalidInput, "from must precede to")
	}
	return from, to, nil
}
