package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	officermodels "suvidha/internal/officer/models"
	officerservice "suvidha/internal/officer/service"
	"suvidha/internal/transport/http/shared"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/requestcontext"
)

// OfficerService is the lifecycle surface the transport depends on.
type OfficerService interface {
	CreateOfficer(ctx context.Context, actor domain.Actor, req officerservice.CreateRequest) (*officerservice.CreateResult, error)
	TransferOfficer(ctx context.Context, actor domain.Actor, code domain.OfficerCode, req officerservice.TransferRequest) (*officermodels.Officer, error)
	RetireOfficer(ctx context.Context, actor domain.Actor, code domain.OfficerCode) error
	Get(ctx context.Context, code domain.OfficerCode) (*officermodels.Officer, error)
}

type createOfficerRequest struct {
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	Department    string `json:"department"`
	SubDepartment string `json:"sub_department"`
}

type transferOfficerRequest struct {
	ToDepartment    string `json:"to_department"`
	ToSubDepartment string `json:"to_sub_department"`
	Reason          string `json:"reason"`
}

type officerResponse struct {
	Code          string                  `json:"code"`
	Name          string                  `json:"name"`
	Contact       string                  `json:"contact,omitempty"`
	Department    string                  `json:"department,omitempty"`
	SubDepartment string                  `json:"sub_department,omitempty"`
	Active        bool                    `json:"active"`
	History       []assignmentChangeJSON  `json:"history,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

type assignmentChangeJSON struct {
	FromDepartment    string    `json:"from_department"`
	FromSubDepartment string    `json:"from_sub_department"`
	ToDepartment      string    `json:"to_department"`
	ToSubDepartment   string    `json:"to_sub_department"`
	InitiatedBy       string    `json:"initiated_by"`
	Reason            string    `json:"reason"`
	At                time.Time `json:"at"`
}

type createOfficerResponse struct {
	Officer officerResponse `json:"officer"`
	// TemporaryPassword is returned exactly once; it is never retrievable
	// again.
	TemporaryPassword string `json:"temporary_password"`
}

func toOfficerResponse(o *officermodels.Officer) officerResponse {
	resp := officerResponse{
		Code:          o.Code.String(),
		Name:          o.Name,
		Contact:       o.Contact,
		Department:    string(o.Department),
		SubDepartment: string(o.SubDepartment),
		Active:        o.Active,
		CreatedAt:     o.CreatedAt,
	}
	for _, change := range o.History {
		resp.History = append(resp.History, assignmentChangeJSON{
			FromDepartment:    string(change.FromDepartment),
			FromSubDepartment: string(change.FromSubDepartment),
			ToDepartment:      string(change.ToDepartment),
			ToSubDepartment:   string(change.ToSubDepartment),
			InitiatedBy:       change.InitiatedBy,
			Reason:            change.Reason,
			At:                change.At,
		})
	}
	return resp
}

func (h *Handler) registerOfficerRoutes(r chi.Router) {
	r.Post("/officers", h.handleCreateOfficer)
	r.Get("/officers/{code}", h.handleGetOfficer)
	r.Post("/officers/{code}/transfer", h.handleTransferOfficer)
	r.Delete("/officers/{code}", h.handleRetireOfficer)
}

func (h *Handler) handleCreateOfficer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	var req createOfficerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	dept, err := domain.ParseDepartmentID(req.Department)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	sub, err := domain.ParseSubDepartmentID(req.SubDepartment)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.officers.CreateOfficer(ctx, actor, officerservice.CreateRequest{
		Name:          req.Name,
		Contact:       req.Contact,
		Department:    dept,
		SubDepartment: sub,
	})
	if err != nil {
		h.logError(ctx, "create officer failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, createOfficerResponse{
		Officer:           toOfficerResponse(result.Officer),
		TemporaryPassword: result.TemporaryPassword,
	})
}

func (h *Handler) handleGetOfficer(w http.ResponseWriter, r *http.Request) {
	code, err := domain.ParseOfficerCode(chi.URLParam(r, "code"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	officer, err := h.officers.Get(r.Context(), code)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toOfficerResponse(officer))
}

func (h *Handler) handleTransferOfficer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	code, err := domain.ParseOfficerCode(chi.URLParam(r, "code"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req transferOfficerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	dept, err := domain.ParseDepartmentID(req.ToDepartment)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	sub, err := domain.ParseSubDepartmentID(req.ToSubDepartment)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	officer, err := h.officers.TransferOfficer(ctx, actor, code, officerservice.TransferRequest{
		ToDepartment:    dept,
		ToSubDepartment: sub,
		Reason:          req.Reason,
	})
	if err != nil {
		h.logError(ctx, "transfer officer failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toOfficerResponse(officer))
}

func (h *Handler) handleRetireOfficer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	code, err := domain.ParseOfficerCode(chi.URLParam(r, "code"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.officers.RetireOfficer(ctx, actor, code); err != nil {
		h.logError(ctx, "retire officer failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
