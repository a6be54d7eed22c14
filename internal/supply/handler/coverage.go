package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medflow-supply/internal/supply/coverage"
	"github.com/medflow/medflow-supply/internal/supply/domain"
	"github.com/medflow/medflow-supply/internal/supply/service"
	"github.com/medflow/medflow-supply/pkg/httputil"
	"github.com/medflow/medflow-supply/pkg/logger"
)

// CoverageHandler handles supply record and coverage endpoints
type CoverageHandler struct {
	svc    *service.CoverageService
	logger *logger.Logger
}

// NewCoverageHandler creates a new coverage handler
func NewCoverageHandler(svc *service.CoverageService, log *logger.Logger) *CoverageHandler {
	return &CoverageHandler{
		svc:    svc,
		logger: log,
	}
}

type recordParams struct {
	ID       string `validate:"required,uuid"`
	Strategy string `validate:"omitempty,oneof=percentage-sum direct-ratio"`
}

// RecomputeRequest is the body of an edited snapshot recompute.
type RecomputeRequest struct {
	Strategy string            `json:"strategy" validate:"omitempty,oneof=percentage-sum direct-ratio"`
	Edits    []ItemEditRequest `json:"edits" validate:"dive"`
}

// ItemEditRequest overrides fields of one item. Numbers may arrive as JSON
// numbers or strings.
type ItemEditRequest struct {
	ItemCode               int   `json:"item_code" validate:"required,gt=0"`
	WarehouseStock         any   `json:"warehouse_stock,omitempty"`
	KitchenStock           any   `json:"kitchen_stock,omitempty"`
	MonthlyConsumptionRate any   `json:"monthly_consumption_rate,omitempty"`
	UnitPrice              any   `json:"unit_price,omitempty"`
	Active                 *bool `json:"active,omitempty"`
}

// ClassifyRequest is a single stock/consumption pair.
type ClassifyRequest struct {
	TotalStock             any `json:"total_stock"`
	MonthlyConsumptionRate any `json:"monthly_consumption_rate"`
}

// ClassifyResponse is the coverage classification of a ClassifyRequest.
type ClassifyResponse struct {
	coverage.Classification
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
}

// GetRecord returns a record with its stored, unfiltered summaries
func (h *CoverageHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	params := recordParams{ID: chi.URLParam(r, "id")}
	if err := httputil.Validate(params); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.svc.GetRecord(r.Context(), params.ID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Coverage recomputes a record for the caller's line categories
func (h *CoverageHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	params := recordParams{
		ID:       chi.URLParam(r, "id"),
		Strategy: r.URL.Query().Get("strategy"),
	}
	if err := httputil.Validate(params); err != nil {
		httputil.Error(w, err)
		return
	}

	res, err := h.svc.Recompute(r.Context(), params.ID, callerFrom(r), params.Strategy)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, res)
}

// RecomputeEdited recomputes a record with unsaved item edits applied
func (h *CoverageHandler) RecomputeEdited(w http.ResponseWriter, r *http.Request) {
	params := recordParams{ID: chi.URLParam(r, "id")}
	if err := httputil.Validate(params); err != nil {
		httputil.Error(w, err)
		return
	}

	var req RecomputeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	edits := make([]service.ItemEdit, len(req.Edits))
	for i, e := range req.Edits {
		edits[i] = service.ItemEdit{
			ItemCode:               e.ItemCode,
			WarehouseStock:         e.WarehouseStock,
			KitchenStock:           e.KitchenStock,
			MonthlyConsumptionRate: e.MonthlyConsumptionRate,
			UnitPrice:              e.UnitPrice,
			Active:                 e.Active,
		}
	}

	res, err := h.svc.RecomputeEdited(r.Context(), params.ID, callerFrom(r), req.Strategy, edits)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, res)
}

// Classify classifies one stock/consumption pair
func (h *CoverageHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	var diags []domain.Diagnostic
	stock := domain.CoerceField(0, "total_stock", req.TotalStock, &diags)
	rate := domain.CoerceField(0, "monthly_consumption_rate", req.MonthlyConsumptionRate, &diags)

	httputil.JSON(w, http.StatusOK, ClassifyResponse{
		Classification: coverage.Classify(stock, rate),
		Diagnostics:    diags,
	})
}

func callerFrom(r *http.Request) service.Caller {
	p := httputil.GetPrincipal(r.Context())
	if p == nil {
		return service.Caller{}
	}
	return service.Caller{UserID: p.UserID, LineCategories: p.LineCategories}
}
