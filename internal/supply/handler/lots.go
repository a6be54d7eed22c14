package handler

import (
	"net/http"
	"time"

	"github.com/medflow/medflow-supply/internal/supply/expiry"
	"github.com/medflow/medflow-supply/internal/supply/service"
	"github.com/medflow/medflow-supply/pkg/errors"
	"github.com/medflow/medflow-supply/pkg/httputil"
	"github.com/medflow/medflow-supply/pkg/logger"
)

// LotHandler handles lot expiration endpoints
type LotHandler struct {
	svc    *service.LotService
	logger *logger.Logger
}

// NewLotHandler creates a new lot handler
func NewLotHandler(svc *service.LotService, log *logger.Logger) *LotHandler {
	return &LotHandler{
		svc:    svc,
		logger: log,
	}
}

// Alerts lists the lots that need attention, ordered by return deadline
func (h *LotHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	at, err := h.evaluationTime(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	feed, err := h.svc.Alerts(r.Context(), at)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, feed)
}

// TrafficLights lists the traffic light of every dated lot
func (h *LotHandler) TrafficLights(w http.ResponseWriter, r *http.Request) {
	at, err := h.evaluationTime(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	lights, err := h.svc.TrafficLights(r.Context(), at)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lights)
}

// evaluationTime reads the optional "at" query parameter, defaulting to now.
func (h *LotHandler) evaluationTime(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return h.svc.Now(), nil
	}
	at, ok := expiry.ParseDate(raw, h.svc.Location())
	if !ok {
		return time.Time{}, errors.BadRequest("at must be a date (yyyy-mm-dd, dd/mm/yyyy or RFC 3339)")
	}
	return at, nil
}
