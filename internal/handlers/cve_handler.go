package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/models"
)

// CveService is the interface that wraps the CVE feed aggregation logic.
type CveService interface {
	// Method Recent returns normalized CVE records published in the last days
	// days. days is clamped to [1,30], limit to [1,200].
	Recent(ctx context.Context, days, limit int) ([]models.CveRecord, error)
}

// CveHandler handles CVE feed HTTP requests
type CveHandler struct {
	BaseHandler
	cveService CveService
}

// NewCveHandler creates a new CVE handler
func NewCveHandler(cveService CveService, logger *zap.Logger) *CveHandler {
	return &CveHandler{
		BaseHandler: BaseHandler{Logger: logger},
		cveService:  cveService,
	}
}

// RegisterRoutes registers all CVE handler routes. These endpoints are public.
func (h *CveHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cve/recent", h.Recent)
}

// RecentResponse is the body of GET /cve/recent
type RecentResponse struct {
	Items []models.CveRecord `json:"items"`
}

// Recent handles GET /cve/recent
// @Summary Recent CVEs
// @Description Normalized recent vulnerability records from NVD, with CIRCL as fallback.
// @Tags cve
// @Produce json
// @Param days query int false "Lookback window in days, 1-30" default(7)
// @Param limit query int false "Max records, 1-200" default(50)
// @Success 200 {object} RecentResponse
// @Failure 500 {object} map[string]string "All feeds unavailable"
// @Router /cve/recent [get]
func (h *CveHandler) Recent(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.cveService.Recent(r.Context(), days, limit)
	if err != nil {
		h.Logger.Error("CVE feed fetch failed", zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, RecentResponse{Items: items})
}
