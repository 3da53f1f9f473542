package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/models"
)

// MapService is the interface that wraps the country-inference aggregation.
type MapService interface {
	// Method CountryCounts tallies recent CVE records by inferred country,
	// sorted by count descending.
	CountryCounts(ctx context.Context) ([]models.CountryCount, error)
}

// MapHandler handles threat map HTTP requests
type MapHandler struct {
	BaseHandler
	mapService MapService
}

// NewMapHandler creates a new map handler
func NewMapHandler(mapService MapService, logger *zap.Logger) *MapHandler {
	return &MapHandler{
		BaseHandler: BaseHandler{Logger: logger},
		mapService:  mapService,
	}
}

// RegisterRoutes registers all map handler routes. The passed router must
// already carry the auth middleware.
func (h *MapHandler) RegisterRoutes(r chi.Router) {
	r.Get("/map/country-counts", h.CountryCounts)
}

// CountryCountsResponse is the body of GET /map/country-counts
type CountryCountsResponse struct {
	Countries []models.CountryCount `json:"countries"`
}

// CountryCounts handles GET /map/country-counts
// @Summary Per-country CVE counts
// @Description Heuristic per-country tally of recent CVEs for the dashboard map.
// @Tags map
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CountryCountsResponse
// @Failure 500 {object} map[string]string "Feeds unavailable"
// @Router /map/country-counts [get]
func (h *MapHandler) CountryCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.mapService.CountryCounts(r.Context())
	if err != nil {
		h.Logger.Error("country counts failed", zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, CountryCountsResponse{Countries: counts})
}
