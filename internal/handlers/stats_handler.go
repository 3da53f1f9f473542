package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/services"
)

// StatsService is the interface that wraps the corpus aggregation queries.
type StatsService interface {
	// Method TopSources returns per-source document counts sorted descending.
	TopSources() *services.TopSourcesResponse
	// Method Volume returns per-UTC-day document counts, or a note when the
	// corpus carries no timestamps.
	Volume() *services.VolumeResponse
}

// StatsHandler handles corpus statistics HTTP requests
type StatsHandler struct {
	BaseHandler
	statsService StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		statsService: statsService,
	}
}

// RegisterRoutes registers all stats handler routes. The passed router must
// already carry the auth middleware.
func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/stats", func(r chi.Router) {
		r.Get("/top-sources", h.TopSources)
		r.Get("/volume", h.Volume)
	})
}

// TopSources handles GET /stats/top-sources
// @Summary Per-source document counts
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.TopSourcesResponse
// @Router /stats/top-sources [get]
func (h *StatsHandler) TopSources(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, h.statsService.TopSources())
}

// Volume handles GET /stats/volume
// @Summary Per-day document volume
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.VolumeResponse
// @Router /stats/volume [get]
func (h *StatsHandler) Volume(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, h.statsService.Volume())
}
