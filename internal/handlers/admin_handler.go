package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/corpus"
	"github.com/threatdash/backend/internal/middleware"
)

// AdminHandler handles admin-only HTTP requests
type AdminHandler struct {
	BaseHandler
	meta *corpus.MetaCache
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(meta *corpus.MetaCache, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: BaseHandler{Logger: logger},
		meta:        meta,
	}
}

// RegisterRoutes registers all admin handler routes. The passed router must
// already carry the auth and admin-role middleware.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/whoami", h.Whoami)
		r.Post("/refresh-meta", h.RefreshMeta)
	})
}

// Whoami handles GET /admin/whoami
// @Summary Echo the authenticated admin identity
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string "Not an admin"
// @Router /admin/whoami [get]
func (h *AdminHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	userID, _ := claims.UserID()
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"userId": userID,
		"email":  claims.Email,
		"roles":  claims.Roles,
	})
}

// RefreshMeta handles POST /admin/refresh-meta
// @Summary Reload corpus metadata from disk
// @Description Re-reads the metadata file backing the stats endpoints without restarting the server.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 500 {object} map[string]string "Metadata file unreadable"
// @Router /admin/refresh-meta [post]
func (h *AdminHandler) RefreshMeta(w http.ResponseWriter, r *http.Request) {
	if err := h.meta.Refresh(); err != nil {
		h.Logger.Error("metadata refresh failed", zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.Logger.Info("corpus metadata reloaded", zap.Int("items", h.meta.Len()))
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"items": h.meta.Len(),
	})
}
