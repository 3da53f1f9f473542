package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SystemHandler serves the health probe, the API capability sheet and the
// JSON 404 catch-all
type SystemHandler struct {
	BaseHandler
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		BaseHandler: BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers the capability sheet under the API prefix
func (h *SystemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/docs", h.Docs)
}

// Health handles GET /health
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /health [get]
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Docs handles GET /docs: a plain machine-readable route listing, kept
// alongside the full Swagger UI
// @Summary API capability sheet
// @Tags system
// @Produce json
// @Success 200 {object} map[string]any
// @Router /docs [get]
func (h *SystemHandler) Docs(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"name": "Threat Intel Dashboard API",
		"endpoints": []map[string]string{
			{"method": "POST", "path": "/api/auth/signup", "desc": "Register a new account"},
			{"method": "POST", "path": "/api/auth/login", "desc": "Login with email/password (+ OTP when MFA is on)"},
			{"method": "GET", "path": "/api/mfa/status", "desc": "MFA status (auth)"},
			{"method": "POST", "path": "/api/mfa/setup", "desc": "Begin MFA enrollment (auth)"},
			{"method": "POST", "path": "/api/mfa/enable", "desc": "Verify first TOTP code (auth)"},
			{"method": "POST", "path": "/api/mfa/disable", "desc": "Disable MFA (auth)"},
			{"method": "POST", "path": "/api/ask", "desc": "Ask a question over the indexed corpus (auth)"},
			{"method": "GET", "path": "/api/search", "desc": "Search the indexed corpus (auth)"},
			{"method": "GET", "path": "/api/cve/recent", "desc": "Recent CVEs, NVD with CIRCL fallback"},
			{"method": "GET", "path": "/api/map/country-counts", "desc": "Per-country CVE counts (auth)"},
			{"method": "GET", "path": "/api/stats/top-sources", "desc": "Per-source document counts (auth)"},
			{"method": "GET", "path": "/api/stats/volume", "desc": "Per-day document volume (auth)"},
			{"method": "GET", "path": "/api/admin/whoami", "desc": "Echo the authenticated identity (admin)"},
			{"method": "POST", "path": "/api/admin/refresh-meta", "desc": "Reload corpus metadata (admin)"},
			{"method": "GET", "path": "/health", "desc": "Liveness probe"},
			{"method": "GET", "path": "/metrics", "desc": "Prometheus metrics"},
			{"method": "GET", "path": "/swagger/index.html", "desc": "Swagger UI"},
		},
	})
}

// NotFound is the JSON catch-all for unknown routes
func (h *SystemHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.RespondError(w, http.StatusNotFound, "not found")
}
