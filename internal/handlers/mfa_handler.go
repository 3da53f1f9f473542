package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/middleware"
	"github.com/threatdash/backend/internal/services"
)

// MfaService is the interface that wraps methods for TOTP enrollment logic.
type MfaService interface {
	// Method Status reports whether MFA is enabled for the user.
	Status(ctx context.Context, userID int) (bool, error)
	// Method Setup generates a fresh secret and enrollment QR for the user.
	// MFA stays disabled until Enable verifies a code.
	Setup(ctx context.Context, userID int) (*services.MfaSetupResponse, error)
	// Method Enable verifies the OTP against the stored secret and flips MFA on.
	Enable(ctx context.Context, userID int, otpCode string) error
	// Method Disable turns MFA off, requiring a valid OTP when a secret is on file.
	Disable(ctx context.Context, userID int, otpCode string) error
}

// MfaHandler handles MFA enrollment HTTP requests
type MfaHandler struct {
	BaseHandler
	mfaService MfaService
}

// NewMfaHandler creates a new MFA handler
func NewMfaHandler(mfaService MfaService, logger *zap.Logger) *MfaHandler {
	return &MfaHandler{
		BaseHandler: BaseHandler{Logger: logger},
		mfaService:  mfaService,
	}
}

// RegisterRoutes registers all MFA handler routes. The passed router must
// already carry the auth middleware.
func (h *MfaHandler) RegisterRoutes(r chi.Router) {
	r.Route("/mfa", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/setup", h.Setup)
		r.Post("/enable", h.Enable)
		r.Post("/disable", h.Disable)
	})
}

type otpRequest struct {
	Otp string `json:"otp"`
}

// Status handles GET /mfa/status
// @Summary MFA status
// @Tags mfa
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]bool
// @Router /mfa/status [get]
func (h *MfaHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	enabled, err := h.mfaService.Status(r.Context(), userID)
	if err != nil {
		h.Logger.Error("failed to read MFA status", zap.Int("user_id", userID), zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// Setup handles POST /mfa/setup
// @Summary Begin MFA enrollment
// @Description Generates a new TOTP secret and QR code. MFA stays off until the first code is verified via /mfa/enable.
// @Tags mfa
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.MfaSetupResponse
// @Router /mfa/setup [post]
func (h *MfaHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	resp, err := h.mfaService.Setup(r.Context(), userID)
	if err != nil {
		h.Logger.Error("MFA setup failed", zap.Int("user_id", userID), zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}

// Enable handles POST /mfa/enable
// @Summary Complete MFA enrollment
// @Tags mfa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body otpRequest true "Current TOTP code"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "No pending secret"
// @Failure 401 {object} map[string]string "Invalid OTP"
// @Router /mfa/enable [post]
func (h *MfaHandler) Enable(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.mfaService.Enable(r.Context(), userID, req.Otp); err != nil {
		h.Logger.Warn("MFA enable failed", zap.Int("user_id", userID), zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true, "enabled": true})
}

// Disable handles POST /mfa/disable
// @Summary Disable MFA
// @Tags mfa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body otpRequest false "Current TOTP code, required while a secret is on file"
// @Success 200 {object} map[string]bool
// @Failure 401 {object} map[string]string "Invalid OTP"
// @Router /mfa/disable [post]
func (h *MfaHandler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// Body is optional here: a user with no secret on file may disable blind
	var req otpRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.mfaService.Disable(r.Context(), userID, req.Otp); err != nil {
		h.Logger.Warn("MFA disable failed", zap.Int("user_id", userID), zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true, "enabled": false})
}
