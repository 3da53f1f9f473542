package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method Signup creates a new account and returns the created user together
	// with a freshly signed session token.
	//
	// "req" parameter contains email, optional name and password.
	//
	// If validation fails or the email is already registered, an error wrapping
	// the matching apperrors sentinel will be returned.
	Signup(ctx context.Context, req *models.SignupRequest) (*models.User, string, error)
	// Method Login authenticates a user and returns the user together with a
	// session token whose claims snapshot the current email and roles.
	//
	// "req" parameter contains email, password and an optional OTP.
	//
	// A matched password with MFA enabled and no OTP yields
	// apperrors.ErrMFARequired; any other failure wraps apperrors.ErrAuth.
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		authService: authService,
	}
}

// RegisterRoutes registers all auth handler routes
// Note: This assumes the router is already scoped to /api
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
	})
}

// Signup handles POST /auth/signup
// @Summary Register a new account
// @Description Create a user with email, password and optional display name. Returns the user and a session token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.SignupRequest true "Signup request"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]string "Validation failed"
// @Failure 409 {object} map[string]string "Email already registered"
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		h.Logger.Warn("signup failed", zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: user})
}

// Login handles POST /auth/login
// @Summary Login
// @Description Authenticate with email and password, plus a TOTP code when MFA is enabled. Responds 401 with mfaRequired:true when the second factor is missing.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} map[string]string "Invalid credentials or OTP"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		// The missing-OTP case is distinct from a credential failure so the
		// client can prompt for the second factor
		if errors.Is(err, apperrors.ErrMFARequired) {
			h.RespondJSON(w, http.StatusUnauthorized, map[string]any{
				"error":       "OTP required",
				"mfaRequired": true,
			})
			return
		}
		h.Logger.Warn("login failed", zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: user})
}
