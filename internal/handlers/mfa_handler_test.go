package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/auth"
	"github.com/threatdash/backend/internal/middleware"
	"github.com/threatdash/backend/internal/models"
	"github.com/threatdash/backend/internal/services"
)

// mockMfaService is a mock implementation of MfaService
type mockMfaService struct {
	enabled   bool
	setupResp *services.MfaSetupResponse
	err       error

	lastOtp string
}

func (m *mockMfaService) Status(ctx context.Context, userID int) (bool, error) {
	return m.enabled, m.err
}

func (m *mockMfaService) Setup(ctx context.Context, userID int) (*services.MfaSetupResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.setupResp, nil
}

func (m *mockMfaService) Enable(ctx context.Context, userID int, otpCode string) error {
	m.lastOtp = otpCode
	return m.err
}

func (m *mockMfaService) Disable(ctx context.Context, userID int, otpCode string) error {
	m.lastOtp = otpCode
	return m.err
}

func newMfaRouter(tg *auth.TokenGenerator, svc MfaService) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tg))
		NewMfaHandler(svc, zap.NewNop()).RegisterRoutes(r)
	})
	return r
}

func mfaToken(t *testing.T, tg *auth.TokenGenerator) string {
	t.Helper()
	token, err := tg.Generate(&models.User{ID: 7, Email: "user@example.com", Roles: []string{"user"}})
	require.NoError(t, err)
	return token
}

func TestMfaHandler_Enable(t *testing.T) {
	tg := auth.NewTokenGenerator("test-secret", time.Hour)

	t.Run("responds ok with enabled true", func(t *testing.T) {
		svc := &mockMfaService{}
		router := newMfaRouter(tg, svc)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/mfa/enable", strings.NewReader(`{"otp":"123456"}`))
		req.Header.Set("Authorization", "Bearer "+mfaToken(t, tg))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "123456", svc.lastOtp)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, true, body["enabled"])
	})

	t.Run("invalid OTP maps to 401", func(t *testing.T) {
		svc := &mockMfaService{err: fmt.Errorf("%w: invalid OTP", apperrors.ErrAuth)}
		router := newMfaRouter(tg, svc)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/mfa/enable", strings.NewReader(`{"otp":"000000"}`))
		req.Header.Set("Authorization", "Bearer "+mfaToken(t, tg))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMfaHandler_Disable(t *testing.T) {
	tg := auth.NewTokenGenerator("test-secret", time.Hour)

	t.Run("responds ok with enabled false", func(t *testing.T) {
		svc := &mockMfaService{enabled: true}
		router := newMfaRouter(tg, svc)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/mfa/disable", strings.NewReader(`{"otp":"123456"}`))
		req.Header.Set("Authorization", "Bearer "+mfaToken(t, tg))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, false, body["enabled"])
	})

	t.Run("empty body disables without an OTP", func(t *testing.T) {
		svc := &mockMfaService{}
		router := newMfaRouter(tg, svc)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/mfa/disable", nil)
		req.Header.Set("Authorization", "Bearer "+mfaToken(t, tg))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "", svc.lastOtp)
	})
}
