package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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
)

// mockMapService is a mock implementation of MapService
type mockMapService struct {
	counts []models.CountryCount
	err    error
}

func (m *mockMapService) CountryCounts(ctx context.Context) ([]models.CountryCount, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

func newMapRouter(tg *auth.TokenGenerator, svc MapService) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tg))
		NewMapHandler(svc, zap.NewNop()).RegisterRoutes(r)
	})
	return r
}

func mapToken(t *testing.T, tg *auth.TokenGenerator) string {
	t.Helper()
	token, err := tg.Generate(&models.User{ID: 4, Email: "analyst@example.com", Roles: []string{"user"}})
	require.NoError(t, err)
	return token
}

func TestMapHandler_CountryCounts(t *testing.T) {
	tg := auth.NewTokenGenerator("test-secret", time.Hour)

	t.Run("wraps counts in a countries envelope", func(t *testing.T) {
		svc := &mockMapService{counts: []models.CountryCount{
			{Country: "CN", Count: 2},
			{Country: "US", Count: 1},
		}}
		router := newMapRouter(tg, svc)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/map/country-counts", nil)
		req.Header.Set("Authorization", "Bearer "+mapToken(t, tg))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Contains(t, body, "countries")

		var resp CountryCountsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Countries, 2)
		assert.Equal(t, "CN", resp.Countries[0].Country)
		assert.Equal(t, 2, resp.Countries[0].Count)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		svc := &mockMapService{counts: []models.CountryCount{{Country: "US", Count: 1}}}
		router := newMapRouter(tg, svc)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/map/country-counts", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("feed failure maps to 500", func(t *testing.T) {
		svc := &mockMapService{err: fmt.Errorf("%w: nvd and circl down", apperrors.ErrFeed)}
		router := newMapRouter(tg, svc)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/map/country-counts", nil)
		req.Header.Set("Authorization", "Bearer "+mapToken(t, tg))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
