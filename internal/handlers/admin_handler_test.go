package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/auth"
	"github.com/threatdash/backend/internal/corpus"
	"github.com/threatdash/backend/internal/middleware"
	"github.com/threatdash/backend/internal/models"
)

func newAdminRouter(t *testing.T, meta *corpus.MetaCache, tg *auth.TokenGenerator) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tg))
		r.Use(middleware.RequireRole(models.RoleAdmin))
		NewAdminHandler(meta, zap.NewNop()).RegisterRoutes(r)
	})
	return r
}

func adminToken(t *testing.T, tg *auth.TokenGenerator, roles ...string) string {
	t.Helper()
	token, err := tg.Generate(&models.User{ID: 9, Email: "root@example.com", Roles: roles})
	require.NoError(t, err)
	return token
}

func TestAdminHandler_Whoami(t *testing.T) {
	tg := auth.NewTokenGenerator("test-secret", time.Hour)
	meta := corpus.NewMetaCache(filepath.Join(t.TempDir(), "meta.json"))
	router := newAdminRouter(t, meta, tg)

	t.Run("admin sees their identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, tg, "user", "admin"))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(9), body["userId"])
		assert.Equal(t, "root@example.com", body["email"])
	})

	t.Run("plain user is forbidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, tg, "user"))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAdminHandler_RefreshMeta(t *testing.T) {
	tg := auth.NewTokenGenerator("test-secret", time.Hour)

	t.Run("reloads the metadata file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "meta.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a"}]`), 0o644))

		meta := corpus.NewMetaCache(path)
		require.NoError(t, meta.Load())
		router := newAdminRouter(t, meta, tg)

		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a"},{"id":"b"}]`), 0o644))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/refresh-meta", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, tg, "admin"))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, float64(2), body["items"])
		assert.Equal(t, 2, meta.Len())
	})

	t.Run("unreadable file maps to 500", func(t *testing.T) {
		meta := corpus.NewMetaCache(filepath.Join(t.TempDir(), "absent.json"))
		router := newAdminRouter(t, meta, tg)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/refresh-meta", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, tg, "admin"))

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
