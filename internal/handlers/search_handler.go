package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/models"
	"github.com/threatdash/backend/internal/services"
)

// SearchService is the interface that wraps methods for index search.
type SearchService interface {
	// Method Search returns the top-k passages for q as lightweight results.
	Search(ctx context.Context, q string, k int) (*models.SearchResponse, error)
	// Method SearchSummarized retrieves the top-k passages and summarizes them
	// in one call. Fails with apperrors.ErrConfiguration when no summarizer is
	// configured.
	SearchSummarized(ctx context.Context, q string, k int) (*services.OpenAISearchResponse, error)
}

// SearchHandler handles index search HTTP requests
type SearchHandler struct {
	BaseHandler
	searchService SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		BaseHandler:   BaseHandler{Logger: logger},
		searchService: searchService,
	}
}

// RegisterRoutes registers all search handler routes. The passed router must
// already carry the auth middleware.
func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/search", h.Search)
}

// Search handles GET /search
// @Summary Search the indexed corpus
// @Description Semantic search over the passage index. mode=openai additionally summarizes the hits.
// @Tags search
// @Produce json
// @Security BearerAuth
// @Param q query string true "Query text"
// @Param k query int false "Result count, 1-20" default(5)
// @Param mode query string false "snippets or openai" default(snippets)
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} map[string]string "Missing q"
// @Router /search [get]
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))

	if r.URL.Query().Get("mode") == services.SearchModeOpenAI {
		resp, err := h.searchService.SearchSummarized(r.Context(), q, k)
		if err != nil {
			h.Logger.Error("summarized search failed", zap.Error(err))
			h.RespondAppError(w, err)
			return
		}
		h.RespondJSON(w, http.StatusOK, resp)
		return
	}

	resp, err := h.searchService.Search(r.Context(), q, k)
	if err != nil {
		h.Logger.Error("search failed", zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}
