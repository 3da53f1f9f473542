package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/models"
)

// AskService is the interface that wraps the question-answering logic.
type AskService interface {
	// Method Ask retrieves the top passages for the question and produces an
	// answer with a citation list.
	Ask(ctx context.Context, question string) (*models.AskResponse, error)
}

// AskHandler handles retrieval-augmented question HTTP requests
type AskHandler struct {
	BaseHandler
	askService AskService
}

// NewAskHandler creates a new ask handler
func NewAskHandler(askService AskService, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		BaseHandler: BaseHandler{Logger: logger},
		askService:  askService,
	}
}

// RegisterRoutes registers all ask handler routes. The passed router must
// already carry the auth middleware.
func (h *AskHandler) RegisterRoutes(r chi.Router) {
	r.Post("/ask", h.Ask)
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /ask
// @Summary Ask a question over the indexed corpus
// @Description Retrieves the most relevant passages and answers with either an LLM summary or a local extractive digest, plus citations.
// @Tags ask
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body askRequest true "Question"
// @Success 200 {object} models.AskResponse
// @Failure 400 {object} map[string]string "Question missing"
// @Failure 500 {object} map[string]string "Retrieval or summarization failed"
// @Router /ask [post]
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.askService.Ask(r.Context(), req.Question)
	if err != nil {
		h.Logger.Error("ask failed", zap.Error(err))
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}
