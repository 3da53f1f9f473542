package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
	"github.com/threatdash/backend/internal/retrieval"
)

const (
	searchDefaultK = 5
	searchMaxK     = 20
	// searchSnippetLimit bounds each result snippet
	searchSnippetLimit = 400
)

// SearchModeSnippets returns lightweight results; SearchModeOpenAI additionally
// summarizes the hits when an external summarizer is configured.
const (
	SearchModeSnippets = "snippets"
	SearchModeOpenAI   = "openai"
)

// OpenAISearchResponse is the body of GET /api/search in openai mode
type OpenAISearchResponse struct {
	Mode   string                `json:"mode"`
	Answer string                `json:"answer"`
	Used   []models.SearchResult `json:"used"`
}

// searchService implements index search over the injected retriever
type searchService struct {
	retriever  retrieval.Retriever
	summarizer Summarizer // nil when no external summarizer is configured
	logger     *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(retriever retrieval.Retriever, summarizer Summarizer, logger *zap.Logger) *searchService {
	return &searchService{
		retriever:  retriever,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Search returns the top-k passages for q as lightweight results
func (s *searchService) Search(ctx context.Context, q string, k int) (*models.SearchResponse, error) {
	passages, err := s.retrieve(ctx, q, k)
	if err != nil {
		return nil, err
	}

	results := toSearchResults(passages)
	return &models.SearchResponse{
		Count:   len(results),
		Results: results,
	}, nil
}

// SearchSummarized retrieves the top-k passages and summarizes them in one call
func (s *searchService) SearchSummarized(ctx context.Context, q string, k int) (*OpenAISearchResponse, error) {
	if s.summarizer == nil {
		return nil, fmt.Errorf("%w: openai mode is not configured", apperrors.ErrConfiguration)
	}

	passages, err := s.retrieve(ctx, q, k)
	if err != nil {
		return nil, err
	}

	answer, err := s.summarizer.Summarize(ctx, q, passages)
	if err != nil {
		return nil, err
	}

	return &OpenAISearchResponse{
		Mode:   SearchModeOpenAI,
		Answer: answer,
		Used:   toSearchResults(passages),
	}, nil
}

func (s *searchService) retrieve(ctx context.Context, q string, k int) ([]models.Passage, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: missing q", apperrors.ErrValidation)
	}
	if k <= 0 {
		k = searchDefaultK
	}
	if k > searchMaxK {
		k = searchMaxK
	}

	if err := s.retriever.CheckArtifacts(); err != nil {
		return nil, err
	}
	return s.retriever.Search(ctx, q, k)
}

func toSearchResults(passages []models.Passage) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(passages))
	for _, p := range passages {
		results = append(results, models.SearchResult{
			ID:      p.ID,
			Source:  p.Source,
			Title:   p.Title,
			Snippet: truncate(p.Text, searchSnippetLimit),
		})
	}
	return results
}
