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
	// askTopK is how many passages are requested from the index per question
	askTopK = 6
	// askCitationLimit bounds the citation list returned to the caller
	askCitationLimit = 10
	// localSummaryPassages is how many passages the extractive digest uses
	localSummaryPassages = 4
	// localSnippetLimit bounds each digest bullet's snippet
	localSnippetLimit = 220

	// noPassagesAnswer is returned verbatim when retrieval comes back empty
	noPassagesAnswer = "I couldn't find relevant passages."
)

// askService answers free-text questions over the pre-built passage index.
// Retrieval always goes through the injected Retriever; the answer comes from
// the external summarizer when one is configured, otherwise from a local
// extractive digest. When a summarizer is configured its failure fails the
// whole ask; there is no silent fallback to the local path.
type askService struct {
	retriever  retrieval.Retriever
	summarizer Summarizer // nil when no external summarizer is configured
	logger     *zap.Logger
}

// NewAskService creates a new ask service. Pass a nil summarizer to answer
// with the local extractive digest.
func NewAskService(retriever retrieval.Retriever, summarizer Summarizer, logger *zap.Logger) *askService {
	return &askService{
		retriever:  retriever,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Ask retrieves the top passages for the question and produces an answer with
// a trimmed citation list
func (s *askService) Ask(ctx context.Context, question string) (*models.AskResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question required", apperrors.ErrValidation)
	}

	if err := s.retriever.CheckArtifacts(); err != nil {
		return nil, err
	}

	// Single blocking external dependency; completes or fails as a unit
	passages, err := s.retriever.Search(ctx, question, askTopK)
	if err != nil {
		return nil, err
	}

	var answer string
	if s.summarizer != nil {
		answer, err = s.summarizer.Summarize(ctx, question, passages)
		if err != nil {
			return nil, err
		}
	} else {
		answer = localSummary(passages)
	}

	return &models.AskResponse{
		Answer:    answer,
		Citations: buildCitations(passages, askCitationLimit),
	}, nil
}

// localSummary emits a fixed-format bulleted digest of the top passages,
// usable offline without any external API
func localSummary(passages []models.Passage) string {
	if len(passages) > localSummaryPassages {
		passages = passages[:localSummaryPassages]
	}
	if len(passages) == 0 {
		return noPassagesAnswer
	}

	seen := make(map[string]struct{})
	var sites []string
	var bullets []string
	for i, p := range passages {
		if src := p.ResolvedSource(); src != "" {
			if _, ok := seen[src]; !ok {
				seen[src] = struct{}{}
				sites = append(sites, src)
			}
		}

		title := p.Title
		if title == "" {
			title = p.ResolvedURL()
		}
		if title == "" {
			title = "Untitled"
		}
		snippet := collapseWhitespace(p.Text)
		cut := len(snippet) > localSnippetLimit
		snippet = truncate(snippet, localSnippetLimit)
		if cut {
			snippet += "…"
		}
		bullets = append(bullets, fmt.Sprintf("- [%d] %s — %s", i+1, title, snippet))
	}

	sources := strings.Join(sites, ", ")
	if sources == "" {
		sources = "various sources"
	}

	return fmt.Sprintf(
		"Based on %d retrieved documents from %s, here's a concise summary:\n\n%s\n\n(See citations [1..%d] below.)",
		len(passages), sources, strings.Join(bullets, "\n"), len(passages),
	)
}

// buildCitations trims passages to the citation list shape, keeping the
// retriever's relevance order and 1-based numbering
func buildCitations(passages []models.Passage, limit int) []models.Citation {
	if len(passages) > limit {
		passages = passages[:limit]
	}

	citations := make([]models.Citation, 0, len(passages))
	for i, p := range passages {
		citations = append(citations, models.Citation{
			Index:  i + 1,
			ID:     p.ID,
			Title:  p.Title,
			Source: p.ResolvedSource(),
			URL:    p.ResolvedURL(),
		})
	}
	return citations
}
