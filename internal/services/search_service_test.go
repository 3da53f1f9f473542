package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

func TestSearchService_Search(t *testing.T) {
	logger := zap.NewNop()

	t.Run("missing query", func(t *testing.T) {
		svc := NewSearchService(&fakeRetriever{}, nil, logger)

		_, err := svc.Search(context.Background(), "  ", 5)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	})

	t.Run("k defaults and clamps", func(t *testing.T) {
		tests := []struct {
			name  string
			k     int
			wantK int
		}{
			{"zero defaults", 0, 5},
			{"negative defaults", -3, 5},
			{"in range passes through", 8, 8},
			{"above max clamps", 50, 20},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				retriever := &fakeRetriever{}
				svc := NewSearchService(retriever, nil, logger)

				_, err := svc.Search(context.Background(), "malware", tt.k)
				require.NoError(t, err)
				assert.Equal(t, tt.wantK, retriever.lastK)
			})
		}
	})

	t.Run("results carry bounded snippets", func(t *testing.T) {
		long := strings.Repeat("x", 1000)
		retriever := &fakeRetriever{passages: []models.Passage{
			{ID: "p1", Source: "krebs", Title: "Long", Text: long},
			{ID: "p2", Source: "hn", Title: "Short", Text: "brief"},
		}}
		svc := NewSearchService(retriever, nil, logger)

		resp, err := svc.Search(context.Background(), "q", 2)
		require.NoError(t, err)

		assert.Equal(t, 2, resp.Count)
		require.Len(t, resp.Results, 2)
		assert.Len(t, resp.Results[0].Snippet, 400)
		assert.Equal(t, "brief", resp.Results[1].Snippet)
		assert.Equal(t, "p1", resp.Results[0].ID)
	})

	t.Run("missing artifacts", func(t *testing.T) {
		retriever := &fakeRetriever{artifactsErr: apperrors.ErrConfiguration}
		svc := NewSearchService(retriever, nil, logger)

		_, err := svc.Search(context.Background(), "q", 5)
		assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
	})
}

func TestSearchService_SearchSummarized(t *testing.T) {
	logger := zap.NewNop()

	t.Run("not configured", func(t *testing.T) {
		svc := NewSearchService(&fakeRetriever{}, nil, logger)

		_, err := svc.SearchSummarized(context.Background(), "q", 5)
		assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
	})

	t.Run("summarizes retrieved passages", func(t *testing.T) {
		retriever := &fakeRetriever{passages: passageFixture(3)}
		svc := NewSearchService(retriever, &fakeSummarizer{answer: "summary [1]"}, logger)

		resp, err := svc.SearchSummarized(context.Background(), "q", 3)
		require.NoError(t, err)

		assert.Equal(t, SearchModeOpenAI, resp.Mode)
		assert.Equal(t, "summary [1]", resp.Answer)
		assert.Len(t, resp.Used, 3)
	})

	t.Run("summarizer failure propagates", func(t *testing.T) {
		retriever := &fakeRetriever{passages: passageFixture(1)}
		summarizer := &fakeSummarizer{err: apperrors.ErrSummarization}
		svc := NewSearchService(retriever, summarizer, logger)

		_, err := svc.SearchSummarized(context.Background(), "q", 1)
		assert.True(t, errors.Is(err, apperrors.ErrSummarization))
	})
}
