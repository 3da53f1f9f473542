package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

// Summarizer produces a natural-language answer from a question and its
// supporting passages. The production implementation calls an external LLM API.
type Summarizer interface {
	// Summarize returns an answer citing passages by their 1-based bracketed index
	Summarize(ctx context.Context, question string, passages []models.Passage) (string, error)
}

const (
	// summaryContextPassages bounds how many passages go into the prompt
	summaryContextPassages = 6
	// summarySnippetLimit bounds each passage snippet to keep the prompt small
	summarySnippetLimit = 800

	summarySystemPrompt = `You are a security analyst. Write a clear, concise answer (5-8 sentences) to the user's question using only the provided passages.
Cite sources inline as [1], [2], etc., matching the numbers shown before each passage.
If information is insufficient, say so briefly. Keep it non-fluffy, actionable, and accurate.`
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// openaiSummarizer implements Summarizer over the OpenAI chat completions API
type openaiSummarizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAISummarizer creates a summarizer backed by the OpenAI API
func NewOpenAISummarizer(apiKey, model string, logger *zap.Logger) *openaiSummarizer {
	return &openaiSummarizer{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Summarize builds the numbered-passage prompt and requests a completion.
// Temperature is kept low for determinism-leaning output.
func (s *openaiSummarizer) Summarize(ctx context.Context, question string, passages []models.Passage) (string, error) {
	contextBlock := buildPassageContext(passages)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Question: %s\n\nPassages:\n%s", question, contextBlock)},
		},
		Temperature: 0.2,
		MaxTokens:   600,
	})
	if err != nil {
		s.logger.Error("summarization call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperrors.ErrSummarization, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", apperrors.ErrSummarization)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: empty completion", apperrors.ErrSummarization)
	}
	return answer, nil
}

// buildPassageContext renders passages as numbered blocks matching the citation indices
func buildPassageContext(passages []models.Passage) string {
	if len(passages) > summaryContextPassages {
		passages = passages[:summaryContextPassages]
	}

	blocks := make([]string, 0, len(passages))
	for i, p := range passages {
		title := p.Title
		if title == "" {
			title = p.ResolvedURL()
		}
		if title == "" {
			title = "Untitled"
		}
		snippet := truncate(collapseWhitespace(p.Text), summarySnippetLimit)
		blocks = append(blocks, fmt.Sprintf("[#%d] %s\n%s\n%s", i+1, title, p.ResolvedURL(), snippet))
	}
	return strings.Join(blocks, "\n\n")
}

// collapseWhitespace squashes runs of whitespace to single spaces
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// truncate cuts s to at most n bytes
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
