package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/prompts"
	"github.com/timmy/creatorkit/internal/repository"
)

const maxTitleRunes = 100

// TitleService generates and records video titles.
type TitleService struct {
	repo      *repository.TitleRepository
	completer Completer
	model     string
	logger    *logger.Logger
}

// NewTitleService creates a new title service.
func NewTitleService(repo *repository.TitleRepository, completer Completer, model string, log *logger.Logger) *TitleService {
	return &TitleService{repo: repo, completer: completer, model: model, logger: log}
}

// Generate asks the model for one title and appends it to the video's titles.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - videoID: external video id.
//   - summary: what the video is about.
//   - considerations: optional tone or keyword guidance.
//
// Returns:
//   - string: the cleaned title.
//   - error: non-nil if the completion fails, is empty, or cannot be stored.
func (s *TitleService) Generate(ctx context.Context, userID, videoID, summary, considerations string) (string, error) {
	if strings.TrimSpace(summary) == "" {
		return "", errors.New("video summary is required")
	}

	raw, err := s.completer.Complete(ctx, &CompletionRequest{
		Model: s.model,
		Messages: []ChatMessage{
			{Role: "system", Content: prompts.TitleSystemPrompt},
			{Role: "user", Content: prompts.BuildTitleUserPrompt(summary, considerations)},
		},
		MaxTokens:   60,
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}

	title := CleanTitle(raw)
	if title == "" {
		return "", errors.New("model returned an empty title")
	}

	if err := s.repo.Create(ctx, &domain.Title{
		ID:          uuid.New().String(),
		OwnerUserID: userID,
		VideoID:     videoID,
		Text:        title,
	}); err != nil {
		return "", fmt.Errorf("failed to store title: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldVideoID: videoID,
	}).Info(ctx, "Title generated")

	return title, nil
}

// List returns the user's titles for a video.
func (s *TitleService) List(ctx context.Context, userID, videoID string) ([]domain.Title, error) {
	return s.repo.ListByVideo(ctx, userID, videoID)
}

// CleanTitle keeps the first non-empty line and strips labels and quotes.
func CleanTitle(raw string) string {
	var line string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = strings.TrimPrefix(line, "Title:")
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "\"'“”‘’`*")
	line = strings.TrimSpace(line)

	runes := []rune(line)
	if len(runes) > maxTitleRunes {
		line = strings.TrimSpace(string(runes[:maxTitleRunes]))
	}
	return line
}
