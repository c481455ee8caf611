package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/repository"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a shared provider fetch, which outlives any single caller.
const fetchTimeout = 60 * time.Second

// TranscriptResult is a transcript plus whether it came from the store.
type TranscriptResult struct {
	Segments domain.Segments `json:"transcript"`
	Cache    bool            `json:"cache"`
}

// TranscriptService serves transcripts with cache-first semantics.
type TranscriptService struct {
	repo     *repository.TranscriptRepository
	provider TranscriptProvider
	group    singleflight.Group
	logger   *logger.Logger
}

// NewTranscriptService creates a new transcript service.
func NewTranscriptService(repo *repository.TranscriptRepository, provider TranscriptProvider, log *logger.Logger) *TranscriptService {
	return &TranscriptService{repo: repo, provider: provider, logger: log}
}

func (s *TranscriptService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Get returns the stored transcript for (user, video) without fetching.
func (s *TranscriptService) Get(ctx context.Context, userID, videoID string) (*domain.Transcript, error) {
	t, err := s.repo.Get(ctx, userID, videoID)
	if repository.IsNotFound(err) {
		return nil, nil
	}
	return t, err
}

// Fetch returns the cached transcript when present. Otherwise it calls the
// provider once per (user, video) even under concurrent callers and stores
// the result. Provider failures degrade to an empty, unstored transcript.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - videoID: external video id.
//
// Returns:
//   - *TranscriptResult: segments and cache flag.
//   - error: non-nil only for store failures.
func (s *TranscriptService) Fetch(ctx context.Context, userID, videoID string) (*TranscriptResult, error) {
	cached, err := s.Get(ctx, userID, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if cached != nil {
		return &TranscriptResult{Segments: cached.Segments, Cache: true}, nil
	}

	// The flight is shared by every concurrent caller, so it must not die
	// with whichever caller happened to start it.
	ch := s.group.DoChan(userID+"|"+videoID, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.fetchAndStore(flightCtx, userID, videoID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TranscriptResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *TranscriptService) fetchAndStore(ctx context.Context, userID, videoID string) (*TranscriptResult, error) {
	segments, err := s.provider.Fetch(ctx, videoID)
	if err != nil {
		s.log(ctx).WithFields(logger.Fields{
			logger.FieldVideoID: videoID,
		}).WithError(err).Warn("Transcript provider failed, returning empty transcript")
		return &TranscriptResult{Segments: domain.Segments{}, Cache: false}, nil
	}
	if len(segments) == 0 {
		return &TranscriptResult{Segments: domain.Segments{}, Cache: false}, nil
	}

	stored, inserted, err := s.repo.InsertIfAbsent(ctx, userID, videoID, segments)
	if err != nil {
		return nil, fmt.Errorf("failed to store transcript: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldVideoID: videoID,
		logger.FieldCount:   len(stored.Segments),
		"inserted":          inserted,
	}).Info("Transcript fetched")

	return &TranscriptResult{Segments: stored.Segments, Cache: false}, nil
}
