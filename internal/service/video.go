package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/repository"
	"github.com/timmy/creatorkit/internal/youtube"
)

// VideoService handles video analysis requests and per-video overviews.
type VideoService struct {
	videos      *repository.VideoRepository
	metadata    MetadataProvider
	transcripts *TranscriptService
	titles      *TitleService
	images      *ImageService
	logger      *logger.Logger
}

// NewVideoService creates a new video service.
func NewVideoService(
	videos *repository.VideoRepository,
	metadata MetadataProvider,
	transcripts *TranscriptService,
	titles *TitleService,
	images *ImageService,
	log *logger.Logger,
) *VideoService {
	return &VideoService{
		videos:      videos,
		metadata:    metadata,
		transcripts: transcripts,
		titles:      titles,
		images:      images,
		logger:      log,
	}
}

func (s *VideoService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Analyze derives the video id from rawURL, confirms the video exists and,
// when userID is set, records the (user, video) association.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user, or empty to skip persistence.
//   - rawURL: any supported YouTube URL form.
//
// Returns:
//   - string: the derived video id.
//   - error: ErrInvalidInput for unparseable URLs, ErrNotFound when the
//     video has no metadata, ErrUpstream for provider failures.
func (s *VideoService) Analyze(ctx context.Context, userID, rawURL string) (string, error) {
	videoID, err := youtube.ParseVideoID(rawURL)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalidInput, "Please enter a valid YouTube video URL", err)
	}

	if _, err := s.Metadata(ctx, videoID); err != nil {
		return "", err
	}

	if userID == "" {
		return videoID, nil
	}

	_, created, err := s.videos.FindOrCreate(ctx, userID, videoID)
	if err != nil {
		return "", fmt.Errorf("failed to save video: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldVideoID: videoID,
		"created":           created,
	}).Info("Video analyzed")

	return videoID, nil
}

// Metadata fetches live metadata, mapping provider errors to coded errors.
func (s *VideoService) Metadata(ctx context.Context, videoID string) (*domain.VideoMetadata, error) {
	meta, err := s.metadata.GetVideo(ctx, videoID)
	if errors.Is(err, youtube.ErrVideoNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "Video not found", err)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstream, "Failed to fetch video details, please try again later", err)
	}
	return meta, nil
}

// List returns a page of the user's analyzed videos, newest first, and
// the user's total video count.
func (s *VideoService) List(ctx context.Context, userID string, limit, offset int) ([]domain.Video, int64, error) {
	videos, err := s.videos.ListByOwner(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list videos: %w", err)
	}
	total, err := s.videos.CountByOwner(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return videos, total, nil
}

// VideoOverview is everything the analysis view shows for one video.
type VideoOverview struct {
	Video      *domain.Video         `json:"video"`
	Metadata   *domain.VideoMetadata `json:"metadata"`
	Transcript domain.Segments       `json:"transcript"`
	Titles     []domain.Title        `json:"titles"`
	Images     []domain.Image        `json:"images"`
}

// Overview returns the user's stored data for a video plus live metadata.
// The cached transcript is returned as-is; nothing is fetched for it.
func (s *VideoService) Overview(ctx context.Context, userID, videoID string) (*VideoOverview, error) {
	video, err := s.videos.Get(ctx, userID, videoID)
	if repository.IsNotFound(err) {
		return nil, apperr.New(apperr.ErrNotFound, "Video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}

	meta, err := s.Metadata(ctx, videoID)
	if err != nil {
		return nil, err
	}

	overview := &VideoOverview{Video: video, Metadata: meta, Transcript: domain.Segments{}}

	transcript, err := s.transcripts.Get(ctx, userID, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	if transcript != nil {
		overview.Transcript = transcript.Segments
	}

	if overview.Titles, err = s.titles.List(ctx, userID, videoID); err != nil {
		return nil, fmt.Errorf("failed to load titles: %w", err)
	}
	if overview.Images, err = s.images.List(ctx, userID, videoID); err != nil {
		return nil, err
	}
	return overview, nil
}
