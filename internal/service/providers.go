package service

import (
	"context"

	"github.com/timmy/creatorkit/internal/domain"
)

// MetadataProvider returns live metadata for a video.
type MetadataProvider interface {
	GetVideo(ctx context.Context, videoID string) (*domain.VideoMetadata, error)
}

// TranscriptProvider returns timestamped caption segments for a video.
type TranscriptProvider interface {
	Fetch(ctx context.Context, videoID string) (domain.Segments, error)
}

// ImageProvider renders an image from a prompt.
type ImageProvider interface {
	Generate(ctx context.Context, prompt string) (*GeneratedImage, error)
}

// Completer performs a short non-streaming completion.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}
