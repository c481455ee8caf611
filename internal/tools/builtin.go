package tools

import (
	"context"

	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/auth"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/prompts"
	"github.com/timmy/creatorkit/internal/service"
)

const (
	TranscriptFetch = "transcript-fetch"
	ImageGenerate   = "image-generate"
	TitleGenerate   = "title-generate"
)

const genericFailure = prompts.GenericFailureMessage

// TranscriptFetcher returns the cached or freshly fetched transcript.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, userID, videoID string) (*service.TranscriptResult, error)
}

// ImageCreator generates an image and returns the video's full image list.
type ImageCreator interface {
	Generate(ctx context.Context, userID, videoID, prompt string) ([]domain.Image, error)
}

// TitleCreator generates and stores one title.
type TitleCreator interface {
	Generate(ctx context.Context, userID, videoID, summary, considerations string) (string, error)
}

type TranscriptInput struct {
	VideoID string `json:"videoId" jsonschema:"The YouTube video id to fetch the transcript for"`
}

type ImageInput struct {
	VideoID string `json:"videoId" jsonschema:"The YouTube video id the thumbnail belongs to"`
	Prompt  string `json:"prompt" jsonschema:"A detailed description of the image: subject, composition, colors and any text overlay"`
}

type TitleInput struct {
	VideoID        string `json:"videoId" jsonschema:"The YouTube video id to title"`
	VideoSummary   string `json:"videoSummary" jsonschema:"A short summary of what the video is about"`
	Considerations string `json:"considerations" jsonschema:"Extra requirements from the user such as tone, keywords or length; may be empty"`
}

// ImageResult is the image-generate payload.
type ImageResult struct {
	Success bool           `json:"success"`
	Images  []domain.Image `json:"images,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// TitleResult is the title-generate payload.
type TitleResult struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
	Error   string `json:"error,omitempty"`
}

// Dependencies are the services the built-in tools run against.
type Dependencies struct {
	Transcripts TranscriptFetcher
	Images      ImageCreator
	Titles      TitleCreator
}

// RegisterBuiltins adds transcript-fetch, image-generate and title-generate.
func RegisterBuiltins(r *Registry, deps Dependencies) error {
	transcript, err := NewTool(TranscriptFetch,
		"Fetch the transcript of the video as timestamped segments. Returns cache=true when it was loaded from the database.",
		func(ctx context.Context, in TranscriptInput) (any, error) {
			userID, err := currentUser(ctx)
			if err != nil {
				return nil, err
			}
			return deps.Transcripts.Fetch(ctx, userID, in.VideoID)
		})
	if err != nil {
		return err
	}

	image, err := NewTool(ImageGenerate,
		"Generate a thumbnail image for the video from a detailed prompt. Returns every image generated for the video so far.",
		func(ctx context.Context, in ImageInput) (any, error) {
			userID, err := currentUser(ctx)
			if err != nil {
				return nil, err
			}
			images, err := deps.Images.Generate(ctx, userID, in.VideoID, in.Prompt)
			if err != nil {
				return ImageResult{Success: false, Error: userMessage(err)}, nil
			}
			return ImageResult{Success: true, Images: images}, nil
		})
	if err != nil {
		return err
	}

	title, err := NewTool(TitleGenerate,
		"Generate a single title for the video from a summary and the user's considerations.",
		func(ctx context.Context, in TitleInput) (any, error) {
			userID, err := currentUser(ctx)
			if err != nil {
				return nil, err
			}
			text, err := deps.Titles.Generate(ctx, userID, in.VideoID, in.VideoSummary, in.Considerations)
			if err != nil {
				return TitleResult{Success: false, Error: userMessage(err)}, nil
			}
			return TitleResult{Success: true, Title: text}, nil
		})
	if err != nil {
		return err
	}

	for _, t := range []*Tool{transcript, image, title} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func currentUser(ctx context.Context) (string, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", apperr.New(apperr.ErrUnauthorized, "authentication required")
	}
	return userID, nil
}

// userMessage keeps entitlement and input messages and hides everything else.
func userMessage(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.ErrEntitlementDenied, apperr.ErrInvalidInput:
		return apperr.MessageOf(err)
	default:
		return genericFailure
	}
}
