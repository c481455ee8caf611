package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/entitlement"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/prompts"
	"github.com/timmy/creatorkit/internal/repository"
	"github.com/timmy/creatorkit/internal/storage"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	previewWidth  = 480
	maxTitleChars = 80
)

// ImageServiceConfig names the metered feature and usage event.
type ImageServiceConfig struct {
	Feature string
	Event   string
}

// ImageService generates thumbnails, stores them and lists them with URLs.
type ImageService struct {
	repo        *repository.ImageRepository
	storage     storage.ObjectStorage
	generator   ImageProvider
	entitlement entitlement.Checker
	feature     string
	event       string
	logger      *logger.Logger
}

// NewImageService creates a new image service.
func NewImageService(
	repo *repository.ImageRepository,
	objectStorage storage.ObjectStorage,
	generator ImageProvider,
	checker entitlement.Checker,
	log *logger.Logger,
	cfg *ImageServiceConfig,
) *ImageService {
	return &ImageService{
		repo:        repo,
		storage:     objectStorage,
		generator:   generator,
		entitlement: checker,
		feature:     cfg.Feature,
		event:       cfg.Event,
		logger:      log,
	}
}

func (s *ImageService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Generate checks the user's entitlement, renders an image, stores the asset
// and its record, and returns the video's full image list.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - videoID: external video id.
//   - prompt: image description.
//
// Returns:
//   - []domain.Image: all of the user's images for the video, URLs resolved.
//   - error: ErrEntitlementDenied when over quota, ErrUpstream for provider failures.
func (s *ImageService) Generate(ctx context.Context, userID, videoID, prompt string) ([]domain.Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "An image prompt is required")
	}

	decision, err := s.entitlement.Check(ctx, userID, s.feature)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstream, prompts.GenericFailureMessage, err)
	}
	if decision.Denied() {
		s.log(ctx).WithFields(logger.Fields{
			"usage":      decision.Usage,
			"allocation": decision.Allocation,
		}).Info("Image generation denied by entitlement")
		return nil, apperr.New(apperr.ErrEntitlementDenied, prompts.ImageQuotaMessage)
	}

	generated, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstream, prompts.GenericFailureMessage, err)
	}

	record, err := s.store(ctx, userID, videoID, prompt, generated.Data)
	if err != nil {
		return nil, err
	}

	if err := s.entitlement.Track(ctx, userID, s.event, 1); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to track image usage")
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldVideoID: videoID,
		logger.FieldSize:    record.FileSize,
		"image_id":          record.ID,
	}).Info("Image generated")

	return s.List(ctx, userID, videoID)
}

func (s *ImageService) store(ctx context.Context, userID, videoID, prompt string, data []byte) (*domain.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstream, prompts.GenericFailureMessage, fmt.Errorf("decode generated image: %w", err))
	}

	id := uuid.New().String()
	key := fmt.Sprintf("images/%s/%s/%s.png", userID, videoID, id)
	previewKey := fmt.Sprintf("images/%s/%s/%s_preview.png", userID, videoID, id)

	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "image/png"); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	preview, err := makePreview(img, previewWidth)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to build preview")
		previewKey = ""
	} else if err := s.storage.Upload(ctx, previewKey, bytes.NewReader(preview), int64(len(preview)), "image/png"); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to upload preview")
		previewKey = ""
	}

	bounds := img.Bounds()
	record := &domain.Image{
		ID:          id,
		OwnerUserID: userID,
		VideoID:     videoID,
		StorageKey:  key,
		PreviewKey:  previewKey,
		Title:       imageTitle(prompt),
		Description: prompt,
		Kind:        domain.ImageKindDalle,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		FileSize:    int64(len(data)),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}
	return record, nil
}

// List returns the user's images for a video with fetchable URLs.
func (s *ImageService) List(ctx context.Context, userID, videoID string) ([]domain.Image, error) {
	images, err := s.repo.ListByVideo(ctx, userID, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	for i := range images {
		s.resolveURLs(ctx, &images[i])
	}
	return images, nil
}

func (s *ImageService) resolveURLs(ctx context.Context, img *domain.Image) {
	if url, err := s.storage.GetURL(ctx, img.StorageKey); err == nil {
		img.URL = url
	} else {
		s.log(ctx).WithError(err).Warn("Failed to resolve image URL")
	}
	if img.PreviewKey != "" {
		if url, err := s.storage.GetURL(ctx, img.PreviewKey); err == nil {
			img.PreviewURL = url
		}
	}
}

// Delete removes one of the user's images for a video and its stored assets.
func (s *ImageService) Delete(ctx context.Context, userID, videoID, imageID string) error {
	img, err := s.repo.Get(ctx, userID, videoID, imageID)
	if repository.IsNotFound(err) {
		return apperr.New(apperr.ErrNotFound, "Image not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	for _, key := range []string{img.StorageKey, img.PreviewKey} {
		if key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			s.log(ctx).WithError(err).WithField("key", key).Warn("Failed to delete image object")
		}
	}

	if err := s.repo.Delete(ctx, userID, videoID, imageID); err != nil {
		if repository.IsNotFound(err) {
			return apperr.New(apperr.ErrNotFound, "Image not found")
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// makePreview scales img to width pixels wide and encodes it as PNG.
func makePreview(img image.Image, width int) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if b.Dx() < width {
		width = b.Dx()
	}
	height := b.Dy() * width / b.Dx()
	if height == 0 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func imageTitle(prompt string) string {
	if utf8.RuneCountInString(prompt) <= maxTitleChars {
		return prompt
	}
	return strings.TrimSpace(string([]rune(prompt)[:maxTitleChars])) + "…"
}
