package repository

import (
	"context"

	"github.com/timmy/creatorkit/internal/domain"
	"gorm.io/gorm"
)

// ImageRepository stores generated image records.
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create inserts a new image record.
func (r *ImageRepository) Create(ctx context.Context, image *domain.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// ListByVideo returns the owner's images for a video in creation order.
func (r *ImageRepository) ListByVideo(ctx context.Context, ownerUserID, videoID string) ([]domain.Image, error) {
	var images []domain.Image
	if err := r.db.WithContext(ctx).
		Where("owner_user_id = ? AND video_id = ?", ownerUserID, videoID).
		Order("created_at ASC").
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// CountByVideo returns how many images the owner has for a video.
func (r *ImageRepository) CountByVideo(ctx context.Context, ownerUserID, videoID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Image{}).
		Where("owner_user_id = ? AND video_id = ?", ownerUserID, videoID).
		Count(&count).Error
	return count, err
}

// Get retrieves one of the owner's images for a video by id.
func (r *ImageRepository) Get(ctx context.Context, ownerUserID, videoID, id string) (*domain.Image, error) {
	var image domain.Image
	if err := r.db.WithContext(ctx).
		First(&image, "id = ? AND owner_user_id = ? AND video_id = ?", id, ownerUserID, videoID).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// Delete removes one of the owner's images for a video. Missing rows are reported as not found.
func (r *ImageRepository) Delete(ctx context.Context, ownerUserID, videoID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_user_id = ? AND video_id = ?", id, ownerUserID, videoID).
		Delete(&domain.Image{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
