package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timmy/creatorkit/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// VideoRepository handles video association records.
type VideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// FindOrCreate returns the (owner, video) row, inserting it on first use.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerUserID: id of the requesting user.
//   - videoID: external video id.
//
// Returns:
//   - *domain.Video: the existing or newly created row.
//   - bool: true if the row was created by this call.
//   - error: non-nil if the insert or lookup fails.
func (r *VideoRepository) FindOrCreate(ctx context.Context, ownerUserID, videoID string) (*domain.Video, bool, error) {
	video := &domain.Video{
		ID:          uuid.New().String(),
		OwnerUserID: ownerUserID,
		VideoID:     videoID,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_user_id"}, {Name: "video_id"}},
		DoNothing: true,
	}).Create(video)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return video, true, nil
	}

	existing, err := r.Get(ctx, ownerUserID, videoID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Get retrieves the owner's row for a video.
func (r *VideoRepository) Get(ctx context.Context, ownerUserID, videoID string) (*domain.Video, error) {
	var video domain.Video
	if err := r.db.WithContext(ctx).
		First(&video, "owner_user_id = ? AND video_id = ?", ownerUserID, videoID).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

// ListByOwner returns all of a user's videos, newest first.
func (r *VideoRepository) ListByOwner(ctx context.Context, ownerUserID string, limit, offset int) ([]domain.Video, error) {
	var videos []domain.Video
	query := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// CountByOwner returns the number of videos a user has analyzed.
func (r *VideoRepository) CountByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Video{}).Where("owner_user_id = ?", ownerUserID).Count(&count).Error
	return count, err
}
