package repository

import (
	"context"

	"github.com/timmy/creatorkit/internal/domain"
	"gorm.io/gorm"
)

// TitleRepository is an append-only log of generated titles.
type TitleRepository struct {
	db *gorm.DB
}

func NewTitleRepository(db *gorm.DB) *TitleRepository {
	return &TitleRepository{db: db}
}

func (r *TitleRepository) Create(ctx context.Context, title *domain.Title) error {
	return r.db.WithContext(ctx).Create(title).Error
}

// ListByVideo returns the owner's titles for a video in creation order.
func (r *TitleRepository) ListByVideo(ctx context.Context, ownerUserID, videoID string) ([]domain.Title, error) {
	var titles []domain.Title
	if err := r.db.WithContext(ctx).
		Where("owner_user_id = ? AND video_id = ?", ownerUserID, videoID).
		Order("created_at ASC").
		Find(&titles).Error; err != nil {
		return nil, err
	}
	return titles, nil
}
