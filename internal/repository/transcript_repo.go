package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/timmy/creatorkit/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TranscriptRepository stores cached transcripts.
type TranscriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a new TranscriptRepository.
func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Get retrieves the cached transcript for (owner, video).
func (r *TranscriptRepository) Get(ctx context.Context, ownerUserID, videoID string) (*domain.Transcript, error) {
	var t domain.Transcript
	if err := r.db.WithContext(ctx).
		First(&t, "owner_user_id = ? AND video_id = ?", ownerUserID, videoID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertIfAbsent stores segments unless a transcript already exists for the pair.
// The unique (owner, video) index makes the check and insert a single statement.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerUserID: id of the owning user.
//   - videoID: external video id.
//   - segments: transcript segments to store.
//
// Returns:
//   - *domain.Transcript: the stored row, which is the earlier one if it already existed.
//   - bool: true if this call inserted the row.
//   - error: non-nil if the insert or lookup fails.
func (r *TranscriptRepository) InsertIfAbsent(ctx context.Context, ownerUserID, videoID string, segments domain.Segments) (*domain.Transcript, bool, error) {
	t := &domain.Transcript{
		ID:          uuid.New().String(),
		OwnerUserID: ownerUserID,
		VideoID:     videoID,
		Segments:    segments,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_user_id"}, {Name: "video_id"}},
		DoNothing: true,
	}).Create(t)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return t, true, nil
	}

	existing, err := r.Get(ctx, ownerUserID, videoID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ListVideoIDsByOwner returns the video ids that have a cached transcript.
func (r *TranscriptRepository) ListVideoIDsByOwner(ctx context.Context, ownerUserID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Transcript{}).
		Where("owner_user_id = ?", ownerUserID).
		Pluck("video_id", &ids).Error
	return ids, err
}
