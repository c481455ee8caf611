package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/timmy/creatorkit/internal/domain"
	"gorm.io/gorm"
)

// JobRepository persists backfill run records.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts job, assigning an id when it has none.
func (r *JobRepository) Create(ctx context.Context, job *domain.BackfillJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// Save writes every column of job.
func (r *JobRepository) Save(ctx context.Context, job *domain.BackfillJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// ListRecent returns the newest jobs first.
func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]domain.BackfillJob, error) {
	var jobs []domain.BackfillJob
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}
