package domain

import "time"

// JobStatus represents the status of a backfill job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCanceled  JobStatus = "canceled"
	JobStatusFailed    JobStatus = "failed"
)

// BackfillJob records one backfill run and its final counters.
type BackfillJob struct {
	ID               string     `gorm:"type:text;primaryKey" json:"id"`
	SourceID         string     `gorm:"type:text;not null;index" json:"source_id"`
	Status           JobStatus  `gorm:"type:text;not null" json:"status"`
	TotalItems       int64      `gorm:"default:0" json:"total_items"`
	ProcessedItems   int64      `gorm:"default:0" json:"processed_items"`
	SkippedItems     int64      `gorm:"default:0" json:"skipped_items"`
	FailedItems      int64      `gorm:"default:0" json:"failed_items"`
	CachedTranscript int64      `gorm:"default:0" json:"cached_transcript"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ErrorLog         string     `json:"error_log,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name for BackfillJob.
func (BackfillJob) TableName() string {
	return "backfill_jobs"
}
