package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/repository"
	"github.com/timmy/creatorkit/internal/source"
)

// BackfillService warms video rows and transcripts for a list of
// (user, URL) pairs with a bounded worker pool.
type BackfillService struct {
	videos      *VideoService
	transcripts *TranscriptService
	jobs        *repository.JobRepository
	logger      *logger.Logger
	workers     int
	batchSize   int
}

// BackfillConfig holds configuration for the backfill service
type BackfillConfig struct {
	Workers   int
	BatchSize int
}

// NewBackfillService creates a new backfill service. jobs may be nil, in
// which case runs are not recorded.
func NewBackfillService(
	videos *VideoService,
	transcripts *TranscriptService,
	jobs *repository.JobRepository,
	log *logger.Logger,
	cfg *BackfillConfig,
) *BackfillService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &BackfillService{
		videos:      videos,
		transcripts: transcripts,
		jobs:        jobs,
		logger:      log,
		workers:     workers,
		batchSize:   batchSize,
	}
}

func (s *BackfillService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// BackfillStats holds statistics for a backfill run
type BackfillStats struct {
	TotalItems       int64
	ProcessedItems   int64
	SkippedItems     int64
	FailedItems      int64
	CachedTranscript int64
	EmptyTranscript  int64
	StartTime        time.Time
	EndTime          time.Time
}

type backfillResult struct {
	sourceID string
	skipped  bool
	cached   bool
	empty    bool
	err      error
}

// Run processes up to limit items from src. limit <= 0 means no limit.
func (s *BackfillService) Run(ctx context.Context, src source.Source, limit int) (*BackfillStats, error) {
	stats := &BackfillStats{StartTime: time.Now()}

	s.log(ctx).WithFields(logger.Fields{
		"source": src.GetSourceID(),
		"limit":  limit,
	}).Info("Starting backfill")

	job := s.startJob(ctx, src.GetSourceID(), stats.StartTime)

	itemsChan := make(chan source.VideoItem, s.workers*2)
	resultsChan := make(chan *backfillResult, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, itemsChan, resultsChan)
		}()
	}

	done := make(chan struct{})
	go func() {
		for result := range resultsChan {
			atomic.AddInt64(&stats.ProcessedItems, 1)
			switch {
			case result.skipped:
				atomic.AddInt64(&stats.SkippedItems, 1)
			case result.err != nil:
				atomic.AddInt64(&stats.FailedItems, 1)
				s.log(ctx).WithFields(logger.Fields{
					"source_id": result.sourceID,
				}).WithError(result.err).Error("Failed to backfill item")
			case result.cached:
				atomic.AddInt64(&stats.CachedTranscript, 1)
			case result.empty:
				atomic.AddInt64(&stats.EmptyTranscript, 1)
			}
		}
		close(done)
	}()

	cursor := ""
	totalFetched := 0
	var fetchErr error
fetch:
	for ctx.Err() == nil {
		batchLimit := s.batchSize
		if limit > 0 {
			remaining := limit - totalFetched
			if remaining <= 0 {
				break
			}
			if batchLimit > remaining {
				batchLimit = remaining
			}
		}

		items, nextCursor, err := src.FetchBatch(ctx, cursor, batchLimit)
		if err != nil {
			s.log(ctx).WithError(err).Error("Failed to fetch batch")
			fetchErr = err
			break
		}
		if len(items) == 0 {
			break
		}

		atomic.AddInt64(&stats.TotalItems, int64(len(items)))
		totalFetched += len(items)

		for _, item := range items {
			select {
			case itemsChan <- item:
			case <-ctx.Done():
				break fetch
			}
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	close(itemsChan)
	wg.Wait()
	close(resultsChan)
	<-done

	stats.EndTime = time.Now()

	s.log(ctx).WithFields(logger.Fields{
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"skipped":   stats.SkippedItems,
		"failed":    stats.FailedItems,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Backfill completed")

	s.finishJob(ctx, job, stats, fetchErr)

	return stats, ctx.Err()
}

// startJob records a running job. It ignores cancellation of ctx so that a
// canceled run is still recorded; failures leave the run unrecorded.
func (s *BackfillService) startJob(ctx context.Context, sourceID string, started time.Time) *domain.BackfillJob {
	if s.jobs == nil {
		return nil
	}
	job := &domain.BackfillJob{
		SourceID:  sourceID,
		Status:    domain.JobStatusRunning,
		StartedAt: started,
	}
	if err := s.jobs.Create(context.WithoutCancel(ctx), job); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record backfill job")
		return nil
	}
	return job
}

func (s *BackfillService) finishJob(ctx context.Context, job *domain.BackfillJob, stats *BackfillStats, fetchErr error) {
	if job == nil {
		return
	}
	job.TotalItems = stats.TotalItems
	job.ProcessedItems = stats.ProcessedItems
	job.SkippedItems = stats.SkippedItems
	job.FailedItems = stats.FailedItems
	job.CachedTranscript = stats.CachedTranscript
	completed := stats.EndTime
	job.CompletedAt = &completed

	switch {
	case ctx.Err() != nil:
		job.Status = domain.JobStatusCanceled
	case fetchErr != nil:
		job.Status = domain.JobStatusFailed
		job.ErrorLog = fetchErr.Error()
	default:
		job.Status = domain.JobStatusCompleted
	}

	if err := s.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		s.log(ctx).WithError(err).WithField("job_id", job.ID).Warn("Failed to update backfill job")
	}
}

// RecentJobs returns the latest recorded runs, newest first.
func (s *BackfillService) RecentJobs(ctx context.Context, limit int) ([]domain.BackfillJob, error) {
	if s.jobs == nil {
		return nil, nil
	}
	return s.jobs.ListRecent(ctx, limit)
}

func (s *BackfillService) worker(ctx context.Context, items <-chan source.VideoItem, results chan<- *backfillResult) {
	for item := range items {
		result := &backfillResult{sourceID: item.SourceID}
		if ctx.Err() != nil {
			result.skipped = true
			results <- result
			continue
		}

		itemCtx := logger.SetUserID(ctx, item.UserID)
		videoID, err := s.videos.Analyze(itemCtx, item.UserID, item.URL)
		if err != nil {
			// Unparseable or missing videos are input problems, not failures.
			if apperr.Is(err, apperr.ErrInvalidInput) || apperr.Is(err, apperr.ErrNotFound) {
				result.skipped = true
			} else {
				result.err = err
			}
			results <- result
			continue
		}

		transcript, err := s.transcripts.Fetch(logger.SetVideoID(itemCtx, videoID), item.UserID, videoID)
		if err != nil {
			result.err = err
		} else {
			result.cached = transcript.Cache
			result.empty = len(transcript.Segments) == 0
		}
		results <- result
	}
}
