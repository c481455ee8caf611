package source

import "context"

// VideoItem is one (user, video URL) pair to warm.
type VideoItem struct {
	SourceID string // Unique ID within the source
	UserID   string
	URL      string
}

// Source defines the interface for backfill inputs.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// FetchBatch fetches a batch of items starting from the given cursor.
	//
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	//
	// Returns:
	//   - items: batch of items.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []VideoItem, nextCursor string, err error)
}
