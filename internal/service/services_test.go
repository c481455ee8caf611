package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/entitlement"
	"github.com/timmy/creatorkit/internal/prompts"
	"github.com/timmy/creatorkit/internal/repository"
)

func TestTranscriptFetchCachesSecondCall(t *testing.T) {
	ctx := context.Background()
	provider := &fakeTranscripts{segments: domain.Segments{{Text: "hi", Timestamp: "0:00"}, {Text: "there", Timestamp: "0:02"}}}
	svc := NewTranscriptService(repository.NewTranscriptRepository(newTestDB(t)), provider, testLogger())

	first, err := svc.Fetch(ctx, "user_1", "vid")
	require.NoError(t, err)
	assert.False(t, first.Cache)
	assert.Equal(t, provider.segments, first.Segments)

	second, err := svc.Fetch(ctx, "user_1", "vid")
	require.NoError(t, err)
	assert.True(t, second.Cache)
	assert.Equal(t, first.Segments, second.Segments)
	assert.EqualValues(t, 1, provider.calls)

	// Cache is per user.
	other, err := svc.Fetch(ctx, "user_2", "vid")
	require.NoError(t, err)
	assert.False(t, other.Cache)
	assert.EqualValues(t, 2, provider.calls)
}

func TestTranscriptProviderFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	provider := &fakeTranscripts{err: errors.New("captions disabled")}
	svc := NewTranscriptService(repository.NewTranscriptRepository(newTestDB(t)), provider, testLogger())

	res, err := svc.Fetch(ctx, "user_1", "vid")
	require.NoError(t, err)
	assert.False(t, res.Cache)
	assert.Empty(t, res.Segments)

	stored, err := svc.Get(ctx, "user_1", "vid")
	require.NoError(t, err)
	assert.Nil(t, stored, "empty transcripts are not cached")

	_, err = svc.Fetch(ctx, "user_1", "vid")
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.calls)
}

func TestTranscriptConcurrentFetchCallsProviderOnce(t *testing.T) {
	ctx := context.Background()
	provider := &fakeTranscripts{
		segments: domain.Segments{{Text: "x", Timestamp: "0:00"}},
		block:    make(chan struct{}),
	}
	svc := NewTranscriptService(repository.NewTranscriptRepository(newTestDB(t)), provider, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Fetch(ctx, "user_1", "vid")
			assert.NoError(t, err)
			assert.Len(t, res.Segments, 1)
		}()
	}
	// Let the goroutines pile up on the in-flight call before releasing it.
	for atomic.LoadInt32(&provider.calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	close(provider.block)
	wg.Wait()

	assert.LessOrEqual(t, int(provider.calls), 5)
	stored, err := svc.Get(ctx, "user_1", "vid")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestTranscriptFetchSurvivesFirstCallerCancel(t *testing.T) {
	provider := &fakeTranscripts{
		segments: domain.Segments{{Text: "x", Timestamp: "0:00"}},
		block:    make(chan struct{}),
	}
	svc := NewTranscriptService(repository.NewTranscriptRepository(newTestDB(t)), provider, testLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Fetch(firstCtx, "user_1", "vid")
		firstErr <- err
	}()
	for atomic.LoadInt32(&provider.calls) == 0 {
		time.Sleep(time.Millisecond)
	}

	second := make(chan *TranscriptResult, 1)
	go func() {
		res, err := svc.Fetch(context.Background(), "user_1", "vid")
		assert.NoError(t, err)
		second <- res
	}()
	// Give the second caller time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(provider.block)
	res := <-second
	require.NotNil(t, res)
	assert.Len(t, res.Segments, 1)

	stored, err := svc.Get(context.Background(), "user_1", "vid")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.EqualValues(t, 1, atomic.LoadInt32(&provider.calls))
}

func newImageService(t *testing.T, ent *fakeEntitlement, gen *fakeImages) (*ImageService, *memoryStorage, *repository.ImageRepository) {
	t.Helper()
	repo := repository.NewImageRepository(newTestDB(t))
	store := newMemoryStorage()
	svc := NewImageService(repo, store, gen, ent, testLogger(), &ImageServiceConfig{Feature: "image-generation", Event: "generate-image"})
	return svc, store, repo
}

func TestImageGenerateDeniedAtQuota(t *testing.T) {
	ctx := context.Background()
	ent := &fakeEntitlement{decision: entitlement.Decision{Allowed: true, Usage: 10, Allocation: 10}}
	gen := &fakeImages{data: testPNG(t, 64, 36)}
	svc, store, repo := newImageService(t, ent, gen)

	_, err := svc.Generate(ctx, "user_1", "vid", "a bold thumbnail")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrEntitlementDenied))
	assert.Equal(t, prompts.ImageQuotaMessage, apperr.MessageOf(err))

	assert.Zero(t, gen.calls)
	assert.Zero(t, store.count())
	count, err := repo.CountByVideo(ctx, "user_1", "vid")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImageGenerateStoresAndLists(t *testing.T) {
	ctx := context.Background()
	ent := &fakeEntitlement{decision: entitlement.Decision{Allowed: true, Usage: 1, Allocation: 10}}
	gen := &fakeImages{data: testPNG(t, 960, 540)}
	svc, store, _ := newImageService(t, ent, gen)

	images, err := svc.Generate(ctx, "user_1", "vid", "a bold thumbnail")
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, domain.ImageKindDalle, img.Kind)
	assert.Equal(t, "a bold thumbnail", img.Description)
	assert.Equal(t, 960, img.Width)
	assert.Equal(t, 540, img.Height)
	assert.Equal(t, "https://cdn.test/"+img.StorageKey, img.URL)
	assert.NotEmpty(t, img.PreviewURL)
	assert.Equal(t, 2, store.count())
	assert.EqualValues(t, 1, ent.tracked)

	images, err = svc.Generate(ctx, "user_1", "vid", "another idea")
	require.NoError(t, err)
	assert.Len(t, images, 2)

	assert.True(t, apperr.Is(svc.Delete(ctx, "user_1", "other", img.ID), apperr.ErrNotFound))
	assert.Equal(t, 4, store.count())

	require.NoError(t, svc.Delete(ctx, "user_1", "vid", img.ID))
	assert.Equal(t, 2, store.count())
	assert.True(t, apperr.Is(svc.Delete(ctx, "user_1", "vid", img.ID), apperr.ErrNotFound))
}

func TestImageGenerateProviderFailure(t *testing.T) {
	ent := &fakeEntitlement{decision: entitlement.Decision{Allowed: true}}
	gen := &fakeImages{err: errors.New("content policy")}
	svc, _, _ := newImageService(t, ent, gen)

	_, err := svc.Generate(context.Background(), "user_1", "vid", "x")
	assert.True(t, apperr.Is(err, apperr.ErrUpstream))
	assert.Zero(t, ent.tracked)
}

func TestMakePreviewKeepsAspect(t *testing.T) {
	src, _, err := image.Decode(bytes.NewReader(testPNG(t, 1792, 1024)))
	require.NoError(t, err)

	preview, err := makePreview(src, previewWidth)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(preview))
	require.NoError(t, err)
	assert.Equal(t, 480, cfg.Width)
	assert.Equal(t, 274, cfg.Height)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"How I Built a Cabin in 30 Days"`, "How I Built a Cabin in 30 Days"},
		{"\n\nTitle: Best Budget Mic 2024\nAlternative: other", "Best Budget Mic 2024"},
		{"“Curly quotes”", "Curly quotes"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanTitle(tt.raw))
	}
}

func TestTitleGeneratePersists(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTitleRepository(newTestDB(t))
	completer := &fakeCompleter{reply: "\"The Cabin Build\"\n"}
	svc := NewTitleService(repo, completer, "gpt-4o-mini", testLogger())

	title, err := svc.Generate(ctx, "user_1", "vid", "building a cabin", "keep it short")
	require.NoError(t, err)
	assert.Equal(t, "The Cabin Build", title)
	assert.Equal(t, "gpt-4o-mini", completer.last.Model)
	assert.Contains(t, completer.last.Messages[1].Content, "keep it short")

	titles, err := svc.List(ctx, "user_1", "vid")
	require.NoError(t, err)
	require.Len(t, titles, 1)

	completer.reply = "  \n "
	_, err = svc.Generate(ctx, "user_1", "vid", "building a cabin", "")
	assert.Error(t, err)
}

func newVideoService(t *testing.T, meta *fakeMetadata) (*VideoService, *repository.VideoRepository) {
	t.Helper()
	db := newTestDB(t)
	videos := repository.NewVideoRepository(db)
	log := testLogger()
	transcripts := NewTranscriptService(repository.NewTranscriptRepository(db), &fakeTranscripts{segments: domain.Segments{{Text: "a", Timestamp: "0:00"}}}, log)
	titles := NewTitleService(repository.NewTitleRepository(db), &fakeCompleter{reply: "T"}, "", log)
	images := NewImageService(repository.NewImageRepository(db), newMemoryStorage(), &fakeImages{}, &fakeEntitlement{}, log, &ImageServiceConfig{})
	return NewVideoService(videos, meta, transcripts, titles, images, log), videos
}

func TestVideoAnalyze(t *testing.T) {
	ctx := context.Background()
	meta := &fakeMetadata{videos: map[string]*domain.VideoMetadata{
		"dQw4w9WgXcQ": {VideoID: "dQw4w9WgXcQ", Title: "Never Gonna"},
	}}
	svc, videos := newVideoService(t, meta)

	id, err := svc.Analyze(ctx, "user_1", "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)
	_, err = videos.Get(ctx, "user_1", "dQw4w9WgXcQ")
	require.NoError(t, err)

	_, err = svc.Analyze(ctx, "user_1", "https://youtu.be/aaaaaaaaaaa")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
	_, err = videos.Get(ctx, "user_1", "aaaaaaaaaaa")
	assert.True(t, repository.IsNotFound(err), "no row for videos without metadata")

	_, err = svc.Analyze(ctx, "user_1", "https://example.com/nope")
	assert.True(t, apperr.Is(err, apperr.ErrInvalidInput))

	id, err = svc.Analyze(ctx, "", "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)
}

func TestVideoOverview(t *testing.T) {
	ctx := context.Background()
	meta := &fakeMetadata{videos: map[string]*domain.VideoMetadata{
		"dQw4w9WgXcQ": {VideoID: "dQw4w9WgXcQ", Title: "Never Gonna"},
	}}
	svc, _ := newVideoService(t, meta)

	_, err := svc.Overview(ctx, "user_1", "dQw4w9WgXcQ")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	_, err = svc.Analyze(ctx, "user_1", "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)

	overview, err := svc.Overview(ctx, "user_1", "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna", overview.Metadata.Title)
	assert.Empty(t, overview.Transcript)
	assert.Empty(t, overview.Images)
}
