package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/entitlement"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/repository"
	"github.com/timmy/creatorkit/internal/youtube"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(repository.Models()...))
	return db
}

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Output: io.Discard})
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) GetURL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type fakeTranscripts struct {
	calls    int32
	segments domain.Segments
	err      error
	block    chan struct{}
}

func (f *fakeTranscripts) Fetch(ctx context.Context, videoID string) (domain.Segments, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.segments, f.err
}

type fakeMetadata struct {
	videos map[string]*domain.VideoMetadata
	err    error
}

func (f *fakeMetadata) GetVideo(_ context.Context, videoID string) (*domain.VideoMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	meta, ok := f.videos[videoID]
	if !ok {
		return nil, youtube.ErrVideoNotFound
	}
	return meta, nil
}

type fakeImages struct {
	calls int32
	data  []byte
	err   error
}

func (f *fakeImages) Generate(_ context.Context, _ string) (*GeneratedImage, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &GeneratedImage{Data: f.data}, nil
}

type fakeEntitlement struct {
	decision entitlement.Decision
	err      error
	tracked  int32
}

func (f *fakeEntitlement) Check(_ context.Context, _, _ string) (*entitlement.Decision, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := f.decision
	return &d, nil
}

func (f *fakeEntitlement) Track(_ context.Context, _, _ string, quantity int) error {
	atomic.AddInt32(&f.tracked, int32(quantity))
	return nil
}

type fakeCompleter struct {
	reply string
	err   error
	last  *CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req *CompletionRequest) (string, error) {
	f.last = req
	return f.reply, f.err
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
