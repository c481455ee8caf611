package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/timmy/creatorkit/internal/auth"
	"github.com/timmy/creatorkit/internal/chat"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/service"
)

// stallingStream sends one delta, then waits for its context to end.
type stallingStream struct {
	ctx context.Context
}

func (s stallingStream) Consume(onDelta func(service.Delta)) (*service.CompletionResult, error) {
	onDelta(service.Delta{Kind: service.DeltaText, Text: "partial"})
	<-s.ctx.Done()
	return nil, s.ctx.Err()
}

func (stallingStream) Close() error { return nil }

type stallingProvider struct{}

func (stallingProvider) OpenStream(ctx context.Context, _ *service.CompletionRequest) (chat.Stream, error) {
	return stallingStream{ctx: ctx}, nil
}

// gatedStream sends one delta, waits for release, then records whether its
// context was canceled before finishing normally.
type gatedStream struct {
	ctx      context.Context
	started  chan struct{}
	release  chan struct{}
	canceled chan bool
}

func (s gatedStream) Consume(onDelta func(service.Delta)) (*service.CompletionResult, error) {
	onDelta(service.Delta{Kind: service.DeltaText, Text: "first"})
	close(s.started)
	<-s.release
	s.canceled <- s.ctx.Err() != nil
	onDelta(service.Delta{Kind: service.DeltaText, Text: "second"})
	return &service.CompletionResult{Text: "first second", FinishReason: "stop"}, nil
}

func (gatedStream) Close() error { return nil }

type gatedProvider struct {
	started  chan struct{}
	release  chan struct{}
	canceled chan bool
}

func (p gatedProvider) OpenStream(ctx context.Context, _ *service.CompletionRequest) (chat.Stream, error) {
	return gatedStream{ctx: ctx, started: p.started, release: p.release, canceled: p.canceled}, nil
}

type noTools struct{}

func (noTools) Definitions() []service.ToolDefinition { return nil }

func (noTools) Invoke(context.Context, string, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

type fixedMetadata struct{}

func (fixedMetadata) Metadata(_ context.Context, videoID string) (*domain.VideoMetadata, error) {
	return &domain.VideoMetadata{VideoID: videoID, Title: "Demo"}, nil
}

func newChatRouter(provider chat.Provider, budget time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	orch := chat.NewOrchestrator(provider, noTools{}, fixedMetadata{}, log, &chat.Config{})
	h := NewChatHandler(orch, budget)

	r := gin.New()
	r.POST("/api/chat", func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), "user_1"))
		c.Next()
	}, h.Chat)
	return r
}

func TestChatDeadlineEndsWithErrorFrame(t *testing.T) {
	r := newChatRouter(stallingProvider{}, 50*time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[],"videoId":"dQw4w9WgXcQ"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "event:text")
	assert.Contains(t, body, "partial")
	assert.Equal(t, 1, strings.Count(body, "event:error"))
	assert.NotContains(t, body, "event:finish")
}

func TestChatClientDisconnectDoesNotAbortProvider(t *testing.T) {
	provider := gatedProvider{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		canceled: make(chan bool, 1),
	}
	r := newChatRouter(provider, 5*time.Second)

	clientCtx, disconnect := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[],"videoId":"dQw4w9WgXcQ"}`)).WithContext(clientCtx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(w, req)
	}()

	<-provider.started
	disconnect()
	close(provider.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("chat handler did not return")
	}

	assert.False(t, <-provider.canceled)
	body := w.Body.String()
	assert.Contains(t, body, "first")
	assert.NotContains(t, body, "second")
	assert.NotContains(t, body, "event:error")
}
