package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/chat"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/prompts"
)

// ChatHandler streams assistant replies.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
	maxDuration  time.Duration
}

// NewChatHandler creates a new chat handler.
//
// Parameters:
//   - orchestrator: conversation orchestrator.
//   - maxDuration: wall-clock cap for one streamed reply.
//
// Returns:
//   - *ChatHandler: initialized handler.
func NewChatHandler(orchestrator *chat.Orchestrator, maxDuration time.Duration) *ChatHandler {
	if maxDuration <= 0 {
		maxDuration = 30 * time.Second
	}
	return &ChatHandler{orchestrator: orchestrator, maxDuration: maxDuration}
}

// Chat handles POST /api/chat.
// Failures before the first frame are answered with a JSON error and no
// stream; afterwards they arrive as an "error" event. The reply budget is
// the only cancellation: a client that disconnects stops receiving frames
// but in-flight provider and tool calls run to completion.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	clientCtx := c.Request.Context()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(clientCtx), h.maxDuration)
	defer cancel()

	session, err := h.orchestrator.Start(ctx, &req)
	if err != nil {
		h.startError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Message-ID", session.MessageID())
	c.Status(http.StatusOK)

	terminated := false
	write := func(e chat.Event) {
		c.SSEvent(string(e.Type), e)
		c.Writer.Flush()
		if e.Type == chat.EventFinish || e.Type == chat.EventError {
			terminated = true
		}
	}

	err = session.Run(func(e chat.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if clientCtx.Err() == nil {
			write(e)
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Chat stream ended early")
	}

	// The reply budget ran out while the client is still listening: close the
	// stream with an error frame rather than going silent.
	if !terminated && errors.Is(ctx.Err(), context.DeadlineExceeded) && clientCtx.Err() == nil {
		write(chat.Event{Type: chat.EventError, Error: prompts.GenericFailureMessage})
	}
}

func (h *ChatHandler) startError(c *gin.Context, err error) {
	switch apperr.CodeOf(err) {
	case apperr.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": apperr.MessageOf(err)})
	case apperr.ErrInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": apperr.MessageOf(err)})
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error("Chat failed before streaming")
		c.JSON(http.StatusInternalServerError, gin.H{"error": prompts.GenericFailureMessage})
	}
}
