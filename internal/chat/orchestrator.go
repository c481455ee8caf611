// Package chat drives one assistant reply: it frames the conversation with
// live video metadata, streams the provider's output and runs tool rounds
// until the model answers or the round cap is reached.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/auth"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/prompts"
	"github.com/timmy/creatorkit/internal/service"
)

// DefaultMaxSteps bounds tool rounds per reply so a model that keeps
// requesting tools still terminates.
const DefaultMaxSteps = 5

// Stream is an open provider response.
type Stream interface {
	Consume(onDelta func(service.Delta)) (*service.CompletionResult, error)
	Close() error
}

// Provider opens streaming completions.
type Provider interface {
	OpenStream(ctx context.Context, req *service.CompletionRequest) (Stream, error)
}

// ToolSet is the registry surface the orchestrator needs.
type ToolSet interface {
	Definitions() []service.ToolDefinition
	Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// MetadataSource returns live metadata for a video.
type MetadataSource interface {
	Metadata(ctx context.Context, videoID string) (*domain.VideoMetadata, error)
}

// NewProvider adapts a CompletionService to Provider.
func NewProvider(s *service.CompletionService) Provider {
	return completionProvider{s}
}

type completionProvider struct {
	svc *service.CompletionService
}

func (p completionProvider) OpenStream(ctx context.Context, req *service.CompletionRequest) (Stream, error) {
	return p.svc.OpenStream(ctx, req)
}

// Request is the chat endpoint body.
type Request struct {
	Messages []domain.Message `json:"messages"`
	VideoID  string           `json:"videoId"`
}

// Config holds orchestrator settings.
type Config struct {
	Model    string
	MaxSteps int
}

// Orchestrator runs assistant replies.
type Orchestrator struct {
	provider Provider
	tools    ToolSet
	metadata MetadataSource
	model    string
	maxSteps int
	logger   *logger.Logger
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(provider Provider, tools ToolSet, metadata MetadataSource, log *logger.Logger, cfg *Config) *Orchestrator {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Orchestrator{
		provider: provider,
		tools:    tools,
		metadata: metadata,
		model:    cfg.Model,
		maxSteps: maxSteps,
		logger:   log,
	}
}

func (o *Orchestrator) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return o.logger
}

// Session is a reply whose first provider stream is already open.
type Session struct {
	o         *Orchestrator
	ctx       context.Context
	messageID string
	messages  []service.ChatMessage
	stream    Stream
	rounds    int
}

// Start validates the caller, fetches fresh metadata, builds the system
// directive and opens the first provider stream. Any error returned here
// happens before a single frame is written.
//
// Parameters:
//   - ctx: request context; must carry the authenticated user.
//   - req: message history and the video the conversation is about.
//
// Returns:
//   - *Session: ready to Run.
//   - error: ErrUnauthorized, ErrInvalidInput, or a metadata/provider failure.
func (o *Orchestrator) Start(ctx context.Context, req *Request) (*Session, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, apperr.New(apperr.ErrUnauthorized, "authentication required")
	}
	if req.VideoID == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "videoId is required")
	}

	ctx = logger.SetVideoID(logger.SetUserID(ctx, userID), req.VideoID)
	ctx = logger.SetComponent(ctx, "chat")

	meta, err := o.metadata.Metadata(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}

	messages := make([]service.ChatMessage, 0, len(req.Messages)+1)
	messages = append(messages, service.ChatMessage{
		Role:    string(domain.RoleSystem),
		Content: prompts.BuildAssistantSystemPrompt(meta),
	})
	messages = append(messages, ConvertMessages(req.Messages)...)

	s := &Session{
		o:         o,
		ctx:       ctx,
		messageID: uuid.NewString(),
		messages:  messages,
	}

	stream, err := o.provider.OpenStream(ctx, s.request())
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstream, prompts.GenericFailureMessage, err)
	}
	s.stream = stream

	o.log(ctx).WithField("history", len(req.Messages)).Info("Chat stream opened")
	return s, nil
}

// MessageID identifies the assistant message being produced.
func (s *Session) MessageID() string {
	return s.messageID
}

// request builds the next provider call. Tools are withheld once the
// round cap is reached, forcing a text answer.
func (s *Session) request() *service.CompletionRequest {
	req := &service.CompletionRequest{
		Model:    s.o.model,
		Messages: s.messages,
	}
	if s.rounds < s.o.maxSteps {
		req.Tools = s.o.tools.Definitions()
	}
	return req
}

// Close releases an open stream that was never run.
func (s *Session) Close() {
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
}

// Run streams the reply through emit until the model finishes. Tool calls
// are executed sequentially in the order the model issued them. A failure
// after the first frame is reported as an error event and returned.
func (s *Session) Run(emit func(Event) error) error {
	defer s.Close()
	start := time.Now()

	for step := 1; ; step++ {
		ctx := logger.WithField(s.ctx, logger.FieldStep, step)

		var emitErr error
		res, err := s.stream.Consume(func(d service.Delta) {
			if emitErr != nil {
				return
			}
			typ := EventText
			if d.Kind == service.DeltaReasoning {
				typ = EventReasoning
			}
			emitErr = emit(Event{Type: typ, Text: d.Text})
		})
		s.stream = nil
		if emitErr != nil {
			return emitErr
		}
		if err != nil {
			return s.fail(ctx, emit, err)
		}

		if len(res.ToolCalls) == 0 || s.rounds >= s.o.maxSteps {
			if err := emit(Event{Type: EventStepFinish, Step: step, FinishReason: res.FinishReason}); err != nil {
				return err
			}
			logger.With(logger.Fields{"message_id": s.messageID}).
				WithStatus(res.FinishReason).
				WithCount(s.rounds).
				WithDuration(time.Since(start).Milliseconds()).
				Info(ctx, "Chat reply finished")
			return emit(Event{Type: EventFinish, FinishReason: res.FinishReason, MessageID: s.messageID})
		}

		if err := s.runTools(ctx, res, emit); err != nil {
			return err
		}
		s.rounds++

		if err := emit(Event{Type: EventStepFinish, Step: step, FinishReason: res.FinishReason}); err != nil {
			return err
		}

		stream, err := s.o.provider.OpenStream(ctx, s.request())
		if err != nil {
			return s.fail(ctx, emit, err)
		}
		s.stream = stream
	}
}

func (s *Session) runTools(ctx context.Context, res *service.CompletionResult, emit func(Event) error) error {
	s.messages = append(s.messages, service.ChatMessage{
		Role:      string(domain.RoleAssistant),
		Content:   res.Text,
		ToolCalls: res.ToolCalls,
	})

	for _, call := range res.ToolCalls {
		if err := emit(Event{
			Type:       EventToolCall,
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			Args:       rawJSON(call.Function.Arguments),
		}); err != nil {
			return err
		}

		result, err := s.o.tools.Invoke(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
		if err != nil {
			s.o.log(ctx).WithError(err).WithField(logger.FieldTool, call.Function.Name).Warn("Tool returned a failure result")
		}

		if err := emit(Event{
			Type:       EventToolResult,
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			Result:     result,
		}); err != nil {
			return err
		}

		s.messages = append(s.messages, service.ChatMessage{
			Role:       "tool",
			ToolCallID: call.ID,
			Content:    string(result),
		})
	}
	return nil
}

func (s *Session) fail(ctx context.Context, emit func(Event) error, err error) error {
	s.o.log(ctx).WithError(err).Error("Chat stream failed")
	if emitErr := emit(Event{Type: EventError, Error: prompts.GenericFailureMessage}); emitErr != nil {
		return emitErr
	}
	return err
}
