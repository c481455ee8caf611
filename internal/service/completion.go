package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAI-compatible chat completion wire types.

type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

type FunctionDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

// CompletionRequest is a provider-agnostic request. An empty Tools slice
// makes the provider answer with text only.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []ChatMessage    `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	Stream      bool             `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			ToolCalls        []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

// Usage reports token consumption when the provider includes it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DeltaKind separates visible text from reasoning traces.
type DeltaKind string

const (
	DeltaText      DeltaKind = "text"
	DeltaReasoning DeltaKind = "reasoning"
)

// Delta is one incremental piece of model output.
type Delta struct {
	Kind DeltaKind
	Text string
}

// CompletionResult is the accumulated outcome of one provider round.
type CompletionResult struct {
	Text         string
	Reasoning    string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        *Usage
}

// CompletionConfig holds configuration for the completion service.
type CompletionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// CompletionService calls an OpenAI-compatible /chat/completions endpoint.
type CompletionService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewCompletionService creates a new completion service.
//
// Parameters:
//   - cfg: API key, base URL, default model and request timeout.
//
// Returns:
//   - *CompletionService: initialized client wrapper.
func NewCompletionService(cfg *CompletionConfig) *CompletionService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &CompletionService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// GetModel returns the default model name.
func (s *CompletionService) GetModel() string {
	return s.model
}

func (s *CompletionService) buildRequest(req *CompletionRequest, stream bool) chatRequest {
	model := req.Model
	if model == "" {
		model = s.model
	}
	body := chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Tools:       req.Tools,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if len(req.Tools) > 0 {
		body.ToolChoice = "auto"
	}
	return body
}

// Complete performs a non-streaming completion and returns the text answer.
func (s *CompletionService) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(s.buildRequest(req, false)).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call completion API: %w", err)
	}

	if httpResp.IsError() {
		errorMsg := string(httpResp.Body())
		if resp.Error != nil {
			errorMsg = resp.Error.Message
		}
		return "", fmt.Errorf("completion API returned HTTP %d: %s", httpResp.StatusCode(), errorMsg)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("completion API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}

	_, text := splitThink(resp.Choices[0].Message.Content)
	return text, nil
}

// OpenStream starts a streaming completion. Errors here happen before any
// output, so callers can still answer with a plain error response.
func (s *CompletionService) OpenStream(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetBody(s.buildRequest(req, true)).
		SetDoNotParseResponse(true).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call completion API: %w", err)
	}

	body := httpResp.RawBody()
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		defer body.Close()
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		var apiErr chatResponse
		if json.Unmarshal(msg, &apiErr) == nil && apiErr.Error != nil {
			return nil, fmt.Errorf("completion API returned HTTP %d: %s", httpResp.StatusCode(), apiErr.Error.Message)
		}
		return nil, fmt.Errorf("completion API returned HTTP %d: %s", httpResp.StatusCode(), strings.TrimSpace(string(msg)))
	}

	return &CompletionStream{body: body}, nil
}

// CompletionStream is an open SSE response from the provider.
type CompletionStream struct {
	body io.ReadCloser
}

// Close releases the underlying connection.
func (cs *CompletionStream) Close() error {
	return cs.body.Close()
}

type partialToolCall struct {
	id        string
	name      string
	arguments strings.Builder
}

// Consume reads the stream to completion, calling onDelta for every text or
// reasoning fragment in arrival order, and returns the accumulated round.
func (cs *CompletionStream) Consume(onDelta func(Delta)) (*CompletionResult, error) {
	defer cs.body.Close()

	result := &CompletionResult{}
	var text, reasoning strings.Builder
	calls := map[int]*partialToolCall{}
	splitter := &thinkSplitter{}

	emit := func(kind DeltaKind, s string) {
		if s == "" {
			return
		}
		if kind == DeltaReasoning {
			reasoning.WriteString(s)
		} else {
			text.WriteString(s)
		}
		if onDelta != nil {
			onDelta(Delta{Kind: kind, Text: s})
		}
	}

	scanner := bufio.NewScanner(cs.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Usage != nil {
			result.Usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		emit(DeltaReasoning, choice.Delta.ReasoningContent)
		if choice.Delta.Content != "" {
			r, t := splitter.Feed(choice.Delta.Content)
			emit(DeltaReasoning, r)
			emit(DeltaText, t)
		}

		for _, tc := range choice.Delta.ToolCalls {
			pc, ok := calls[tc.Index]
			if !ok {
				pc = &partialToolCall{}
				calls[tc.Index] = pc
			}
			if tc.ID != "" {
				pc.id = tc.ID
			}
			if tc.Function.Name != "" {
				pc.name = tc.Function.Name
			}
			pc.arguments.WriteString(tc.Function.Arguments)
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			result.FinishReason = *choice.FinishReason
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read completion stream: %w", err)
	}

	r, t := splitter.Flush()
	emit(DeltaReasoning, r)
	emit(DeltaText, t)

	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		pc := calls[idx]
		args := pc.arguments.String()
		if args == "" {
			args = "{}"
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:       pc.id,
			Type:     "function",
			Function: FunctionCall{Name: pc.name, Arguments: args},
		})
	}

	result.Text = text.String()
	result.Reasoning = reasoning.String()
	if result.FinishReason == "" {
		if len(result.ToolCalls) > 0 {
			result.FinishReason = "tool_calls"
		} else {
			result.FinishReason = "stop"
		}
	}
	return result, nil
}
