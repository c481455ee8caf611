// Package render turns conversation messages into display blocks: markdown
// with math for text, panels for tool invocations, a thinking panel for
// reasoning and a result panel for sources.
package render

import (
	"context"
	"html/template"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/yuin/goldmark"
)

// DefaultTruncateThreshold is the assistant text length, in characters,
// above which text is cut until the message is expanded.
const DefaultTruncateThreshold = 5000

// BlockKind identifies how a block is displayed.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockTool     BlockKind = "tool"
	BlockThinking BlockKind = "thinking"
	BlockResult   BlockKind = "result"
)

// Block is the rendered form of one message part.
type Block struct {
	Kind      BlockKind `json:"kind"`
	HTML      string    `json:"html"`
	Truncated bool      `json:"truncated,omitempty"`
	ToolName  string    `json:"toolName,omitempty"`
	Layout    Layout    `json:"layout,omitempty"`
}

// RenderedMessage is a message ready for display.
type RenderedMessage struct {
	ID     string      `json:"id"`
	Role   domain.Role `json:"role"`
	Blocks []Block     `json:"blocks"`
	// Expandable is set when a block was truncated; expanding the message
	// id renders the full text.
	Expandable bool `json:"expandable,omitempty"`
}

// Config holds renderer settings.
type Config struct {
	TruncateThreshold int
}

// Renderer renders messages. It is safe for concurrent use.
type Renderer struct {
	md        goldmark.Markdown
	threshold int
	logger    *logger.Logger
}

// New creates a renderer.
func New(cfg *Config, log *logger.Logger) *Renderer {
	threshold := cfg.TruncateThreshold
	if threshold <= 0 {
		threshold = DefaultTruncateThreshold
	}
	return &Renderer{
		md:        newMarkdown(),
		threshold: threshold,
		logger:    log,
	}
}

func (r *Renderer) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return r.logger
}

// Render renders messages in order. expanded holds the ids of messages
// whose long text should be shown in full.
func (r *Renderer) Render(ctx context.Context, messages []domain.Message, expanded map[string]bool) []RenderedMessage {
	out := make([]RenderedMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, r.RenderMessage(ctx, m, expanded[m.ID]))
	}
	return out
}

// RenderMessage renders one message. Each recognized part yields exactly one
// block; unknown part kinds yield none.
func (r *Renderer) RenderMessage(ctx context.Context, m domain.Message, expanded bool) RenderedMessage {
	rm := RenderedMessage{ID: m.ID, Role: m.Role, Blocks: []Block{}}

	parts := m.Parts
	if len(parts) == 0 && m.Content != "" {
		parts = domain.Parts{domain.TextPart{Text: m.Content}}
	}

	for _, p := range parts {
		var block Block
		switch part := p.(type) {
		case domain.TextPart:
			block = r.renderText(ctx, part.Text, m.Role == domain.RoleAssistant && !expanded)
			if block.Truncated {
				rm.Expandable = true
			}
		case domain.ToolInvocationPart:
			if part.Malformed != nil {
				block = cannotDisplayBlock("")
			} else {
				block = renderTool(part.ToolInvocation)
			}
			if block.Layout == LayoutError {
				r.log(ctx).WithField("message_id", m.ID).WithField(logger.FieldTool, part.ToolInvocation.ToolName).
					Warn("Tool result could not be displayed")
			}
		case domain.ReasoningPart:
			block = Block{
				Kind: BlockThinking,
				HTML: `<details class="thinking"><summary>Thinking</summary><div class="thinking-body">` +
					template.HTMLEscapeString(part.Reasoning) + `</div></details>`,
			}
		case domain.SourcePart:
			block = Block{Kind: BlockResult, HTML: renderSource(part.Source)}
		default:
			continue
		}
		rm.Blocks = append(rm.Blocks, block)
	}
	return rm
}

func (r *Renderer) renderText(ctx context.Context, text string, truncate bool) Block {
	block := Block{Kind: BlockText}
	if truncate && utf8.RuneCountInString(text) > r.threshold {
		text = truncateText(text, r.threshold)
		block.Truncated = true
	}

	out, err := markdownToHTML(r.md, text)
	if err != nil {
		r.log(ctx).WithError(err).Warn("Falling back to plain text")
		out = `<p>` + template.HTMLEscapeString(text) + `</p>`
	}
	block.HTML = out
	return block
}

// truncateText cuts text to at most limit runes, preferring a word boundary.
func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexAny(cut, " \n"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n") + "…"
}

func renderSource(src string) string {
	escaped := template.HTMLEscapeString(src)
	if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return `<div class="result"><a href="` + escaped + `" rel="noopener noreferrer" target="_blank">` + escaped + `</a></div>`
	}
	return `<div class="result">` + escaped + `</div>`
}
