package render

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
)

func newTestRenderer(threshold int) *Renderer {
	return New(&Config{TruncateThreshold: threshold}, logger.New(&logger.Config{Level: "error", Output: io.Discard}))
}

func decodeMessage(t *testing.T, raw string) domain.Message {
	t.Helper()
	var m domain.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestRenderSkipsUnknownParts(t *testing.T) {
	m := decodeMessage(t, `{"id":"m1","role":"assistant","parts":[
		{"type":"text","text":"Hello"},
		{"type":"step-start"},
		{"type":"reasoning","reasoning":"thinking about it"},
		{"type":"file","mediaType":"image/png","url":"x"},
		{"type":"source","source":"https://example.com/a"},
		{"type":"tool-invocation","toolInvocation":{"toolCallId":"c1","toolName":"title-generate","state":"result","args":{},"result":{"success":true,"title":"T"}}},
		{"type":"data-progress","value":3}
	]}`)

	rm := newTestRenderer(0).RenderMessage(context.Background(), m, false)

	require.Len(t, rm.Blocks, len(m.Parts)-3)
	kinds := []BlockKind{rm.Blocks[0].Kind, rm.Blocks[1].Kind, rm.Blocks[2].Kind, rm.Blocks[3].Kind}
	assert.Equal(t, []BlockKind{BlockText, BlockThinking, BlockResult, BlockTool}, kinds)
	assert.Contains(t, rm.Blocks[2].HTML, `href="https://example.com/a"`)
}

func TestRenderMalformedToolPartShowsNotice(t *testing.T) {
	m := decodeMessage(t, `{"id":"m1","role":"assistant","parts":[
		{"type":"text","text":"Before"},
		{"type":"tool-invocation","toolInvocation":"oops"},
		{"type":"source","source":42},
		{"type":"text","text":"After"}
	]}`)

	rm := newTestRenderer(0).RenderMessage(context.Background(), m, false)

	require.Len(t, rm.Blocks, 3)
	assert.Equal(t, BlockText, rm.Blocks[0].Kind)
	assert.Equal(t, LayoutError, rm.Blocks[1].Layout)
	assert.Contains(t, rm.Blocks[1].HTML, cannotDisplay)
	assert.Contains(t, rm.Blocks[2].HTML, "After")
}

func TestRenderContentWithoutParts(t *testing.T) {
	rm := newTestRenderer(0).RenderMessage(context.Background(), domain.Message{ID: "u", Role: domain.RoleUser, Content: "**hi**"}, false)
	require.Len(t, rm.Blocks, 1)
	assert.Contains(t, rm.Blocks[0].HTML, "<strong>hi</strong>")
}

func TestRenderTruncatesLongAssistantText(t *testing.T) {
	long := strings.Repeat("word ", 40)
	r := newTestRenderer(50)
	msgs := []domain.Message{
		{ID: "a", Role: domain.RoleAssistant, Parts: domain.Parts{domain.TextPart{Text: long}}},
		{ID: "u", Role: domain.RoleUser, Parts: domain.Parts{domain.TextPart{Text: long}}},
	}

	out := r.Render(context.Background(), msgs, nil)
	assert.True(t, out[0].Blocks[0].Truncated)
	assert.True(t, out[0].Expandable)
	assert.Contains(t, out[0].Blocks[0].HTML, "…")
	assert.False(t, out[1].Blocks[0].Truncated, "user text is never truncated")

	expanded := r.Render(context.Background(), msgs, map[string]bool{"a": true})
	assert.False(t, expanded[0].Blocks[0].Truncated)
	assert.False(t, expanded[0].Expandable)
	assert.Equal(t, 40, strings.Count(expanded[0].Blocks[0].HTML, "word"))
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"short", "abc", 5, "abc"},
		{"word boundary", "alpha beta gamma", 12, "alpha beta…"},
		{"no boundary", "abcdefghij", 4, "abcd…"},
		{"multibyte", "日本語のテキスト", 3, "日本語…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateText(tt.text, tt.limit); got != tt.want {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestRenderMath(t *testing.T) {
	r := newTestRenderer(0)
	rm := r.RenderMessage(context.Background(), domain.Message{
		ID: "m", Role: domain.RoleAssistant,
		Parts: domain.Parts{domain.TextPart{Text: "Energy $E=mc^2$ costs $5 and $10.\n\n$$\na_*b_*c\n$$\n\n`$x$`"}},
	}, false)

	html := rm.Blocks[0].HTML
	assert.Contains(t, html, `<span class="math math-inline">E=mc^2</span>`)
	assert.Contains(t, html, `<span class="math math-display">a_*b_*c</span>`)
	assert.Contains(t, html, "costs $5 and $10.")
	assert.Contains(t, html, "<code>$x$</code>")
	assert.NotContains(t, html, mathToken)
}

func TestRenderEscapesRawHTML(t *testing.T) {
	rm := newTestRenderer(0).RenderMessage(context.Background(), domain.Message{
		ID: "m", Role: domain.RoleAssistant,
		Parts: domain.Parts{
			domain.TextPart{Text: "<script>alert(1)</script>"},
			domain.ReasoningPart{Reasoning: "<b>x</b>"},
		},
	}, false)

	assert.NotContains(t, rm.Blocks[0].HTML, "<script>")
	assert.Contains(t, rm.Blocks[1].HTML, "&lt;b&gt;x&lt;/b&gt;")
}
