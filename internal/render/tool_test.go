package render

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/timmy/creatorkit/internal/domain"
)

func TestRenderToolLayouts(t *testing.T) {
	tests := []struct {
		name     string
		inv      domain.ToolInvocation
		layout   Layout
		contains []string
	}{
		{
			name: "transcript",
			inv: domain.ToolInvocation{ToolName: "transcript-fetch", State: domain.ToolStateResult,
				Input:  json.RawMessage(`{"videoId":"dQw4w9WgXcQ"}`),
				Result: json.RawMessage(`{"transcript":[{"text":"Never gonna","timestamp":"0:43"}],"cache":true}`)},
			layout:   LayoutTranscript,
			contains: []string{"Transcript", `<span class="timestamp">0:43</span> Never gonna`, "Loaded from database", "dQw4w9WgXcQ"},
		},
		{
			name: "empty transcript",
			inv: domain.ToolInvocation{ToolName: "transcript-fetch", State: domain.ToolStateResult,
				Result: json.RawMessage(`{"transcript":[],"cache":false}`)},
			layout:   LayoutTranscript,
			contains: []string{"No transcript available."},
		},
		{
			name: "statistics",
			inv: domain.ToolInvocation{ToolName: "video-stats", State: domain.ToolStateResult,
				Result: json.RawMessage(`{"statistics":{"viewCount":1234567,"likeCount":89}}`)},
			layout:   LayoutStatistics,
			contains: []string{"<th>View count</th><td>1,234,567</td>", "<th>Like count</th><td>89</td>"},
		},
		{
			name: "generic",
			inv: domain.ToolInvocation{ToolName: "title-generate", State: domain.ToolStateResult,
				Result: json.RawMessage(`{"success":true,"title":"<Cabin>"}`)},
			layout:   LayoutGeneric,
			contains: []string{"Title generation", "&lt;Cabin&gt;"},
		},
		{
			name:     "pending",
			inv:      domain.ToolInvocation{ToolName: "image-generate", State: domain.ToolStateCall},
			layout:   LayoutPending,
			contains: []string{"Running…"},
		},
		{
			name: "malformed transcript",
			inv: domain.ToolInvocation{ToolName: "transcript-fetch", State: domain.ToolStateResult,
				Result: json.RawMessage(`{"transcript":"oops"}`)},
			layout:   LayoutError,
			contains: []string{cannotDisplay},
		},
		{
			name: "invalid json",
			inv: domain.ToolInvocation{ToolName: "x", State: domain.ToolStateResult,
				Result: json.RawMessage(`{`)},
			layout:   LayoutError,
			contains: []string{cannotDisplay},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := renderTool(tt.inv)
			assert.Equal(t, BlockTool, block.Kind)
			assert.Equal(t, tt.layout, block.Layout)
			for _, s := range tt.contains {
				assert.Contains(t, block.HTML, s)
			}
		})
	}
}

func TestMalformedToolDoesNotAffectSiblings(t *testing.T) {
	m := domain.Message{ID: "m", Role: domain.RoleAssistant, Parts: domain.Parts{
		domain.ToolInvocationPart{ToolInvocation: domain.ToolInvocation{ToolName: "transcript-fetch", State: domain.ToolStateResult, Result: json.RawMessage(`[1,`)}},
		domain.TextPart{Text: "after"},
	}}
	rm := newTestRenderer(0).RenderMessage(context.Background(), m, false)
	assert.Len(t, rm.Blocks, 2)
	assert.Equal(t, LayoutError, rm.Blocks[0].Layout)
	assert.Contains(t, rm.Blocks[1].HTML, "after")
}

func TestHumanizeAndGroup(t *testing.T) {
	assert.Equal(t, "View count", humanize("viewCount"))
	assert.Equal(t, "Video id", humanize("video_id"))
	assert.Equal(t, "1,000", groupThousands(1000))
	assert.Equal(t, "-12,345", groupThousands(-12345))
	assert.Equal(t, "999", groupThousands(999))
}
