package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartsDecodeDispatchesOnType(t *testing.T) {
	payload := `{
		"id": "m1",
		"role": "assistant",
		"content": "",
		"parts": [
			{"type": "text", "text": "hello"},
			{"type": "tool-invocation", "toolInvocation": {"toolCallId": "c1", "toolName": "transcript-fetch", "state": "result", "args": {"videoId": "abc"}, "result": {"cache": true}}},
			{"type": "reasoning", "reasoning": "thinking"},
			{"type": "source", "source": {"url": "https://example.com", "title": "Example"}},
			{"type": "step-start"}
		]
	}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	require.Len(t, msg.Parts, 5)

	assert.Equal(t, TextPart{Text: "hello"}, msg.Parts[0])

	inv, ok := msg.Parts[1].(ToolInvocationPart)
	require.True(t, ok)
	assert.Equal(t, "transcript-fetch", inv.ToolInvocation.ToolName)
	assert.Equal(t, ToolStateResult, inv.ToolInvocation.State)
	assert.JSONEq(t, `{"videoId":"abc"}`, string(inv.ToolInvocation.Input))

	assert.Equal(t, ReasoningPart{Reasoning: "thinking"}, msg.Parts[2])
	assert.Equal(t, SourcePart{Source: "https://example.com"}, msg.Parts[3])

	unknown, ok := msg.Parts[4].(UnknownPart)
	require.True(t, ok)
	assert.Equal(t, PartType("step-start"), unknown.Type())
}

func TestPartsEncodeKeepsTypeTag(t *testing.T) {
	parts := Parts{TextPart{Text: "hi"}, SourcePart{Source: "doc"}}
	b, err := json.Marshal(parts)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":"hi"},{"type":"source","source":"doc"}]`, string(b))
}

func TestTextContent(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"content only", Message{Content: "plain"}, "plain"},
		{"text parts win", Message{Content: "plain", Parts: Parts{TextPart{Text: "a"}, ReasoningPart{Reasoning: "x"}, TextPart{Text: "b"}}}, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.TextContent())
		})
	}
}

func TestPartsDecodeKeepsSiblingsOfMalformedParts(t *testing.T) {
	tests := []struct {
		name  string
		bad   string
		check func(t *testing.T, p Part)
	}{
		{"non-string type", `{"type":7}`, func(t *testing.T, p Part) {
			assert.IsType(t, UnknownPart{}, p)
		}},
		{"non-object part", `5`, func(t *testing.T, p Part) {
			assert.IsType(t, UnknownPart{}, p)
		}},
		{"numeric source", `{"type":"source","source":42}`, func(t *testing.T, p Part) {
			u, ok := p.(UnknownPart)
			require.True(t, ok)
			assert.Equal(t, PartTypeSource, u.Kind)
		}},
		{"text with object body", `{"type":"text","text":{"a":1}}`, func(t *testing.T, p Part) {
			assert.IsType(t, UnknownPart{}, p)
		}},
		{"tool invocation not an object", `{"type":"tool-invocation","toolInvocation":"oops"}`, func(t *testing.T, p Part) {
			inv, ok := p.(ToolInvocationPart)
			require.True(t, ok)
			assert.JSONEq(t, `{"type":"tool-invocation","toolInvocation":"oops"}`, string(inv.Malformed))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `[
				{"id":"m1","role":"assistant","parts":[{"type":"text","text":"hello"},` + tt.bad + `]},
				{"id":"m2","role":"user","content":"next"}
			]`

			var msgs []Message
			require.NoError(t, json.Unmarshal([]byte(payload), &msgs))
			require.Len(t, msgs, 2)
			require.Len(t, msgs[0].Parts, 2)
			assert.Equal(t, TextPart{Text: "hello"}, msgs[0].Parts[0])
			tt.check(t, msgs[0].Parts[1])
			assert.Equal(t, "next", msgs[1].Content)
		})
	}
}

func TestMalformedPartsEncodeRaw(t *testing.T) {
	var parts Parts
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"tool-invocation","toolInvocation":"oops"},{"type":9}]`), &parts))

	b, err := json.Marshal(parts)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"tool-invocation","toolInvocation":"oops"},{"type":9}]`, string(b))
}
