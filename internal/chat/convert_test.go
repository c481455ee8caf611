package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/creatorkit/internal/domain"
)

func TestConvertMessages(t *testing.T) {
	var history []domain.Message
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","role":"user","content":"summarize it"},
		{"id":"2","role":"assistant","content":"","parts":[
			{"type":"reasoning","reasoning":"need transcript"},
			{"type":"tool-invocation","toolInvocation":{"toolCallId":"c1","toolName":"transcript-fetch","state":"result","args":{"videoId":"v"},"result":{"cache":true,"transcript":[]}}},
			{"type":"tool-invocation","toolInvocation":{"toolCallId":"c2","toolName":"title-generate","state":"call","args":{}}},
			{"type":"text","text":"It is about cabins."},
			{"type":"data-widget","value":1}
		]},
		{"id":"3","role":"user","parts":[{"type":"text","text":"thanks"}]}
	]`), &history))

	got := ConvertMessages(history)
	require.Len(t, got, 5)

	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "summarize it", got[0].Content)

	assert.Equal(t, "assistant", got[1].Role)
	require.Len(t, got[1].ToolCalls, 1)
	assert.Equal(t, "c1", got[1].ToolCalls[0].ID)
	assert.JSONEq(t, `{"videoId":"v"}`, got[1].ToolCalls[0].Function.Arguments)

	assert.Equal(t, "tool", got[2].Role)
	assert.Equal(t, "c1", got[2].ToolCallID)
	assert.JSONEq(t, `{"cache":true,"transcript":[]}`, got[2].Content)

	assert.Equal(t, "assistant", got[3].Role)
	assert.Equal(t, "It is about cabins.", got[3].Content)
	assert.Empty(t, got[3].ToolCalls)

	assert.Equal(t, "thanks", got[4].Content)
}

func TestConvertAssistantContentOnly(t *testing.T) {
	got := ConvertMessages([]domain.Message{{Role: domain.RoleAssistant, Content: "plain"}})
	require.Len(t, got, 1)
	assert.Equal(t, "plain", got[0].Content)

	assert.Empty(t, ConvertMessages([]domain.Message{{Role: domain.RoleAssistant}}))
}

func TestRawJSON(t *testing.T) {
	assert.Equal(t, `{}`, string(rawJSON("")))
	assert.Equal(t, `{"a":1}`, string(rawJSON(`{"a":1}`)))
	assert.Equal(t, `"{\"a\":"`, string(rawJSON(`{"a":`)))
}
