package chat

import "encoding/json"

// EventType names a frame in the reply stream.
type EventType string

const (
	EventText       EventType = "text"
	EventReasoning  EventType = "reasoning"
	EventToolCall   EventType = "tool-call"
	EventToolResult EventType = "tool-result"
	EventStepFinish EventType = "step-finish"
	EventFinish     EventType = "finish"
	EventError      EventType = "error"
)

// Event is one incremental piece of an assistant reply.
type Event struct {
	Type         EventType       `json:"type"`
	Text         string          `json:"text,omitempty"`
	ToolCallID   string          `json:"toolCallId,omitempty"`
	ToolName     string          `json:"toolName,omitempty"`
	Args         json.RawMessage `json:"args,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Step         int             `json:"step,omitempty"`
	FinishReason string          `json:"finishReason,omitempty"`
	MessageID    string          `json:"messageId,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// rawJSON returns s as a JSON value, quoting it when the model produced
// something that is not valid JSON.
func rawJSON(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	b, _ := json.Marshal(s)
	return b
}
