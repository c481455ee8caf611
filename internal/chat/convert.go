package chat

import (
	"strings"

	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/service"
)

// ConvertMessages turns UI messages into provider messages. Completed tool
// invocations on assistant messages become an assistant tool-call message
// followed by one tool message per call; invocations without a result,
// reasoning and source parts are not sent back to the provider.
func ConvertMessages(messages []domain.Message) []service.ChatMessage {
	out := make([]service.ChatMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleAssistant:
			out = append(out, convertAssistant(m)...)
		case domain.RoleUser, domain.RoleSystem:
			out = append(out, service.ChatMessage{Role: string(m.Role), Content: m.TextContent()})
		}
	}
	return out
}

func convertAssistant(m domain.Message) []service.ChatMessage {
	if len(m.Parts) == 0 {
		if m.Content == "" {
			return nil
		}
		return []service.ChatMessage{{Role: string(domain.RoleAssistant), Content: m.Content}}
	}

	var (
		out     []service.ChatMessage
		text    strings.Builder
		calls   []service.ToolCall
		results []service.ChatMessage
	)

	flush := func() {
		if len(calls) == 0 && text.Len() == 0 {
			return
		}
		out = append(out, service.ChatMessage{
			Role:      string(domain.RoleAssistant),
			Content:   text.String(),
			ToolCalls: calls,
		})
		out = append(out, results...)
		text.Reset()
		calls, results = nil, nil
	}

	for _, p := range m.Parts {
		switch part := p.(type) {
		case domain.TextPart:
			// Text after a tool round starts the next step.
			if len(calls) > 0 {
				flush()
			}
			text.WriteString(part.Text)
		case domain.ToolInvocationPart:
			inv := part.ToolInvocation
			if inv.State != domain.ToolStateResult {
				continue
			}
			args := string(inv.Input)
			if args == "" || args == "null" {
				args = "{}"
			}
			calls = append(calls, service.ToolCall{
				ID:       inv.ToolCallID,
				Type:     "function",
				Function: service.FunctionCall{Name: inv.ToolName, Arguments: args},
			})
			results = append(results, service.ChatMessage{
				Role:       "tool",
				ToolCallID: inv.ToolCallID,
				Content:    string(inv.Result),
			})
		}
	}
	flush()
	return out
}
