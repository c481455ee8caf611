package domain

import (
	"encoding/json"
	"fmt"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PartType tags each message part on the wire.
type PartType string

const (
	PartTypeText           PartType = "text"
	PartTypeToolInvocation PartType = "tool-invocation"
	PartTypeReasoning      PartType = "reasoning"
	PartTypeSource         PartType = "source"
)

// ToolState is the lifecycle stage of a tool invocation.
type ToolState string

const (
	ToolStatePartialCall ToolState = "partial-call"
	ToolStateCall        ToolState = "call"
	ToolStateResult      ToolState = "result"
)

// Message is one conversation entry. Messages are never persisted.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Parts   Parts  `json:"parts,omitempty"`
}

// Part is a closed sum type: TextPart, ToolInvocationPart, ReasoningPart,
// SourcePart, or UnknownPart for kinds this build does not recognize.
type Part interface {
	Type() PartType
	isPart()
}

type TextPart struct {
	Text string `json:"text"`
}

type ToolInvocation struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	State      ToolState       `json:"state"`
	Input      json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

type ToolInvocationPart struct {
	ToolInvocation ToolInvocation `json:"toolInvocation"`
	// Malformed holds the raw part when its invocation could not be decoded.
	Malformed json.RawMessage `json:"-"`
}

type ReasoningPart struct {
	Reasoning string `json:"reasoning"`
}

// SourcePart carries a source reference. Structured sources are reduced to
// their URL, or their title when no URL is present.
type SourcePart struct {
	Source string `json:"source"`
}

// UnknownPart keeps the raw payload of an unrecognized part kind.
type UnknownPart struct {
	Kind PartType
	Raw  json.RawMessage
}

func (TextPart) Type() PartType           { return PartTypeText }
func (ToolInvocationPart) Type() PartType { return PartTypeToolInvocation }
func (ReasoningPart) Type() PartType      { return PartTypeReasoning }
func (SourcePart) Type() PartType         { return PartTypeSource }
func (p UnknownPart) Type() PartType      { return p.Kind }

func (TextPart) isPart()           {}
func (ToolInvocationPart) isPart() {}
func (ReasoningPart) isPart()      {}
func (SourcePart) isPart()         {}
func (UnknownPart) isPart()        {}

// Parts decodes a heterogeneous JSON array by its "type" field. A part
// that cannot be decoded never fails the array: a broken tool invocation is
// kept as a malformed ToolInvocationPart and anything else as an UnknownPart.
type Parts []Part

func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Parts, 0, len(raws))
	for _, raw := range raws {
		out = append(out, decodePart(raw))
	}
	*ps = out
	return nil
}

func (ps Parts) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ps))
	for _, p := range ps {
		raw, err := encodePart(p)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func decodePart(raw json.RawMessage) Part {
	raw = append(json.RawMessage(nil), raw...)

	var head struct {
		Type PartType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return UnknownPart{Raw: raw}
	}

	var (
		p   Part
		err error
	)
	switch head.Type {
	case PartTypeText:
		var tp TextPart
		err = json.Unmarshal(raw, &tp)
		p = tp
	case PartTypeToolInvocation:
		var tp ToolInvocationPart
		if err := json.Unmarshal(raw, &tp); err != nil {
			return ToolInvocationPart{Malformed: raw}
		}
		return tp
	case PartTypeReasoning:
		var rp ReasoningPart
		err = json.Unmarshal(raw, &rp)
		p = rp
	case PartTypeSource:
		p, err = decodeSource(raw)
	default:
		return UnknownPart{Kind: head.Type, Raw: raw}
	}
	if err != nil {
		return UnknownPart{Kind: head.Type, Raw: raw}
	}
	return p
}

func decodeSource(raw json.RawMessage) (Part, error) {
	var wire struct {
		Source json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	var s string
	if err := json.Unmarshal(wire.Source, &s); err == nil {
		return SourcePart{Source: s}, nil
	}
	var obj struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(wire.Source, &obj); err != nil {
		return nil, fmt.Errorf("unsupported source shape: %w", err)
	}
	if obj.URL != "" {
		return SourcePart{Source: obj.URL}, nil
	}
	return SourcePart{Source: obj.Title}, nil
}

func encodePart(p Part) (json.RawMessage, error) {
	switch v := p.(type) {
	case UnknownPart:
		return v.Raw, nil
	case ToolInvocationPart:
		if v.Malformed != nil {
			return v.Malformed, nil
		}
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(p.Type())
	return json.Marshal(fields)
}

// TextContent returns the message text, preferring text parts over Content.
func (m Message) TextContent() string {
	var text string
	found := false
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			text += t.Text
			found = true
		}
	}
	if !found {
		return m.Content
	}
	return text
}
