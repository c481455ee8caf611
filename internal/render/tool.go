package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/timmy/creatorkit/internal/domain"
)

// Layout names the result view chosen for a tool invocation.
type Layout string

const (
	LayoutPending    Layout = "pending"
	LayoutTranscript Layout = "transcript"
	LayoutStatistics Layout = "statistics"
	LayoutGeneric    Layout = "generic"
	LayoutError      Layout = "error"
)

const cannotDisplay = "Cannot display this tool result."

var toolLabels = map[string]string{
	"transcript-fetch": "Transcript",
	"image-generate":   "Thumbnail generation",
	"title-generate":   "Title generation",
}

var statKeys = []string{"viewCount", "likeCount", "commentCount", "subscriberCount", "videoCount"}

var panelTmpl = template.Must(template.New("panel").Parse(
	`<div class="tool-panel" data-tool="{{.Name}}">` +
		`<div class="tool-header">{{.Label}}</div>` +
		`{{if .Input}}<dl class="tool-input">{{range .Input}}<dt>{{.Key}}</dt><dd>{{.Value}}</dd>{{end}}</dl>{{end}}` +
		`<div class="tool-result tool-result-{{.Layout}}">{{.Body}}</div>` +
		`</div>`))

var transcriptTmpl = template.Must(template.New("transcript").Parse(
	`{{if .Cache}}<span class="badge">Loaded from database</span>{{end}}` +
		`{{if .Segments}}<ol class="transcript">{{range .Segments}}<li><span class="timestamp">{{.Timestamp}}</span> {{.Text}}</li>{{end}}</ol>` +
		`{{else}}<p class="empty">No transcript available.</p>{{end}}`))

var statsTmpl = template.Must(template.New("stats").Parse(
	`<table class="statistics">{{range .}}<tr><th>{{.Key}}</th><td>{{.Value}}</td></tr>{{end}}</table>`))

type kv struct {
	Key   string
	Value string
}

type panelData struct {
	Name   string
	Label  string
	Input  []kv
	Layout Layout
	Body   template.HTML
}

// renderTool builds the panel for one invocation. Any panic or decode error
// while rendering the result becomes an inline notice.
func renderTool(inv domain.ToolInvocation) (block Block) {
	label := toolLabels[inv.ToolName]
	if label == "" {
		label = inv.ToolName
	}

	block = Block{Kind: BlockTool, ToolName: inv.ToolName}

	layout, body, err := safeResult(inv)
	if err != nil {
		layout = LayoutError
		body = template.HTML(`<p class="notice">` + template.HTMLEscapeString(cannotDisplay) + `</p>`)
	}
	block.Layout = layout

	var buf bytes.Buffer
	if err := panelTmpl.Execute(&buf, panelData{
		Name:   inv.ToolName,
		Label:  label,
		Input:  describeInput(inv.Input),
		Layout: layout,
		Body:   body,
	}); err != nil {
		return cannotDisplayBlock(inv.ToolName)
	}
	block.HTML = buf.String()
	return block
}

// cannotDisplayBlock stands in for a tool part whose shape is unusable.
func cannotDisplayBlock(toolName string) Block {
	return Block{
		Kind:     BlockTool,
		ToolName: toolName,
		Layout:   LayoutError,
		HTML:     `<div class="tool-panel"><p class="notice">` + template.HTMLEscapeString(cannotDisplay) + `</p></div>`,
	}
}

func safeResult(inv domain.ToolInvocation) (layout Layout, body template.HTML, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()

	if inv.State != domain.ToolStateResult {
		return LayoutPending, template.HTML(`<p class="pending">Running…</p>`), nil
	}
	if len(inv.Result) == 0 {
		return "", "", fmt.Errorf("missing result")
	}

	var value any
	if err := json.Unmarshal(inv.Result, &value); err != nil {
		return "", "", err
	}

	switch classify(value) {
	case LayoutTranscript:
		body, err := renderTranscript(inv.Result)
		return LayoutTranscript, body, err
	case LayoutStatistics:
		body, err := renderStatistics(value.(map[string]any))
		return LayoutStatistics, body, err
	default:
		var pretty bytes.Buffer
		enc := json.NewEncoder(&pretty)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(value); err != nil {
			return "", "", err
		}
		return LayoutGeneric, template.HTML(`<pre class="json">` + template.HTMLEscapeString(strings.TrimSpace(pretty.String())) + `</pre>`), nil
	}
}

func classify(value any) Layout {
	obj, ok := value.(map[string]any)
	if !ok {
		return LayoutGeneric
	}
	if _, ok := obj["transcript"]; ok {
		return LayoutTranscript
	}
	if _, ok := obj["statistics"].(map[string]any); ok {
		return LayoutStatistics
	}
	for _, k := range statKeys {
		if _, ok := obj[k]; ok {
			return LayoutStatistics
		}
	}
	return LayoutGeneric
}

func renderTranscript(raw json.RawMessage) (template.HTML, error) {
	var res struct {
		Transcript []domain.Segment `json:"transcript"`
		Cache      bool             `json:"cache"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("unexpected transcript shape: %w", err)
	}

	var buf bytes.Buffer
	err := transcriptTmpl.Execute(&buf, struct {
		Segments []domain.Segment
		Cache    bool
	}{res.Transcript, res.Cache})
	return template.HTML(buf.String()), err
}

func renderStatistics(obj map[string]any) (template.HTML, error) {
	stats := obj
	if nested, ok := obj["statistics"].(map[string]any); ok {
		stats = nested
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]kv, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, kv{Key: humanize(k), Value: formatStat(stats[k])})
	}

	var buf bytes.Buffer
	err := statsTmpl.Execute(&buf, rows)
	return template.HTML(buf.String()), err
}

func formatStat(v any) string {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return groupThousands(int64(n))
		}
		return fmt.Sprintf("%.2f", n)
	case string:
		return n
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// humanize turns "viewCount" into "View count".
func humanize(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case i == 0:
			b.WriteString(strings.ToUpper(string(r)))
		case r >= 'A' && r <= 'Z':
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(string(r)))
		case r == '_' || r == '-':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// describeInput lists top-level input fields. Inputs that are not a JSON
// object are shown as a single raw value.
func describeInput(raw json.RawMessage) []kv {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return []kv{{Key: "input", Value: string(raw)}}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]kv, 0, len(keys))
	for _, k := range keys {
		v := obj[k]
		s, ok := v.(string)
		if !ok {
			b, _ := json.Marshal(v)
			s = string(b)
		}
		out = append(out, kv{Key: humanize(k), Value: s})
	}
	return out
}
