package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

const mathToken = "CKMATHTOKEN"

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldhtml.WithHardWraps()),
	)
}

type mathSpan struct {
	tex     string
	display bool
}

// markdownToHTML renders markdown with $inline$ and $$display$$ math. Math
// is swapped for placeholder tokens before goldmark sees it so emphasis
// markers inside formulas are left alone.
func markdownToHTML(md goldmark.Markdown, src string) (string, error) {
	text, spans := extractMath(src)

	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	out := buf.String()
	for i, s := range spans {
		var repl string
		if s.display {
			repl = `<span class="math math-display">` + html.EscapeString(s.tex) + `</span>`
		} else {
			repl = `<span class="math math-inline">` + html.EscapeString(s.tex) + `</span>`
		}
		out = strings.Replace(out, placeholder(i), repl, 1)
	}
	return out, nil
}

func placeholder(i int) string {
	return fmt.Sprintf("%s%dX", mathToken, i)
}

// extractMath replaces math spans outside code with placeholders.
func extractMath(src string) (string, []mathSpan) {
	if !strings.Contains(src, "$") {
		return src, nil
	}

	var (
		out     strings.Builder
		spans   []mathSpan
		inFence bool
	)

	lines := strings.SplitAfter(src, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			out.WriteString(line)
			continue
		}
		if inFence {
			out.WriteString(line)
			continue
		}

		// Display math may span lines: join until the closing $$.
		if strings.Count(line, "$$")%2 == 1 {
			j := i + 1
			for j < len(lines) && strings.Count(lines[j], "$$")%2 == 0 {
				j++
			}
			if j < len(lines) {
				line = strings.Join(lines[i:j+1], "")
				i = j
			}
		}
		out.WriteString(replaceMathInLine(line, &spans))
	}
	return out.String(), spans
}

func replaceMathInLine(line string, spans *[]mathSpan) string {
	var out strings.Builder
	inCode := false

	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == '`':
			inCode = !inCode
			out.WriteByte(c)
			i++
		case inCode || c != '$':
			out.WriteByte(c)
			i++
		case c == '$' && i > 0 && line[i-1] == '\\':
			out.WriteByte(c)
			i++
		case strings.HasPrefix(line[i:], "$$"):
			end := strings.Index(line[i+2:], "$$")
			if end < 0 {
				out.WriteString(line[i:])
				return out.String()
			}
			tex := strings.TrimSpace(line[i+2 : i+2+end])
			*spans = append(*spans, mathSpan{tex: tex, display: true})
			out.WriteString(placeholder(len(*spans) - 1))
			i += end + 4
		default:
			end := inlineMathEnd(line, i+1)
			if end < 0 {
				out.WriteByte(c)
				i++
				continue
			}
			*spans = append(*spans, mathSpan{tex: line[i+1 : end]})
			out.WriteString(placeholder(len(*spans) - 1))
			i = end + 1
		}
	}
	return out.String()
}

// inlineMathEnd finds the closing $ of an inline span opened before start.
// Spans must not start or end with a space and must not be followed by a
// digit, so "costs $5 and $10" stays plain text.
func inlineMathEnd(line string, start int) int {
	if start >= len(line) || line[start] == ' ' || line[start] == '$' {
		return -1
	}
	for j := start; j < len(line); j++ {
		if line[j] == '\n' {
			return -1
		}
		if line[j] != '$' || line[j-1] == '\\' {
			continue
		}
		if line[j-1] == ' ' {
			return -1
		}
		if j+1 < len(line) && line[j+1] >= '0' && line[j+1] <= '9' {
			return -1
		}
		return j
	}
	return -1
}
