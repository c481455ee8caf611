package service

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkSplitter separates <think>...</think> spans from visible text in a
// token stream. Tags may be split across tokens.
type thinkSplitter struct {
	inThink bool
	pending string
}

// Feed processes a token and returns (reasoning, text) ready to emit.
func (p *thinkSplitter) Feed(token string) (string, string) {
	var reasoning, text strings.Builder
	buf := p.pending + token
	p.pending = ""

	for buf != "" {
		tag := thinkOpen
		if p.inThink {
			tag = thinkClose
		}

		if idx := strings.Index(buf, tag); idx != -1 {
			p.write(&reasoning, &text, buf[:idx])
			buf = buf[idx+len(tag):]
			p.inThink = !p.inThink
			continue
		}

		// Hold back a trailing partial tag until the next token.
		hold := partialSuffix(buf, tag)
		p.write(&reasoning, &text, buf[:len(buf)-hold])
		p.pending = buf[len(buf)-hold:]
		break
	}

	return reasoning.String(), text.String()
}

// Flush returns any held-back bytes at end of stream.
func (p *thinkSplitter) Flush() (string, string) {
	rest := p.pending
	p.pending = ""
	if p.inThink {
		return rest, ""
	}
	return "", rest
}

func (p *thinkSplitter) write(reasoning, text *strings.Builder, s string) {
	if p.inThink {
		reasoning.WriteString(s)
	} else {
		text.WriteString(s)
	}
}

// partialSuffix returns the length of the longest suffix of s that is a
// proper prefix of tag.
func partialSuffix(s, tag string) int {
	max := len(tag) - 1
	if max > len(s) {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}

// splitThink separates a complete response into (reasoning, text).
func splitThink(content string) (string, string) {
	p := &thinkSplitter{}
	r, t := p.Feed(content)
	fr, ft := p.Flush()
	return strings.TrimSpace(r + fr), strings.TrimSpace(t + ft)
}
