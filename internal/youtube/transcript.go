package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/creatorkit/internal/domain"
)

// ErrNoCaptions is returned when a video has no caption track in the language.
var ErrNoCaptions = errors.New("no captions available")

// TranscriptClient fetches captions from the timedtext endpoint.
type TranscriptClient struct {
	client   *resty.Client
	baseURL  string
	language string
}

// NewTranscriptClient creates a new TranscriptClient.
func NewTranscriptClient(cfg *Config) *TranscriptClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.TranscriptBaseURL
	if baseURL == "" {
		baseURL = "https://www.youtube.com/api/timedtext"
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	return &TranscriptClient{client: client, baseURL: baseURL, language: lang}
}

type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	TStartMs int64 `json:"tStartMs"`
	Segs     []struct {
		UTF8 string `json:"utf8"`
	} `json:"segs,omitempty"`
}

// Fetch returns the ordered transcript segments for a video.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: external video id.
//
// Returns:
//   - domain.Segments: segments with "m:ss" or "h:mm:ss" timestamps.
//   - error: ErrNoCaptions when no track exists, or a request error.
func (c *TranscriptClient) Fetch(ctx context.Context, videoID string) (domain.Segments, error) {
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"v":    videoID,
			"lang": c.language,
			"fmt":  "json3",
		}).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("timedtext request failed: %w", err)
	}

	switch httpResp.StatusCode() {
	case 200:
	case 404:
		return nil, ErrNoCaptions
	case 403:
		return nil, fmt.Errorf("access denied: video region restricted or captions disabled")
	case 429:
		return nil, fmt.Errorf("rate limited by YouTube")
	default:
		return nil, fmt.Errorf("timedtext API returned status %d", httpResp.StatusCode())
	}

	// An empty 200 body means no track in the requested language.
	if len(strings.TrimSpace(string(httpResp.Body()))) == 0 {
		return nil, ErrNoCaptions
	}
	return parseTimedtext(httpResp.Body())
}

func parseTimedtext(data []byte) (domain.Segments, error) {
	var resp timedtextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse timedtext response: %w", err)
	}

	segments := make(domain.Segments, 0, len(resp.Events))
	for _, event := range resp.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.UTF8)
		}
		line := strings.TrimSpace(strings.ReplaceAll(text.String(), "\n", " "))
		if line == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Text:      line,
			Timestamp: FormatTimestamp(time.Duration(event.TStartMs) * time.Millisecond),
		})
	}
	if len(segments) == 0 {
		return nil, ErrNoCaptions
	}
	return segments, nil
}

// FormatTimestamp renders an offset as m:ss, or h:mm:ss past the first hour.
func FormatTimestamp(d time.Duration) string {
	total := int(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
