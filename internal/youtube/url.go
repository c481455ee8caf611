package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned when no video id can be derived from the input.
var ErrInvalidURL = errors.New("not a recognized YouTube video URL")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// pathPrefixes carry the id as the next path segment.
var pathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/", "/e/"}

// IsValidVideoID reports whether id has the shape of a YouTube video id.
func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// ParseVideoID extracts the video id from a watch, short, embed, live or
// youtu.be URL. A bare 11-character id is accepted as-is.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if IsValidVideoID(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id = firstSegment(u.Path)
	case youtubeHosts[host]:
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(u.Path, prefix) {
				id = firstSegment(strings.TrimPrefix(u.Path, prefix))
				break
			}
		}
	default:
		return "", ErrInvalidURL
	}

	if !IsValidVideoID(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.Index(path, "/"); idx != -1 {
		path = path[:idx]
	}
	return path
}
