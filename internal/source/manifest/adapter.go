package manifest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/timmy/creatorkit/internal/source"
)

// Line is one JSON Lines record: {"user_id": "...", "url": "..."}.
type Line struct {
	UserID string `json:"user_id"`
	URL    string `json:"url"`
}

// Adapter implements source.Source over a JSON Lines manifest file.
type Adapter struct {
	path   string
	items  []source.VideoItem
	loaded bool
}

// NewAdapter creates a new manifest adapter.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// FromReader creates an adapter over an already-open manifest such as an
// uploaded request body. id names the source in logs.
func FromReader(id string, r io.Reader) (*Adapter, error) {
	items, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return &Adapter{path: id, items: items, loaded: true}, nil
}

// GetSourceID returns the source identifier with a "manifest:" prefix.
func (a *Adapter) GetSourceID() string {
	return "manifest:" + a.path
}

// FetchBatch returns items in file order, using the line index as cursor.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.VideoItem, string, error) {
	if !a.loaded {
		f, err := os.Open(a.path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open manifest: %w", err)
		}
		items, err := Parse(f)
		f.Close()
		if err != nil {
			return nil, "", err
		}
		a.items = items
		a.loaded = true
	}

	startIndex := 0
	if cursor != "" {
		var err error
		startIndex, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
	}
	if startIndex >= len(a.items) {
		return []source.VideoItem{}, "", nil
	}

	endIndex := startIndex + limit
	if endIndex > len(a.items) {
		endIndex = len(a.items)
	}

	nextCursor := ""
	if endIndex < len(a.items) {
		nextCursor = strconv.Itoa(endIndex)
	}
	return a.items[startIndex:endIndex], nextCursor, nil
}

// Parse reads JSON Lines records, skipping blank and malformed lines.
func Parse(r io.Reader) ([]source.VideoItem, error) {
	var items []source.VideoItem
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var rec Line
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.UserID == "" || rec.URL == "" {
			continue
		}
		items = append(items, source.VideoItem{
			SourceID: strconv.Itoa(n),
			UserID:   rec.UserID,
			URL:      rec.URL,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	return items, nil
}
