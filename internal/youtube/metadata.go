package youtube

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
)

// ErrVideoNotFound is returned when the Data API has no record for the id.
var ErrVideoNotFound = errors.New("video not found")

// Config holds YouTube API settings.
type Config struct {
	APIKey            string
	BaseURL           string
	TranscriptBaseURL string
	Language          string
	Timeout           time.Duration
}

// MetadataClient fetches live video and channel metadata from the Data API v3.
type MetadataClient struct {
	client  *resty.Client
	apiKey  string
	baseURL string
}

// NewMetadataClient creates a new MetadataClient.
func NewMetadataClient(cfg *Config) *MetadataClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/youtube/v3"
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &MetadataClient{client: client, apiKey: cfg.APIKey, baseURL: baseURL}
}

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnails struct {
	Default *thumbnail `json:"default"`
	Medium  *thumbnail `json:"medium"`
	High    *thumbnail `json:"high"`
	MaxRes  *thumbnail `json:"maxres"`
}

func (t thumbnails) best() string {
	for _, th := range []*thumbnail{t.MaxRes, t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

// Counts are decimal strings in the Data API.
type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string     `json:"title"`
			Description  string     `json:"description"`
			PublishedAt  time.Time  `json:"publishedAt"`
			ChannelID    string     `json:"channelId"`
			ChannelTitle string     `json:"channelTitle"`
			Thumbnails   thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type channelsResponse struct {
	Items []struct {
		Snippet struct {
			Thumbnails thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetVideo fetches metadata for one video.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: external video id.
//
// Returns:
//   - *domain.VideoMetadata: title, statistics and channel details.
//   - error: ErrVideoNotFound when the API has no such video.
func (c *MetadataClient) GetVideo(ctx context.Context, videoID string) (*domain.VideoMetadata, error) {
	var resp videosResponse
	var apiErr apiError
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "snippet,statistics",
			"id":   videoID,
			"key":  c.apiKey,
		}).
		SetResult(&resp).
		SetError(&apiErr).
		Get(c.baseURL + "/videos")
	if err != nil {
		return nil, fmt.Errorf("failed to call YouTube videos API: %w", err)
	}
	if httpResp.IsError() {
		return nil, fmt.Errorf("YouTube videos API returned HTTP %d: %s", httpResp.StatusCode(), apiErr.Error.Message)
	}
	if len(resp.Items) == 0 {
		return nil, ErrVideoNotFound
	}

	item := resp.Items[0]
	meta := &domain.VideoMetadata{
		VideoID:      item.ID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ThumbnailURL: item.Snippet.Thumbnails.best(),
		PublishedAt:  item.Snippet.PublishedAt,
		ViewCount:    parseCount(item.Statistics.ViewCount),
		LikeCount:    parseCount(item.Statistics.LikeCount),
		CommentCount: parseCount(item.Statistics.CommentCount),
		ChannelID:    item.Snippet.ChannelID,
		ChannelTitle: item.Snippet.ChannelTitle,
	}

	if meta.ChannelID != "" {
		if err := c.fillChannel(ctx, meta); err != nil {
			logger.With(logger.Fields{
				logger.FieldVideoID: videoID,
			}).Warn(ctx, "Channel lookup failed: %v", err)
		}
	}

	return meta, nil
}

func (c *MetadataClient) fillChannel(ctx context.Context, meta *domain.VideoMetadata) error {
	var resp channelsResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "snippet,statistics",
			"id":   meta.ChannelID,
			"key":  c.apiKey,
		}).
		SetResult(&resp).
		Get(c.baseURL + "/channels")
	if err != nil {
		return err
	}
	if httpResp.IsError() {
		return fmt.Errorf("HTTP %d", httpResp.StatusCode())
	}
	if len(resp.Items) == 0 {
		return nil
	}
	meta.ChannelThumbnail = resp.Items[0].Snippet.Thumbnails.best()
	meta.SubscriberCount = parseCount(resp.Items[0].Statistics.SubscriberCount)
	return nil
}

// parseCount treats hidden or malformed counts as zero.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
