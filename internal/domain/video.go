package domain

import "time"

// Video associates an external YouTube video id with the user who analyzed it.
// Rows are created once per (owner, video) and never updated.
type Video struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	OwnerUserID string    `gorm:"type:text;not null;index:idx_videos_owner;uniqueIndex:idx_videos_owner_video" json:"owner_user_id"`
	VideoID     string    `gorm:"type:text;not null;index:idx_videos_video;uniqueIndex:idx_videos_owner_video" json:"video_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Video) TableName() string {
	return "videos"
}

// VideoMetadata is the live metadata reported by the video provider.
// It is never persisted.
type VideoMetadata struct {
	VideoID          string    `json:"video_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ThumbnailURL     string    `json:"thumbnail_url"`
	PublishedAt      time.Time `json:"published_at"`
	ViewCount        int64     `json:"view_count"`
	LikeCount        int64     `json:"like_count"`
	CommentCount     int64     `json:"comment_count"`
	ChannelID        string    `json:"channel_id"`
	ChannelTitle     string    `json:"channel_title"`
	ChannelThumbnail string    `json:"channel_thumbnail,omitempty"`
	SubscriberCount  int64     `json:"subscriber_count"`
}
