package domain

import "time"

// Title is one generated title. Titles are append-only per (owner, video).
type Title struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	OwnerUserID string    `gorm:"type:text;not null;index:idx_titles_owner;index:idx_titles_owner_video" json:"owner_user_id"`
	VideoID     string    `gorm:"type:text;not null;index:idx_titles_video;index:idx_titles_owner_video" json:"video_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Title) TableName() string {
	return "titles"
}
