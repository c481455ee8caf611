package domain

import "time"

// ImageKind identifies the generator that produced an image.
type ImageKind string

const (
	ImageKindDalle ImageKind = "dalle"
)

// Image is a generated thumbnail. StorageKey is resolved to a URL at read time.
type Image struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	OwnerUserID string    `gorm:"type:text;not null;index:idx_images_owner;index:idx_images_owner_video" json:"owner_user_id"`
	VideoID     string    `gorm:"type:text;not null;index:idx_images_video;index:idx_images_owner_video" json:"video_id"`
	StorageKey  string    `gorm:"type:text;not null" json:"storage_key"`
	PreviewKey  string    `gorm:"type:text" json:"preview_key,omitempty"`
	Title       string    `gorm:"type:text" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Kind        ImageKind `gorm:"type:text;default:dalle" json:"kind"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`

	URL        string `gorm:"-" json:"url,omitempty"`
	PreviewURL string `gorm:"-" json:"preview_url,omitempty"`
}

func (Image) TableName() string {
	return "images"
}
