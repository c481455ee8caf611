package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Segment is one timestamped line of a transcript.
type Segment struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Segments is stored as a JSON text column.
type Segments []Segment

// Value implements the driver.Valuer interface for database serialization.
func (s Segments) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (s *Segments) Scan(value interface{}) error {
	if value == nil {
		*s = Segments{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Segments")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, s)
}

// Transcript caches the segments fetched for a (owner, video) pair.
// The unique index lets the repository insert atomically if absent.
type Transcript struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	OwnerUserID string    `gorm:"type:text;not null;index:idx_transcripts_owner;uniqueIndex:idx_transcripts_owner_video" json:"owner_user_id"`
	VideoID     string    `gorm:"type:text;not null;index:idx_transcripts_video;uniqueIndex:idx_transcripts_owner_video" json:"video_id"`
	Segments    Segments  `gorm:"type:text" json:"segments"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Transcript) TableName() string {
	return "transcripts"
}
