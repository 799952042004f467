package models

import (
	"encoding/json"
	"time"
)

// Like is a single row of a post's like set. The composite primary key makes
// the storage layer enforce at-most-one like per user and post.
type Like struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

// MarshalJSON renders a like as the bare liking user id, so a post's likes
// field serializes as a set of user identifiers.
func (l Like) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.UserID)
}

// UnmarshalJSON accepts the bare user id form, so cached posts round-trip.
func (l *Like) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &l.UserID)
}
