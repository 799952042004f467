package models

import (
	"time"
)

// Comment is an append-only entry on a post. Comments are never edited or
// removed once stored.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"-"`
	AuthorID  uint      `gorm:"not null;index" json:"-"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	Text      string    `gorm:"size:500;not null" json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
