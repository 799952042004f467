// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post represents a feed post. The author reference is set at creation and
// never changes. LikesCount and Liked are computed at query time and are not
// persisted.
type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	AuthorID      uint      `gorm:"not null;index" json:"authorId"`
	Author        User      `gorm:"foreignKey:AuthorID" json:"author"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	ImagePublicID string    `json:"-"`
	Likes         []Like    `gorm:"foreignKey:PostID" json:"likes"`
	LikesCount    int       `gorm:"->" json:"likesCount"`
	Liked         bool      `gorm:"->" json:"liked"`
	Comments      []Comment `gorm:"foreignKey:PostID" json:"comments"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
