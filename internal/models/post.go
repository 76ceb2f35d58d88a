package models

import (
	"time"

	"gorm.io/gorm"
)

// PostStatus is the moderation lifecycle state of a post.
type PostStatus string

const (
	PostStatusPending  PostStatus = "pending"
	PostStatusApproved PostStatus = "approved"
	PostStatusRejected PostStatus = "rejected"
)

// Terminal reports whether the status permits no further transition.
func (s PostStatus) Terminal() bool {
	return s == PostStatusApproved || s == PostStatusRejected
}

// Post represents an eco-action post. Posts start pending and transition
// exactly once to approved or rejected, recording the reviewing moderator.
type Post struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"not null" json:"title"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	ImageURL   string     `json:"image_url"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	User       User       `gorm:"foreignKey:UserID" json:"user"`
	Status     PostStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ReviewedBy *uint      `gorm:"index" json:"reviewed_by,omitempty"`
	Reviewer   *User      `gorm:"foreignKey:ReviewedBy;constraint:OnDelete:SET NULL" json:"reviewer,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool           `gorm:"->" json:"liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
