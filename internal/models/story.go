package models

import "time"

// StoryWindow is the visibility window of a story after upload.
const StoryWindow = 24 * time.Hour

// Story is ephemeral content visible for StoryWindow after creation.
// Expiry is enforced at read time; there is no background sweeper.
type Story struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	// ViewsCount is not persisted; computed at query time
	ViewsCount int `gorm:"->" json:"views_count"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

// ActiveAt reports whether the story is inside its visibility window at t.
func (s *Story) ActiveAt(t time.Time) bool {
	return t.Sub(s.CreatedAt) < StoryWindow
}

// StoryView records that a viewer saw a story. Repeated views by the same
// viewer do not create additional rows.
type StoryView struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	StoryID  uint      `gorm:"not null;uniqueIndex:idx_story_viewer" json:"story_id"`
	ViewerID uint      `gorm:"not null;uniqueIndex:idx_story_viewer" json:"viewer_id"`
	ViewedAt time.Time `gorm:"autoCreateTime" json:"viewed_at"`

	Story  Story `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE" json:"-"`
	Viewer User  `gorm:"foreignKey:ViewerID" json:"viewer"`
}
