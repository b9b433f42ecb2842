package models

import "time"

// Post is an entry authored by a user, optionally filed under a group and
// illustrated with an uploaded image. The author is set at creation time
// and never changes; listing queries order posts newest-first.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Text    string `gorm:"type:text;not null" json:"text"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"user"`
	GroupID *uint  `gorm:"index" json:"group_id,omitempty"`
	Group   *Group `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// ImagePath is the media-relative path of the uploaded illustration, empty when none.
	ImagePath string `gorm:"size:512" json:"image_path,omitempty"`
	// CommentsCount is not persisted; computed at query time.
	CommentsCount int       `gorm:"->;-:migration" json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
