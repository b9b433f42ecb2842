package models

import "time"

// Follow is a directed edge meaning the follower sees the author's posts
// in their following feed. The composite unique index guarantees at most
// one edge per (follower, author) pair.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follow_edge" json:"follower_id"`
	AuthorID   uint      `gorm:"not null;uniqueIndex:idx_follow_edge" json:"author_id"`
	Follower   User      `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Follow) TableName() string {
	return "follows"
}
