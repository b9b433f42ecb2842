package seed

import (
	"errors"
	"fmt"

	"quill/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInGroup is a permanent community that every environment carries.
type BuiltInGroup struct {
	Title       string
	Slug        string
	Description string
}

// BuiltInGroups defines the permanent communities.
var BuiltInGroups = []BuiltInGroup{
	{Title: "The Commons", Slug: "commons", Description: "General discussion for everyone."},
	{Title: "The Notebook", Slug: "writing", Description: "Essays, drafts, and writing craft."},
	{Title: "The Darkroom", Slug: "photography", Description: "Photography and image making."},
	{Title: "The Screening Room", Slug: "movies", Description: "Film discussion and recommendations."},
	{Title: "The Stacks", Slug: "books", Description: "Books and reading lists."},
	{Title: "The Listening Post", Slug: "music", Description: "Music discovery and discussion."},
	{Title: "The Workshop", Slug: "development", Description: "Software development discussions."},
	{Title: "The Trailhead", Slug: "travel", Description: "Trips, routes, and places."},
	{Title: "The Kitchen", Slug: "food", Description: "Food, cooking, and recipes."},
	{Title: "The Arcade", Slug: "gaming", Description: "Gaming across all platforms."},
}

// Groups upserts the built-in groups. Safe to run on every startup.
func Groups(db *gorm.DB) error {
	for _, g := range BuiltInGroups {
		group := models.Group{
			Title:       g.Title,
			Slug:        g.Slug,
			Description: g.Description,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(&group).Error
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("seed group %q: %w", g.Slug, err)
		}
	}
	return nil
}
