package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Profile handles GET /profile/:username/, the author's paginated posts
// plus their follow counts.
func (s *Server) Profile(c *fiber.Ctx) error {
	author, err := s.userService.GetByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return respondAppError(c, err)
	}

	posts, window, err := s.paginate(c, func(limit, offset int) ([]*models.Post, int64, error) {
		return s.postService.ListAuthorPosts(c.Context(), author.ID, limit, offset)
	})
	if err != nil {
		return respondAppError(c, err)
	}

	viewerID, _ := s.currentUserID(c)
	followInfo, err := s.followService.Info(c.Context(), viewerID, author.ID)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"author": s.userJSON(author),
		"follow": followInfo,
		"posts":  s.postListJSON(posts),
		"page":   window,
	})
}

// FollowIndex handles GET /follow/, the feed of followed authors.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	posts, window, err := s.paginate(c, func(limit, offset int) ([]*models.Post, int64, error) {
		return s.postService.ListFeedPosts(c.Context(), userID, limit, offset)
	})
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts": s.postListJSON(posts),
		"page":  window,
	})
}

// FollowAuthor handles GET /profile/:username/follow/ and sends the
// browser back to the author's profile.
func (s *Server) FollowAuthor(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	author, err := s.followService.Follow(c.Context(), userID, c.Params("username"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Redirect("/profile/"+author.Username+"/", fiber.StatusFound)
}

// UnfollowAuthor handles GET /profile/:username/unfollow/.
func (s *Server) UnfollowAuthor(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	author, err := s.followService.Unfollow(c.Context(), userID, c.Params("username"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Redirect("/profile/"+author.Username+"/", fiber.StatusFound)
}
