package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListGroups handles GET /groups/.
func (s *Server) ListGroups(c *fiber.Ctx) error {
	groups, err := s.groupRepo.List(c.Context())
	if err != nil {
		return respondAppError(c, err)
	}

	payload := make([]fiber.Map, 0, len(groups))
	for _, group := range groups {
		payload = append(payload, groupJSON(group))
	}
	return c.JSON(fiber.Map{"groups": payload})
}

// GroupPosts handles GET /group/:slug/, the group's paginated posts.
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	group, err := s.groupRepo.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return respondAppError(c, err)
	}

	posts, window, err := s.paginate(c, func(limit, offset int) ([]*models.Post, int64, error) {
		return s.postService.ListGroupPosts(c.Context(), group.ID, limit, offset)
	})
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"group": groupJSON(group),
		"posts": s.postListJSON(posts),
		"page":  window,
	})
}
