package server

import (
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /posts/:id/comment/ and returns the browser
// to the post's detail page.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}
	userID := c.Locals("userID").(uint)

	if _, err := s.commentService.AddComment(c.Context(), service.AddCommentInput{
		UserID: userID,
		PostID: id,
		Text:   c.FormValue("text"),
	}); err != nil {
		return respondAppError(c, err)
	}

	return c.Redirect(postDetailPath(id), fiber.StatusFound)
}
