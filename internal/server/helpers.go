package server

import (
	"errors"
	"time"

	"quill/internal/models"
	"quill/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts the :id route parameter as a positive uint.
// On failure it writes a 404 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Post", c.Params("id")))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// respondAppError maps an application error to its HTTP status.
func respondAppError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "NOT_FOUND":
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		case "VALIDATION_ERROR":
			return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
		case "UNAUTHORIZED":
			return models.RespondWithError(c, fiber.StatusUnauthorized, appErr)
		case "FORBIDDEN":
			return models.RespondWithError(c, fiber.StatusForbidden, appErr)
		}
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}

type pageLister func(limit, offset int) ([]*models.Post, int64, error)

// paginate fetches one feed page. A page number past the end is clamped
// to the last page, which costs a second query.
func (s *Server) paginate(c *fiber.Ctx, list pageLister) ([]*models.Post, pagination.Window, error) {
	size := s.config.PageSize
	requested := c.QueryInt("page", 1)
	if requested < 1 {
		requested = 1
	}

	posts, total, err := list(size, (requested-1)*size)
	if err != nil {
		return nil, pagination.Window{}, err
	}

	window := pagination.New(total, size, requested)
	if window.Offset() != (requested-1)*size {
		posts, _, err = list(size, window.Offset())
		if err != nil {
			return nil, pagination.Window{}, err
		}
	}
	return posts, window, nil
}

func (s *Server) userJSON(user *models.User) fiber.Map {
	return fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"bio":      user.Bio,
	}
}

func groupJSON(group *models.Group) fiber.Map {
	return fiber.Map{
		"id":          group.ID,
		"title":       group.Title,
		"slug":        group.Slug,
		"description": group.Description,
	}
}

func (s *Server) postJSON(post *models.Post) fiber.Map {
	payload := fiber.Map{
		"id":             post.ID,
		"text":           post.Text,
		"author":         post.User.Username,
		"image":          s.images.URL(post.ImagePath),
		"comments_count": post.CommentsCount,
		"created_at":     post.CreatedAt.Format(time.RFC3339),
	}
	if post.Group != nil {
		payload["group"] = groupJSON(post.Group)
	}
	return payload
}

func (s *Server) postListJSON(posts []*models.Post) []fiber.Map {
	out := make([]fiber.Map, 0, len(posts))
	for _, post := range posts {
		out = append(out, s.postJSON(post))
	}
	return out
}

func (s *Server) commentJSON(comment *models.Comment) fiber.Map {
	return fiber.Map{
		"id":         comment.ID,
		"text":       comment.Text,
		"author":     comment.User.Username,
		"post_id":    comment.PostID,
		"created_at": comment.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) commentListJSON(comments []*models.Comment) []fiber.Map {
	out := make([]fiber.Map, 0, len(comments))
	for _, comment := range comments {
		out = append(out, s.commentJSON(comment))
	}
	return out
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || next[0] != '/' {
		return "/"
	}
	if len(next) > 1 && next[1] == '/' {
		return "/"
	}
	return next
}
