package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Index handles GET /, the paginated feed of all posts newest first.
func (s *Server) Index(c *fiber.Ctx) error {
	posts, window, err := s.paginate(c, func(limit, offset int) ([]*models.Post, int64, error) {
		return s.postService.ListPosts(c.Context(), limit, offset)
	})
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts": s.postListJSON(posts),
		"page":  window,
	})
}

// PostDetail handles GET /posts/:id/.
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	comments, err := s.commentService.ListForPost(c.Context(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	authorTotal, err := s.postRepo.CountByAuthor(c.Context(), post.UserID)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"post":               s.postJSON(post),
		"comments":           s.commentListJSON(comments),
		"author_posts_count": authorTotal,
	})
}

// CreatePostForm handles GET /create/, returning what the post form
// needs: the selectable groups.
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
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

// CreatePost handles POST /create/ with an optional image upload. On
// success the browser lands on the author's profile page.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	text := c.FormValue("text")
	groupID, err := parseGroupField(c.FormValue("group"))
	if err != nil {
		return respondAppError(c, err)
	}
	imagePath, err := s.saveUploadedImage(c)
	if err != nil {
		return respondAppError(c, err)
	}

	if _, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:    userID,
		Text:      text,
		GroupID:   groupID,
		ImagePath: imagePath,
	}); err != nil {
		return respondAppError(c, err)
	}

	author, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Redirect("/profile/"+author.Username+"/", fiber.StatusFound)
}

// EditPostForm handles GET /posts/:id/edit/. Non-authors are bounced to
// the post detail page instead of getting the form.
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}
	userID := c.Locals("userID").(uint)

	post, err := s.postService.GetPost(c.Context(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	if post.UserID != userID {
		return c.Redirect(postDetailPath(id), fiber.StatusFound)
	}

	groups, err := s.groupRepo.List(c.Context())
	if err != nil {
		return respondAppError(c, err)
	}
	groupsPayload := make([]fiber.Map, 0, len(groups))
	for _, group := range groups {
		groupsPayload = append(groupsPayload, groupJSON(group))
	}

	return c.JSON(fiber.Map{
		"post":   s.postJSON(post),
		"groups": groupsPayload,
	})
}

// EditPost handles POST /posts/:id/edit/. Only the author can change a
// post; anyone else is redirected to the detail page with the post
// untouched.
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}
	userID := c.Locals("userID").(uint)

	// Ownership is settled before the form is parsed: a non-author gets
	// the detail redirect no matter what the submission contains.
	post, err := s.postService.GetPost(c.Context(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	if post.UserID != userID {
		return c.Redirect(postDetailPath(id), fiber.StatusFound)
	}

	text := c.FormValue("text")
	groupID, err := parseGroupField(c.FormValue("group"))
	if err != nil {
		return respondAppError(c, err)
	}
	imagePath, err := s.saveUploadedImage(c)
	if err != nil {
		return respondAppError(c, err)
	}

	if _, err := s.postService.EditPost(c.Context(), service.EditPostInput{
		UserID:    userID,
		PostID:    id,
		Text:      text,
		GroupID:   groupID,
		ImagePath: imagePath,
	}); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "FORBIDDEN" {
			return c.Redirect(postDetailPath(id), fiber.StatusFound)
		}
		return respondAppError(c, err)
	}

	return c.Redirect(postDetailPath(id), fiber.StatusFound)
}

func postDetailPath(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// parseGroupField parses the optional group select value.
func parseGroupField(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil, models.NewFieldValidationError(map[string]string{
			"group": "select a valid group",
		})
	}
	groupID := uint(id)
	return &groupID, nil
}

// saveUploadedImage stores the optional image form file and returns its
// media-relative path, or "" when the form carried no image.
func (s *Server) saveUploadedImage(c *fiber.Ctx) (string, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil || fileHeader == nil {
		return "", nil
	}
	content, err := readMultipartFile(fileHeader)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return s.images.SavePost(fileHeader.Filename, content)
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
