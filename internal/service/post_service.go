package service

import (
	"context"
	"strings"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

const maxPostTextLen = 50000

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
}

type CreatePostInput struct {
	UserID    uint
	Text      string
	GroupID   *uint
	ImagePath string
}

type EditPostInput struct {
	UserID    uint
	PostID    uint
	Text      string
	GroupID   *uint
	ImagePath string
}

func NewPostService(postRepo repository.PostRepository, groupRepo repository.GroupRepository) *PostService {
	return &PostService{postRepo: postRepo, groupRepo: groupRepo}
}

func (s *PostService) validatePost(ctx context.Context, text string, groupID *uint) error {
	fields := map[string]string{}
	if strings.TrimSpace(text) == "" {
		fields["text"] = "text is required"
	} else if len(text) > maxPostTextLen {
		fields["text"] = "text is too long"
	}
	if groupID != nil {
		if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
			fields["group"] = "group does not exist"
		}
	}
	if len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := s.validatePost(ctx, in.Text, in.GroupID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:      in.Text,
		UserID:    in.UserID,
		GroupID:   in.GroupID,
		ImagePath: in.ImagePath,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreated.Inc()
	return s.postRepo.GetByID(ctx, post.ID)
}

// EditPost updates a post's text, group and image. Only the author may
// edit; authorship itself never changes.
func (s *PostService) EditPost(ctx context.Context, in EditPostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("Only the author can edit this post")
	}
	if err := s.validatePost(ctx, in.Text, in.GroupID); err != nil {
		return nil, err
	}

	post.Text = in.Text
	post.GroupID = in.GroupID
	if in.ImagePath != "" {
		post.ImagePath = in.ImagePath
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	total, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	posts, err := s.postRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *PostService) ListGroupPosts(ctx context.Context, groupID uint, limit, offset int) ([]*models.Post, int64, error) {
	total, err := s.postRepo.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}
	posts, err := s.postRepo.ListByGroup(ctx, groupID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *PostService) ListAuthorPosts(ctx context.Context, authorID uint, limit, offset int) ([]*models.Post, int64, error) {
	total, err := s.postRepo.CountByAuthor(ctx, authorID)
	if err != nil {
		return nil, 0, err
	}
	posts, err := s.postRepo.ListByAuthor(ctx, authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListFeedPosts returns the posts of every author the user follows.
func (s *PostService) ListFeedPosts(ctx context.Context, followerID uint, limit, offset int) ([]*models.Post, int64, error) {
	total, err := s.postRepo.CountFeed(ctx, followerID)
	if err != nil {
		return nil, 0, err
	}
	posts, err := s.postRepo.ListFeed(ctx, followerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
