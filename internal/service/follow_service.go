package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// FollowInfo summarizes a profile's follow state for a viewer.
type FollowInfo struct {
	Following      bool  `json:"following"`
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow subscribes the follower to the author's posts. Repeating the
// call leaves a single subscription in place.
func (s *FollowService) Follow(ctx context.Context, followerID uint, authorUsername string) (*models.User, error) {
	author, err := s.userRepo.GetByUsername(ctx, authorUsername)
	if err != nil {
		return nil, err
	}
	if err := s.followRepo.Follow(ctx, followerID, author.ID); err != nil {
		return nil, err
	}
	observability.FollowEdgesChanged.WithLabelValues("follow").Inc()
	return author, nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID uint, authorUsername string) (*models.User, error) {
	author, err := s.userRepo.GetByUsername(ctx, authorUsername)
	if err != nil {
		return nil, err
	}
	if err := s.followRepo.Unfollow(ctx, followerID, author.ID); err != nil {
		return nil, err
	}
	observability.FollowEdgesChanged.WithLabelValues("unfollow").Inc()
	return author, nil
}

// Info reports whether viewerID follows the author along with the
// author's follower and following counts. viewerID may be zero for an
// anonymous viewer.
func (s *FollowService) Info(ctx context.Context, viewerID, authorID uint) (*FollowInfo, error) {
	info := &FollowInfo{}

	var err error
	if viewerID != 0 {
		info.Following, err = s.followRepo.Exists(ctx, viewerID, authorID)
		if err != nil {
			return nil, err
		}
	}
	info.FollowerCount, err = s.followRepo.CountFollowers(ctx, authorID)
	if err != nil {
		return nil, err
	}
	info.FollowingCount, err = s.followRepo.CountFollowing(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return info, nil
}
