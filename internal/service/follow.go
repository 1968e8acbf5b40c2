package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/repository"
)

// FollowService manages follow relationships. The dashboard only ever shows
// the follower count.
type FollowService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	logger  *slog.Logger
}

func NewFollowService(users repository.UserRepository, follows repository.FollowRepository, logger *slog.Logger) *FollowService {
	return &FollowService{users: users, follows: follows, logger: logger}
}

// Follow makes followerID follow creatorID. Following yourself, following a
// non-creator, and following twice are all rejected.
func (s *FollowService) Follow(ctx context.Context, followerID, creatorID string) error {
	if followerID == "" {
		return apperror.Unauthorized("not signed in")
	}
	if followerID == creatorID {
		return apperror.ValidationFailed("creator", "you cannot follow yourself")
	}

	creator, err := s.users.GetUserByID(ctx, creatorID)
	if err != nil {
		return fmt.Errorf("service/follow: getting creator %s: %w", creatorID, err)
	}
	if !creator.IsCreator() {
		return apperror.ValidationFailed("creator", "only creators can be followed")
	}

	if err := s.follows.CreateFollow(ctx, &model.Follow{CreatorID: creatorID, FollowerID: followerID}); err != nil {
		return fmt.Errorf("service/follow: %s following %s: %w", followerID, creatorID, err)
	}
	s.logger.Info("creator followed", slog.String("creatorID", creatorID), slog.String("followerID", followerID))
	return nil
}

// Unfollow removes the relationship. Not following is ErrNotFound.
func (s *FollowService) Unfollow(ctx context.Context, followerID, creatorID string) error {
	if followerID == "" {
		return apperror.Unauthorized("not signed in")
	}
	if err := s.follows.DeleteFollow(ctx, creatorID, followerID); err != nil {
		return fmt.Errorf("service/follow: %s unfollowing %s: %w", followerID, creatorID, err)
	}
	return nil
}

// Followers returns the follower count of creatorID.
func (s *FollowService) Followers(ctx context.Context, creatorID string) (int64, error) {
	n, err := s.follows.CountFollowers(ctx, creatorID)
	if err != nil {
		return 0, fmt.Errorf("service/follow: counting followers of %s: %w", creatorID, err)
	}
	return n, nil
}
