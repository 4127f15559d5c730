package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
	"github.com/tbourn/go-blog-engine/internal/repo"
)

// Upvote records the caller's upvote on postID, replacing a downvote if
// the caller had one. Repeating it changes nothing.
func (s *BlogService) Upvote(ctx context.Context, ec domain.ExecutionContext, postID uint64) error {
	return s.castVote(ctx, ec, opUpvote, postID, domain.VoteUp)
}

// Downvote records the caller's downvote on postID, replacing an upvote if
// the caller had one. Repeating it changes nothing.
func (s *BlogService) Downvote(ctx context.Context, ec domain.ExecutionContext, postID uint64) error {
	return s.castVote(ctx, ec, opDownvote, postID, domain.VoteDown)
}

// RemoveUpvote withdraws the caller's upvote on postID. It is a no-op when
// the caller has no upvote there, including when they hold a downvote.
func (s *BlogService) RemoveUpvote(ctx context.Context, ec domain.ExecutionContext, postID uint64) error {
	return s.clearVote(ctx, ec, opRemoveUpvote, postID, domain.VoteUp)
}

// RemoveDownvote withdraws the caller's downvote on postID. It is a no-op
// when the caller has no downvote there.
func (s *BlogService) RemoveDownvote(ctx context.Context, ec domain.ExecutionContext, postID uint64) error {
	return s.clearVote(ctx, ec, opRemoveDownvote, postID, domain.VoteDown)
}

func (s *BlogService) castVote(ctx context.Context, ec domain.ExecutionContext, op string, postID uint64, value int) (err error) {
	ctx, done := s.begin(ctx, op, &ec, idAttr("post.id", postID))
	defer func() { done(err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requirePost(ctx, tx, postID); err != nil {
			return err
		}
		return repo.SetVote(ctx, tx, postID, ec.Caller, value, ec.Now)
	})
	if err != nil {
		return err
	}

	lg := s.logger(op, &ec)
	lg.Info().Uint64("post_id", postID).Msgf("Vote on post %d set to %s", postID, domain.VoteStateOf(value))
	return nil
}

func (s *BlogService) clearVote(ctx context.Context, ec domain.ExecutionContext, op string, postID uint64, value int) (err error) {
	ctx, done := s.begin(ctx, op, &ec, idAttr("post.id", postID))
	defer func() { done(err) }()

	var removed bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requirePost(ctx, tx, postID); err != nil {
			return err
		}
		removed, err = repo.ClearVote(ctx, tx, postID, ec.Caller, value)
		return err
	})
	if err != nil {
		return err
	}

	lg := s.logger(op, &ec)
	lg.Info().Uint64("post_id", postID).Bool("removed", removed).Msgf("Vote on post %d withdrawn", postID)
	return nil
}

// GetVotesStatistics returns postID's upvote and downvote counts.
func (s *BlogService) GetVotesStatistics(ctx context.Context, postID uint64) (stats domain.VoteStats, err error) {
	ctx, done := s.begin(ctx, opGetVotesStatistics, nil, idAttr("post.id", postID))
	defer func() { done(err) }()

	if _, err = requirePost(ctx, s.DB, postID); err != nil {
		return domain.VoteStats{}, err
	}
	return repo.CountVotes(ctx, s.DB, postID)
}

// GetUserVoteStatus returns user's vote state on postID.
func (s *BlogService) GetUserVoteStatus(ctx context.Context, postID uint64, user string) (state domain.VoteState, err error) {
	ctx, done := s.begin(ctx, opGetUserVoteStatus, nil,
		idAttr("post.id", postID),
		attribute.String("user", user),
	)
	defer func() { done(err) }()

	if _, err = requirePost(ctx, s.DB, postID); err != nil {
		return domain.VoteStateNone, err
	}
	v, err := repo.GetVoteValue(ctx, s.DB, postID, user)
	if err != nil {
		return domain.VoteStateNone, err
	}
	return domain.VoteStateOf(v), nil
}
