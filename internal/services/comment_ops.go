package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
	"github.com/tbourn/go-blog-engine/internal/repo"
	"github.com/tbourn/go-blog-engine/internal/utils"
)

// CreateComment attaches a new comment by the caller to postID and returns
// its id. The body must be at least MinCommentRunes characters long,
// counted on its NFC form so combining sequences count once.
func (s *BlogService) CreateComment(ctx context.Context, ec domain.ExecutionContext, postID uint64, body string) (id uint64, err error) {
	ctx, done := s.begin(ctx, opCreateComment, &ec, idAttr("post.id", postID))
	defer func() { done(err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requirePost(ctx, tx, postID); err != nil {
			return err
		}
		if n := commentLength(body); n < s.MinCommentRunes {
			return fmt.Errorf("%w: got %d characters, need at least %d", ErrCommentTooShort, n, s.MinCommentRunes)
		}

		cid, err := s.IDs.Next(ctx, tx, domain.CounterComments)
		if err != nil {
			return fmt.Errorf("allocate comment id: %w", err)
		}
		if _, err := repo.CreateComment(ctx, tx, cid, postID, body, ec.Caller, ec.Now); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		id = cid
		return nil
	})
	if err != nil {
		return 0, err
	}

	lg := s.logger(opCreateComment, &ec)
	lg.Info().Uint64("post_id", postID).Uint64("comment_id", id).Msgf("Comment %d was added to post %d", id, postID)
	return id, nil
}

// DeleteComment removes commentID from postID's comment list. Only the
// owner may delete. The comment itself stays retrievable through
// GetComment. A comment that is not attached to postID is reported as
// ErrCommentNotFound.
func (s *BlogService) DeleteComment(ctx context.Context, ec domain.ExecutionContext, postID, commentID uint64) (err error) {
	ctx, done := s.begin(ctx, opDeleteComment, &ec,
		idAttr("post.id", postID),
		idAttr("comment.id", commentID),
	)
	defer func() { done(err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requirePost(ctx, tx, postID); err != nil {
			return err
		}
		c, err := requireComment(ctx, tx, commentID)
		if err != nil {
			return err
		}
		if c.PostID != postID || c.DetachedAt != nil {
			return ErrCommentNotFound
		}
		if err := s.authorizeOwner(ec); err != nil {
			return err
		}
		return repo.DetachComment(ctx, tx, postID, commentID, ec.Now)
	})
	if err != nil {
		return err
	}

	lg := s.logger(opDeleteComment, &ec)
	lg.Info().Uint64("post_id", postID).Uint64("comment_id", commentID).Msgf("Comment %d was removed from post %d", commentID, postID)
	return nil
}

// GetComments returns postID's comments in creation order.
func (s *BlogService) GetComments(ctx context.Context, postID uint64) (comments []domain.Comment, err error) {
	ctx, done := s.begin(ctx, opGetComments, nil, idAttr("post.id", postID))
	defer func() { done(err) }()

	if _, err = requirePost(ctx, s.DB, postID); err != nil {
		return nil, err
	}
	return repo.ListPostComments(ctx, s.DB, postID)
}

// GetPagingComments returns page (1-based) of postID's comments in
// creation order. A page past the end is empty.
func (s *BlogService) GetPagingComments(ctx context.Context, postID uint64, page, pageSize int) (comments []domain.Comment, err error) {
	ctx, done := s.begin(ctx, opGetPagingComments, nil,
		idAttr("post.id", postID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer func() { done(err) }()

	if err = validatePage(page, pageSize); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requirePost(ctx, tx, postID); err != nil {
			return err
		}
		total, err := repo.CountPostComments(ctx, tx, postID)
		if err != nil {
			return err
		}
		w := utils.PageWindow(page, pageSize, int(total))
		if w.Empty() {
			comments = []domain.Comment{}
			return nil
		}
		comments, err = repo.ListPostCommentsPage(ctx, tx, postID, w.Start, w.Limit())
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// GetComment returns a comment by id, including comments that have been
// removed from their post.
func (s *BlogService) GetComment(ctx context.Context, id uint64) (comment *domain.Comment, err error) {
	ctx, done := s.begin(ctx, opGetComment, nil, idAttr("comment.id", id))
	defer func() { done(err) }()

	return requireComment(ctx, s.DB, id)
}

// GetPostTotalComments returns the number of comments attached to postID.
func (s *BlogService) GetPostTotalComments(ctx context.Context, postID uint64) (total int64, err error) {
	ctx, done := s.begin(ctx, opGetPostTotalComment, nil, idAttr("post.id", postID))
	defer func() { done(err) }()

	if _, err = requirePost(ctx, s.DB, postID); err != nil {
		return 0, err
	}
	return repo.CountPostComments(ctx, s.DB, postID)
}

// GetTotalComments returns the number of comments ever created across all
// posts, including removed ones.
func (s *BlogService) GetTotalComments(ctx context.Context) (total int64, err error) {
	ctx, done := s.begin(ctx, opGetTotalComments, nil)
	defer func() { done(err) }()

	return repo.CountComments(ctx, s.DB)
}

func requireComment(ctx context.Context, db *gorm.DB, id uint64) (*domain.Comment, error) {
	c, err := repo.GetComment(ctx, db, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("load comment %d: %w", id, err)
	}
	return c, nil
}

// commentLength counts the characters of body in NFC form.
func commentLength(body string) int {
	return utf8.RuneCountInString(norm.NFC.String(body))
}
