package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
	"github.com/tbourn/go-blog-engine/internal/repo"
	"github.com/tbourn/go-blog-engine/internal/utils"
)

// CreatePost stores a new post authored by the caller and indexes it under
// the caller's identity. Title and body are stored as given.
func (s *BlogService) CreatePost(ctx context.Context, ec domain.ExecutionContext, title, body string) (id uint64, err error) {
	ctx, done := s.begin(ctx, opCreatePost, &ec)
	defer func() { done(err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := s.IDs.Next(ctx, tx, domain.CounterPosts)
		if err != nil {
			return fmt.Errorf("allocate post id: %w", err)
		}
		if _, err := repo.CreatePost(ctx, tx, pid, title, body, ec.Caller, ec.Now); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		if err := repo.AddAuthorPost(ctx, tx, ec.Caller, pid); err != nil {
			return fmt.Errorf("index post: %w", err)
		}
		id = pid
		return nil
	})
	if err != nil {
		return 0, err
	}

	lg := s.logger(opCreatePost, &ec)
	lg.Info().Uint64("post_id", id).Msgf("Post '%s' was created", title)
	return id, nil
}

// GetPost returns the post with its comment ids, voters and donations, or
// ErrPostNotFound.
func (s *BlogService) GetPost(ctx context.Context, id uint64) (post *domain.Post, err error) {
	ctx, done := s.begin(ctx, opGetPost, nil, idAttr("post.id", id))
	defer func() { done(err) }()

	p, err := requirePost(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	posts := []domain.Post{*p}
	if err := repo.HydratePosts(ctx, s.DB, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// GetPosts returns every live post in ascending id order.
func (s *BlogService) GetPosts(ctx context.Context) (posts []domain.Post, err error) {
	ctx, done := s.begin(ctx, opGetPosts, nil)
	defer func() { done(err) }()

	posts, err = repo.ListPosts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if err := repo.HydratePosts(ctx, s.DB, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetUserPosts returns the posts author created, oldest first. Posts that
// have since been deleted are skipped even though the author index still
// lists them.
func (s *BlogService) GetUserPosts(ctx context.Context, author string) (posts []domain.Post, err error) {
	ctx, done := s.begin(ctx, opGetUserPosts, nil, attribute.String("author", author))
	defer func() { done(err) }()

	ids, err := repo.ListAuthorPostIDs(ctx, s.DB, author)
	if err != nil {
		return nil, err
	}
	posts, err = repo.ListPostsByIDs(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	if err := repo.HydratePosts(ctx, s.DB, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPagingPosts returns page (1-based) of the live posts in ascending id
// order. A page past the end is empty, not an error.
func (s *BlogService) GetPagingPosts(ctx context.Context, page, pageSize int) (posts []domain.Post, err error) {
	ctx, done := s.begin(ctx, opGetPagingPosts, nil,
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer func() { done(err) }()

	if err = validatePage(page, pageSize); err != nil {
		return nil, err
	}

	// Count and window in one transaction so the page matches the total.
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := repo.CountPosts(ctx, tx)
		if err != nil {
			return err
		}
		w := utils.PageWindow(page, pageSize, int(total))
		if w.Empty() {
			posts = []domain.Post{}
			return nil
		}
		posts, err = repo.ListPostsPage(ctx, tx, w.Start, w.Limit())
		if err != nil {
			return err
		}
		return repo.HydratePosts(ctx, tx, posts)
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// GetTotalPosts returns the number of live posts.
func (s *BlogService) GetTotalPosts(ctx context.Context) (total int64, err error) {
	ctx, done := s.begin(ctx, opGetTotalPosts, nil)
	defer func() { done(err) }()

	return repo.CountPosts(ctx, s.DB)
}

// GetNextPostID returns the id the next CreatePost will be assigned.
func (s *BlogService) GetNextPostID(ctx context.Context) (next uint64, err error) {
	ctx, done := s.begin(ctx, opGetNextPostID, nil)
	defer func() { done(err) }()

	return s.IDs.Peek(ctx, s.DB, domain.CounterPosts)
}

// DeletePost tombstones a post. Only the owner may delete. Comments,
// votes, donations and the author index entry are left in place.
func (s *BlogService) DeletePost(ctx context.Context, ec domain.ExecutionContext, id uint64) (err error) {
	ctx, done := s.begin(ctx, opDeletePost, &ec, idAttr("post.id", id))
	defer func() { done(err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requirePost(ctx, tx, id); err != nil {
			return err
		}
		if err := s.authorizeOwner(ec); err != nil {
			return err
		}
		return repo.DeletePost(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	lg := s.logger(opDeletePost, &ec)
	lg.Info().Uint64("post_id", id).Msgf("Post %d was deleted", id)
	return nil
}
