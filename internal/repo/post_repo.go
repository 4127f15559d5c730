// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition. Ownership checks, validation and id
// allocation belong to services.BlogService.
//
// Error semantics:
//   - When a post is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors the raw gorm error is propagated.
//
// Enumeration order for every listing is ascending post id, which is
// creation order because ids come from a monotonic counter.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// maxInParams caps the ids bound into a single IN clause. SQLite rejects
// statements with more than 32766 variables.
var maxInParams = 500

// chunkIDs splits ids into consecutive slices of at most maxInParams.
func chunkIDs(ids []uint64) [][]uint64 {
	var out [][]uint64
	for len(ids) > maxInParams {
		out = append(out, ids[:maxInParams:maxInParams])
		ids = ids[maxInParams:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// CreatePost inserts a new post with the given pre-allocated id. Vote,
// comment and donation collections start empty.
func CreatePost(ctx context.Context, db *gorm.DB, id uint64, title, body, author string, createdAt time.Time) (*domain.Post, error) {
	p := &domain.Post{
		ID:        id,
		Title:     title,
		Body:      body,
		Author:    author,
		CreatedAt: createdAt.UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPost fetches a live post by id, or ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, id uint64) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPostUnscoped fetches a post by id including deleted ones.
func GetPostUnscoped(ctx context.Context, db *gorm.DB, id uint64) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost tombstones a post. Deleting an absent post is a no-op.
func DeletePost(ctx context.Context, db *gorm.DB, id uint64) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Post{}).Error
}

// ListPosts returns every live post.
func ListPosts(ctx context.Context, db *gorm.DB) ([]domain.Post, error) {
	out := []domain.Post{}
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// ListPostsPage returns a window of live posts. The caller computes offset
// and limit from the page number (see utils.PageWindow).
func ListPostsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Post, error) {
	out := []domain.Post{}
	err := db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListPostsByIDs returns the live posts among ids, in the order ids are
// given. Ids of deleted or unknown posts are skipped.
func ListPostsByIDs(ctx context.Context, db *gorm.DB, ids []uint64) ([]domain.Post, error) {
	out := []domain.Post{}
	if len(ids) == 0 {
		return out, nil
	}
	byID := make(map[uint64]domain.Post, len(ids))
	for _, chunk := range chunkIDs(ids) {
		var rows []domain.Post
		if err := db.WithContext(ctx).Where("id IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, p := range rows {
			byID[p.ID] = p
		}
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddDonated increments a post's running donation total. Deleted posts are
// included so a late ledger append stays consistent with its total.
func AddDonated(ctx context.Context, db *gorm.DB, id uint64, amount int64) error {
	res := db.WithContext(ctx).
		Unscoped().
		Model(&domain.Post{}).
		Where("id = ?", id).
		Update("total_donated", gorm.Expr("total_donated + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HydratePosts fills the non-column collections of each post: attached
// comment ids, upvoters, downvoters and donations. It issues one query per
// collection for every maxInParams posts.
func HydratePosts(ctx context.Context, db *gorm.DB, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint64, len(posts))
	idx := make(map[uint64]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		idx[posts[i].ID] = i
		posts[i].CommentIDs = []uint64{}
		posts[i].Upvoters = []string{}
		posts[i].Downvoters = []string{}
		posts[i].Donations = []domain.Donation{}
	}

	for _, chunk := range chunkIDs(ids) {
		var comments []domain.Comment
		err := db.WithContext(ctx).
			Select("id", "post_id").
			Where("post_id IN ? AND detached_at IS NULL", chunk).
			Order("id ASC").
			Find(&comments).Error
		if err != nil {
			return err
		}
		for _, c := range comments {
			p := &posts[idx[c.PostID]]
			p.CommentIDs = append(p.CommentIDs, c.ID)
		}
	}

	votes, err := ListVotes(ctx, db, ids)
	if err != nil {
		return err
	}
	for _, v := range votes {
		p := &posts[idx[v.PostID]]
		switch v.Value {
		case domain.VoteUp:
			p.Upvoters = append(p.Upvoters, v.Voter)
		case domain.VoteDown:
			p.Downvoters = append(p.Downvoters, v.Voter)
		}
	}

	donations, err := ListDonations(ctx, db, ids)
	if err != nil {
		return err
	}
	for _, d := range donations {
		p := &posts[idx[d.PostID]]
		p.Donations = append(p.Donations, d)
	}
	return nil
}
