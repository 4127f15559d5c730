// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Comment model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

// CreateComment inserts a comment attached to postID.
func CreateComment(ctx context.Context, db *gorm.DB, id, postID uint64, body, author string, createdAt time.Time) (*domain.Comment, error) {
	c := &domain.Comment{
		ID:        id,
		PostID:    postID,
		Body:      body,
		Author:    author,
		CreatedAt: createdAt.UTC(),
	}
	return c, db.WithContext(ctx).Create(c).Error
}

// GetComment fetches a comment by id, attached or not.
func GetComment(ctx context.Context, db *gorm.DB, id uint64) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// DetachComment removes a comment from its post's comment list while
// keeping the row. Detaching an already detached comment is a no-op.
func DetachComment(ctx context.Context, db *gorm.DB, postID, commentID uint64, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ? AND post_id = ? AND detached_at IS NULL", commentID, postID).
		Update("detached_at", at.UTC()).Error
}

// ListPostComments returns a post's attached comments in creation order.
func ListPostComments(ctx context.Context, db *gorm.DB, postID uint64) ([]domain.Comment, error) {
	out := []domain.Comment{}
	err := db.WithContext(ctx).
		Where("post_id = ? AND detached_at IS NULL", postID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ListPostCommentsPage returns a window of a post's attached comments in
// creation order.
func ListPostCommentsPage(ctx context.Context, db *gorm.DB, postID uint64, offset, limit int) ([]domain.Comment, error) {
	out := []domain.Comment{}
	err := db.WithContext(ctx).
		Where("post_id = ? AND detached_at IS NULL", postID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
