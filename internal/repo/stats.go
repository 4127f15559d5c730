// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the count queries behind the engine's
// totals and pagination bounds. Each function is context-aware and safe to
// call inside a transaction.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

// CountPosts returns the number of live (non-deleted) posts.
func CountPosts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Count(&total).Error
	return total, err
}

// CountPostComments returns the number of comments attached to postID.
func CountPostComments(ctx context.Context, db *gorm.DB, postID uint64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("post_id = ? AND detached_at IS NULL", postID).
		Count(&total).Error
	return total, err
}

// CountComments returns the number of comment entities ever created,
// including detached ones.
//
// It uses a raw COUNT so a missing table surfaces as an error.
func CountComments(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM comments").Scan(&total).Error
	return total, err
}
