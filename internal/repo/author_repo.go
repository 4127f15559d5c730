// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the author index: author identity to
// the ordered list of post ids they created.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

// AddAuthorPost appends postID to author's index entry.
func AddAuthorPost(ctx context.Context, db *gorm.DB, author string, postID uint64) error {
	return db.WithContext(ctx).Create(&domain.AuthorPost{Author: author, PostID: postID}).Error
}

// ListAuthorPostIDs returns the ids of every post author created, oldest
// first. Ids of deleted posts stay in the index.
func ListAuthorPostIDs(ctx context.Context, db *gorm.DB, author string) ([]uint64, error) {
	ids := []uint64{}
	err := db.WithContext(ctx).
		Model(&domain.AuthorPost{}).
		Where("author = ?", author).
		Order("post_id ASC").
		Pluck("post_id", &ids).Error
	return ids, err
}
