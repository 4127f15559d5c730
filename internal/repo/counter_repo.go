// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the id allocator: named monotonic
// counters stored in the counters table.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

// Counters allocates ids from named sequences. It is stateless; all state
// lives in the counters table so allocation joins the caller's transaction
// and rolls back with it.
type Counters struct{}

// Next returns the current value of counter and advances it by one. The
// sequence starts at 0. Values are never handed out twice; there is no
// overflow check.
func (Counters) Next(ctx context.Context, db *gorm.DB, counter string) (uint64, error) {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Counter{Name: counter, NextID: 0}).Error
	if err != nil {
		return 0, err
	}

	var c domain.Counter
	if err := db.WithContext(ctx).Where("name = ?", counter).First(&c).Error; err != nil {
		return 0, err
	}
	err = db.WithContext(ctx).
		Model(&domain.Counter{}).
		Where("name = ?", counter).
		Update("next_id", gorm.Expr("next_id + 1")).Error
	if err != nil {
		return 0, err
	}
	return c.NextID, nil
}

// Peek returns the value Next would hand out without advancing it.
func (Counters) Peek(ctx context.Context, db *gorm.DB, counter string) (uint64, error) {
	var c domain.Counter
	err := db.WithContext(ctx).Where("name = ?", counter).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.NextID, nil
}
