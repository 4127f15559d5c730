// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the donation
// ledger.
//
// The ledger is append-only. Each entry carries the receipt key of the value
// transfer it records; the unique index on that key turns a replayed append
// into ErrDuplicate instead of a second entry.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

// ErrDuplicate indicates that a ledger entry already exists for the given
// receipt key.
var ErrDuplicate = errors.New("duplicate")

// CreateDonation appends a ledger entry and returns ErrDuplicate when the
// receipt key has already been recorded.
func CreateDonation(ctx context.Context, db *gorm.DB, d domain.Donation, createdAt time.Time) (*domain.Donation, error) {
	d.CreatedAt = createdAt.UTC()
	if err := db.WithContext(ctx).Create(&d).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &d, nil
}

// GetDonationByReceipt returns the entry recorded for receiptKey, or
// ErrNotFound.
func GetDonationByReceipt(ctx context.Context, db *gorm.DB, receiptKey string) (*domain.Donation, error) {
	var d domain.Donation
	if err := db.WithContext(ctx).Where("receipt_key = ?", receiptKey).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDonations returns the ledger entries of the given posts. Each post's
// entries are in append order.
func ListDonations(ctx context.Context, db *gorm.DB, postIDs []uint64) ([]domain.Donation, error) {
	out := []domain.Donation{}
	for _, chunk := range chunkIDs(postIDs) {
		var rows []domain.Donation
		err := db.WithContext(ctx).
			Where("post_id IN ?", chunk).
			Order("id ASC").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// SumDonations returns the sum of a post's ledger amounts.
func SumDonations(ctx context.Context, db *gorm.DB, postID uint64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Donation{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("post_id = ?", postID).
		Scan(&total).Error
	return total, err
}

// isUniqueViolation detects unique-constraint errors across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
