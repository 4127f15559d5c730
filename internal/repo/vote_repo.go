// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Vote model.
//
// A voter holds at most one row per post (composite primary key). Casting a
// vote upserts the row, so an upvote replaces a downvote and vice versa;
// clearing a vote deletes the row only when it holds the expected value.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

// SetVote records value (domain.VoteUp or domain.VoteDown) for voter on
// postID, replacing any previous vote. Repeating the same vote is a no-op
// apart from UpdatedAt.
func SetVote(ctx context.Context, db *gorm.DB, postID uint64, voter string, value int, at time.Time) error {
	v := &domain.Vote{
		PostID:    postID,
		Voter:     voter,
		Value:     value,
		CreatedAt: at.UTC(),
		UpdatedAt: at.UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "voter"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(v).Error
}

// ClearVote deletes voter's vote on postID if it equals value. It reports
// whether a row was removed.
func ClearVote(ctx context.Context, db *gorm.DB, postID uint64, voter string, value int) (bool, error) {
	res := db.WithContext(ctx).
		Where("post_id = ? AND voter = ? AND value = ?", postID, voter, value).
		Delete(&domain.Vote{})
	return res.RowsAffected > 0, res.Error
}

// GetVoteValue returns voter's vote on postID, or 0 when there is none.
func GetVoteValue(ctx context.Context, db *gorm.DB, postID uint64, voter string) (int, error) {
	var v domain.Vote
	err := db.WithContext(ctx).
		Where("post_id = ? AND voter = ?", postID, voter).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.Value, nil
}

// CountVotes returns the number of upvotes and downvotes on postID.
func CountVotes(ctx context.Context, db *gorm.DB, postID uint64) (domain.VoteStats, error) {
	var rows []struct {
		Value int
		N     int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Select("value, COUNT(*) AS n").
		Where("post_id = ?", postID).
		Group("value").
		Scan(&rows).Error
	if err != nil {
		return domain.VoteStats{}, err
	}
	var st domain.VoteStats
	for _, r := range rows {
		switch r.Value {
		case domain.VoteUp:
			st.Upvotes = r.N
		case domain.VoteDown:
			st.Downvotes = r.N
		}
	}
	return st, nil
}

// ListVotes returns all votes on the given posts. Each post's votes are
// ordered by first-cast time, then voter.
func ListVotes(ctx context.Context, db *gorm.DB, postIDs []uint64) ([]domain.Vote, error) {
	out := []domain.Vote{}
	for _, chunk := range chunkIDs(postIDs) {
		var rows []domain.Vote
		err := db.WithContext(ctx).
			Where("post_id IN ?", chunk).
			Order("post_id ASC, created_at ASC, voter ASC").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}
