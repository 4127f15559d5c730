// Package domain defines the persistence models for posts, comments, votes,
// donations and the bookkeeping tables behind them. These types are mapped
// with GORM and form the core data layer of the blog engine.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Post is a top-level authored content item.
//
// Fields:
//   - ID: allocated from the "posts" counter; never reused (autoIncrement is
//     disabled so id 0 is stored as-is).
//   - Author: identity of the creator; immutable.
//   - TotalDonated: running sum of the post's donation amounts, updated in
//     the same transaction as each ledger append.
//   - DeletedAt: tombstone marker. Deleting a post does not cascade to its
//     comments, votes, donations or author index entry.
//
// CommentIDs, Upvoters, Downvoters and Donations are not columns; they are
// filled by repo.HydratePosts when a post is read.
type Post struct {
	ID           uint64         `json:"id"            gorm:"primaryKey;autoIncrement:false"`
	Title        string         `json:"title"         gorm:"type:text;not null"`
	Body         string         `json:"body"          gorm:"type:text;not null"`
	Author       string         `json:"author"        gorm:"type:varchar(64);not null;index:idx_post_author"`
	TotalDonated int64          `json:"total_donated" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`

	CommentIDs []uint64   `json:"comment_ids" gorm:"-"`
	Upvoters   []string   `json:"upvoters"    gorm:"-"`
	Downvoters []string   `json:"downvoters"  gorm:"-"`
	Donations  []Donation `json:"donations"   gorm:"-"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Comment is a body of text attached to exactly one post. A comment that has
// been removed from its post keeps its row with DetachedAt set, so it stays
// retrievable by id but no longer appears in the post's comment list.
type Comment struct {
	ID         uint64     `json:"id"          gorm:"primaryKey;autoIncrement:false"`
	PostID     uint64     `json:"post_id"     gorm:"not null;index:idx_post_comments"`
	Body       string     `json:"body"        gorm:"type:text;not null"`
	Author     string     `json:"author"      gorm:"type:varchar(64);not null"`
	CreatedAt  time.Time  `json:"created_at"`
	DetachedAt *time.Time `json:"detached_at,omitempty" gorm:"index"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// Vote values.
const (
	VoteDown = -1
	VoteUp   = 1
)

// Vote records one identity's vote on one post. The composite primary key
// makes up- and down-votes mutually exclusive: a voter holds at most one row
// per post, and clearing the vote deletes it.
type Vote struct {
	PostID    uint64    `json:"post_id"    gorm:"primaryKey;autoIncrement:false"`
	Voter     string    `json:"voter"      gorm:"primaryKey;type:varchar(64)"`
	Value     int       `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }

// Donation is one entry in a post's append-only donation ledger.
//
// ReceiptKey identifies the settled value transfer the entry was written for;
// its unique index makes the recording continuation safe to replay.
type Donation struct {
	ID         uint64    `json:"id"          gorm:"primaryKey;autoIncrement:false"`
	PostID     uint64    `json:"post_id"     gorm:"not null;index:idx_post_donations"`
	Donor      string    `json:"donor"       gorm:"type:varchar(64);not null"`
	Amount     int64     `json:"amount"      gorm:"not null;check:amount >= 1"`
	Message    string    `json:"message"     gorm:"type:text;not null"`
	ReceiptKey string    `json:"receipt_key" gorm:"type:varchar(64);not null;uniqueIndex:ux_donation_receipt"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Donation.
func (Donation) TableName() string { return "donations" }

// AuthorPost is one entry of the author index. Entries are never removed,
// even when the post itself is deleted.
type AuthorPost struct {
	Author string `gorm:"primaryKey;type:varchar(64)"`
	PostID uint64 `gorm:"primaryKey;autoIncrement:false"`
}

// TableName returns the database table name for AuthorPost.
func (AuthorPost) TableName() string { return "author_posts" }

// Counter names used by the id allocator.
const (
	CounterPosts     = "posts"
	CounterComments  = "comments"
	CounterDonations = "donations"
)

// Counter holds the next value to hand out for one id sequence.
type Counter struct {
	Name   string `gorm:"primaryKey;type:varchar(32)"`
	NextID uint64 `gorm:"not null"`
}

// TableName returns the database table name for Counter.
func (Counter) TableName() string { return "counters" }
