package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

func TestSetVote_ReplacesPreviousVote(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()
	seedPost(t, db, 0, "alice")

	if err := SetVote(ctx, db, 0, "bob", domain.VoteUp, t0); err != nil {
		t.Fatalf("SetVote up: %v", err)
	}
	if err := SetVote(ctx, db, 0, "bob", domain.VoteDown, t0); err != nil {
		t.Fatalf("SetVote down: %v", err)
	}
	v, err := GetVoteValue(ctx, db, 0, "bob")
	if err != nil || v != domain.VoteDown {
		t.Fatalf("GetVoteValue = %d, %v; want -1", v, err)
	}

	var rows int64
	db.Model(&domain.Vote{}).Where("post_id = ? AND voter = ?", 0, "bob").Count(&rows)
	if rows != 1 {
		t.Fatalf("expected exactly one vote row, got %d", rows)
	}
}

func TestClearVote_OnlyMatchingValue(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()
	seedPost(t, db, 0, "alice")
	_ = SetVote(ctx, db, 0, "bob", domain.VoteDown, t0)

	removed, err := ClearVote(ctx, db, 0, "bob", domain.VoteUp)
	if err != nil || removed {
		t.Fatalf("clearing a non-matching vote: removed=%v err=%v", removed, err)
	}
	removed, err = ClearVote(ctx, db, 0, "bob", domain.VoteDown)
	if err != nil || !removed {
		t.Fatalf("clearing the matching vote: removed=%v err=%v", removed, err)
	}
	v, err := GetVoteValue(ctx, db, 0, "bob")
	if err != nil || v != 0 {
		t.Fatalf("GetVoteValue after clear = %d, %v; want 0", v, err)
	}
}

func TestCountVotes(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()
	seedPost(t, db, 0, "alice")
	seedPost(t, db, 1, "alice")

	for _, voter := range []string{"a", "b", "c"} {
		_ = SetVote(ctx, db, 0, voter, domain.VoteUp, t0)
	}
	_ = SetVote(ctx, db, 0, "d", domain.VoteDown, t0)
	_ = SetVote(ctx, db, 1, "a", domain.VoteDown, t0)

	st, err := CountVotes(ctx, db, 0)
	if err != nil || st != (domain.VoteStats{Upvotes: 3, Downvotes: 1}) {
		t.Fatalf("CountVotes(0) = %+v, %v", st, err)
	}
	st, err = CountVotes(ctx, db, 2)
	if err != nil || st != (domain.VoteStats{}) {
		t.Fatalf("CountVotes(2) = %+v, %v", st, err)
	}
}

func TestSetVote_RejectsInvalidValue(t *testing.T) {
	db := newBlogDB(t)
	seedPost(t, db, 0, "alice")
	if err := SetVote(context.Background(), db, 0, "bob", 2, t0); err == nil {
		t.Fatalf("expected check constraint violation for value 2")
	}
}
