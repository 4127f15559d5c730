package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

func ids(posts []domain.Post) []uint64 {
	out := make([]uint64, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestCreatePost_AndGet(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()

	p, err := CreatePost(ctx, db, 7, "Title", "Body", "alice", t0)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if p.ID != 7 || p.TotalDonated != 0 {
		t.Fatalf("unexpected post: %+v", p)
	}

	got, err := GetPost(ctx, db, 7)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "Title" || got.Body != "Body" || got.Author != "alice" || !got.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected readback: %+v", got)
	}

	if _, err := GetPost(ctx, db, 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := CreatePost(ctx, db, 7, "dup", "dup", "bob", t0); err == nil {
		t.Fatalf("expected primary key violation for reused id")
	}
}

func TestDeletePost_Tombstone(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()
	seedPost(t, db, 0, "alice")

	if err := DeletePost(ctx, db, 0); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := GetPost(ctx, db, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted post should be hidden, got %v", err)
	}
	p, err := GetPostUnscoped(ctx, db, 0)
	if err != nil || !p.DeletedAt.Valid {
		t.Fatalf("tombstone should be readable unscoped: p=%+v err=%v", p, err)
	}

	// No-op when absent.
	if err := DeletePost(ctx, db, 42); err != nil {
		t.Fatalf("DeletePost on missing id: %v", err)
	}
}

func TestListPosts_AndPage(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()
	for _, id := range []uint64{3, 0, 2, 1, 4} {
		seedPost(t, db, id, "alice")
	}
	_ = DeletePost(ctx, db, 2)

	all, err := ListPosts(ctx, db)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if want := []uint64{0, 1, 3, 4}; !reflect.DeepEqual(ids(all), want) {
		t.Fatalf("ListPosts = %v; want %v", ids(all), want)
	}

	page, err := ListPostsPage(ctx, db, 1, 2)
	if err != nil {
		t.Fatalf("ListPostsPage: %v", err)
	}
	if want := []uint64{1, 3}; !reflect.DeepEqual(ids(page), want) {
		t.Fatalf("ListPostsPage = %v; want %v", ids(page), want)
	}
}

func TestListPostsByIDs_KeepsOrderSkipsMissing(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()
	for id := uint64(0); id < 4; id++ {
		seedPost(t, db, id, "alice")
	}
	_ = DeletePost(ctx, db, 1)

	got, err := ListPostsByIDs(ctx, db, []uint64{3, 1, 0, 9})
	if err != nil {
		t.Fatalf("ListPostsByIDs: %v", err)
	}
	if want := []uint64{3, 0}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("ListPostsByIDs = %v; want %v", ids(got), want)
	}

	empty, err := ListPostsByIDs(ctx, db, nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v err=%v", empty, err)
	}
}

func TestAddDonated(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()
	seedPost(t, db, 0, "alice")

	if err := AddDonated(ctx, db, 0, 10); err != nil {
		t.Fatalf("AddDonated: %v", err)
	}
	_ = DeletePost(ctx, db, 0)
	if err := AddDonated(ctx, db, 0, 5); err != nil {
		t.Fatalf("AddDonated on tombstone: %v", err)
	}
	p, _ := GetPostUnscoped(ctx, db, 0)
	if p.TotalDonated != 15 {
		t.Fatalf("TotalDonated = %d; want 15", p.TotalDonated)
	}

	if err := AddDonated(ctx, db, 99, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHydratePosts(t *testing.T) {
	db := newBlogDB(t)
	ctx := context.Background()
	seedPost(t, db, 0, "alice")
	seedPost(t, db, 1, "alice")
	seedComment(t, db, 0, 0)
	seedComment(t, db, 1, 1)
	seedComment(t, db, 2, 0)
	_ = DetachComment(ctx, db, 0, 0, t0)
	_ = SetVote(ctx, db, 0, "bob", domain.VoteUp, t0)
	_ = SetVote(ctx, db, 0, "carol", domain.VoteDown, t0)
	_ = SetVote(ctx, db, 1, "dave", domain.VoteUp, t0)
	if _, err := CreateDonation(ctx, db, domain.Donation{ID: 0, PostID: 1, Donor: "bob", Amount: 3, ReceiptKey: "r0"}, t0); err != nil {
		t.Fatalf("CreateDonation: %v", err)
	}

	posts, err := ListPosts(ctx, db)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if err := HydratePosts(ctx, db, posts); err != nil {
		t.Fatalf("HydratePosts: %v", err)
	}

	p0, p1 := posts[0], posts[1]
	if !reflect.DeepEqual(p0.CommentIDs, []uint64{2}) || !reflect.DeepEqual(p1.CommentIDs, []uint64{1}) {
		t.Fatalf("comment ids: p0=%v p1=%v", p0.CommentIDs, p1.CommentIDs)
	}
	if !reflect.DeepEqual(p0.Upvoters, []string{"bob"}) || !reflect.DeepEqual(p0.Downvoters, []string{"carol"}) {
		t.Fatalf("voters: up=%v down=%v", p0.Upvoters, p0.Downvoters)
	}
	if len(p0.Donations) != 0 || len(p1.Donations) != 1 || p1.Donations[0].Amount != 3 {
		t.Fatalf("donations: p0=%v p1=%v", p0.Donations, p1.Donations)
	}
	if p1.Downvoters == nil || len(p1.Downvoters) != 0 {
		t.Fatalf("empty collections should be non-nil: %#v", p1.Downvoters)
	}

	if err := HydratePosts(ctx, db, nil); err != nil {
		t.Fatalf("HydratePosts(nil): %v", err)
	}
}

func TestChunkIDs(t *testing.T) {
	defer func(n int) { maxInParams = n }(maxInParams)
	maxInParams = 2

	got := chunkIDs([]uint64{0, 1, 2, 3, 4})
	want := [][]uint64{{0, 1}, {2, 3}, {4}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chunkIDs = %v; want %v", got, want)
	}
	if got := chunkIDs(nil); len(got) != 0 {
		t.Fatalf("chunkIDs(nil) = %v; want none", got)
	}
}

func TestHydratePosts_AcrossChunks(t *testing.T) {
	defer func(n int) { maxInParams = n }(maxInParams)
	maxInParams = 2

	db := newBlogDB(t)
	ctx := context.Background()
	for id := uint64(0); id < 5; id++ {
		seedPost(t, db, id, "alice")
		seedComment(t, db, id, id)
		if err := SetVote(ctx, db, id, "bob", domain.VoteUp, t0); err != nil {
			t.Fatalf("SetVote: %v", err)
		}
		d := domain.Donation{ID: id, PostID: id, Donor: "bob", Amount: int64(id + 1), ReceiptKey: fmt.Sprintf("r%d", id)}
		if _, err := CreateDonation(ctx, db, d, t0); err != nil {
			t.Fatalf("CreateDonation: %v", err)
		}
	}

	byIDs, err := ListPostsByIDs(ctx, db, []uint64{4, 0, 3, 1, 2})
	if err != nil {
		t.Fatalf("ListPostsByIDs: %v", err)
	}
	if want := []uint64{4, 0, 3, 1, 2}; !reflect.DeepEqual(ids(byIDs), want) {
		t.Fatalf("ListPostsByIDs = %v; want %v", ids(byIDs), want)
	}

	posts, err := ListPosts(ctx, db)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if err := HydratePosts(ctx, db, posts); err != nil {
		t.Fatalf("HydratePosts: %v", err)
	}
	for _, p := range posts {
		if !reflect.DeepEqual(p.CommentIDs, []uint64{p.ID}) {
			t.Fatalf("post %d comment ids = %v", p.ID, p.CommentIDs)
		}
		if !reflect.DeepEqual(p.Upvoters, []string{"bob"}) {
			t.Fatalf("post %d upvoters = %v", p.ID, p.Upvoters)
		}
		if len(p.Donations) != 1 || p.Donations[0].Amount != int64(p.ID+1) {
			t.Fatalf("post %d donations = %+v", p.ID, p.Donations)
		}
	}
}
