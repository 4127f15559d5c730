package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-blog-engine/internal/domain"
)

func commentIDs(cs []domain.Comment) []uint64 {
	out := make([]uint64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestCreateComment_SequentialIDs(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	pid := mustCreatePost(t, s, "alice", "a")

	for want := uint64(0); want < 3; want++ {
		id, err := s.CreateComment(ctx, call("bob"), pid, "This is a comment")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	total, err := s.GetPostTotalComments(ctx, pid)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	p, err := s.GetPost(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2}, p.CommentIDs)

	cs, err := s.GetComments(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2}, commentIDs(cs))
	assert.Equal(t, "bob", cs[0].Author)
	assert.True(t, cs[0].CreatedAt.Equal(testNow))
}

func TestCreateComment_IDsSharedAcrossPosts(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p0 := mustCreatePost(t, s, "alice", "a")
	p1 := mustCreatePost(t, s, "alice", "b")

	c0, err := s.CreateComment(ctx, call("bob"), p0, "first comment here")
	require.NoError(t, err)
	c1, err := s.CreateComment(ctx, call("bob"), p1, "second comment here")
	require.NoError(t, err)
	assert.EqualValues(t, 0, c0)
	assert.EqualValues(t, 1, c1)

	total, err := s.GetTotalComments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestCreateComment_MinimumLength(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	pid := mustCreatePost(t, s, "alice", "a")

	_, err := s.CreateComment(ctx, call("bob"), pid, "123456789")
	require.ErrorIs(t, err, ErrCommentTooShort)
	require.ErrorIs(t, err, ErrValidation)

	id, err := s.CreateComment(ctx, call("bob"), pid, "1234567890")
	require.NoError(t, err)
	assert.EqualValues(t, 0, id, "rejected comment must not consume an id")
}

func TestCreateComment_LengthCountsComposedCharacters(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	pid := mustCreatePost(t, s, "alice", "a")

	// "e" + U+0301 composes to a single "é".
	nine := strings.Repeat("e\u0301", 9)
	_, err := s.CreateComment(ctx, call("bob"), pid, nine)
	require.ErrorIs(t, err, ErrCommentTooShort)

	_, err = s.CreateComment(ctx, call("bob"), pid, nine+"!")
	require.NoError(t, err)

	_, err = s.CreateComment(ctx, call("bob"), pid, "日本語のコメントです")
	require.NoError(t, err)
}

func TestCreateComment_CustomMinimum(t *testing.T) {
	s, _ := newTestService(t)
	s.MinCommentRunes = 2
	pid := mustCreatePost(t, s, "alice", "a")

	_, err := s.CreateComment(context.Background(), call("bob"), pid, "ok")
	require.NoError(t, err)
}

func TestCreateComment_MissingPost(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	// Existence is checked before length.
	_, err := s.CreateComment(ctx, call("bob"), 3, "short")
	require.ErrorIs(t, err, ErrPostNotFound)

	pid := mustCreatePost(t, s, "alice", "a")
	id, err := s.CreateComment(ctx, call("bob"), pid, "long enough comment")
	require.NoError(t, err)
	assert.EqualValues(t, 0, id)
}

func TestDeleteComment(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	pid := mustCreatePost(t, s, "alice", "a")
	other := mustCreatePost(t, s, "alice", "b")
	for i := 0; i < 3; i++ {
		_, err := s.CreateComment(ctx, call("bob"), pid, "some comment body")
		require.NoError(t, err)
	}

	// Only the owner, even for the comment's author.
	err := s.DeleteComment(ctx, call("bob"), pid, 1)
	require.ErrorIs(t, err, ErrNotOwner)

	// The comment must belong to the post.
	err = s.DeleteComment(ctx, call(testOwner), other, 1)
	require.ErrorIs(t, err, ErrCommentNotFound)
	err = s.DeleteComment(ctx, call(testOwner), pid, 42)
	require.ErrorIs(t, err, ErrCommentNotFound)
	err = s.DeleteComment(ctx, call(testOwner), 99, 1)
	require.ErrorIs(t, err, ErrPostNotFound)

	require.NoError(t, s.DeleteComment(ctx, call(testOwner), pid, 1))

	cs, err := s.GetComments(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 2}, commentIDs(cs))

	n, err := s.GetPostTotalComments(ctx, pid)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// Still retrievable by id, and still counted globally.
	c, err := s.GetComment(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, c.DetachedAt)
	assert.True(t, c.DetachedAt.Equal(testNow))
	total, err := s.GetTotalComments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	// A removed comment cannot be removed again.
	err = s.DeleteComment(ctx, call(testOwner), pid, 1)
	require.ErrorIs(t, err, ErrCommentNotFound)
}

func TestGetComment_NotFound(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.GetComment(context.Background(), 0)
	require.ErrorIs(t, err, ErrCommentNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetPagingComments(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	pid := mustCreatePost(t, s, "alice", "a")
	for i := 0; i < 7; i++ {
		_, err := s.CreateComment(ctx, call("bob"), pid, "paged comment body")
		require.NoError(t, err)
	}

	page, err := s.GetPagingComments(ctx, pid, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 4, 5}, commentIDs(page))

	page, err = s.GetPagingComments(ctx, pid, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{6}, commentIDs(page))

	page, err = s.GetPagingComments(ctx, pid, 4, 3)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = s.GetPagingComments(ctx, pid, 1<<62+1, 4)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = s.GetPagingComments(ctx, pid, 0, 3)
	require.ErrorIs(t, err, ErrInvalidPage)
	_, err = s.GetPagingComments(ctx, pid, 1, 0)
	require.ErrorIs(t, err, ErrInvalidPageSize)
	_, err = s.GetPagingComments(ctx, 99, 1, 3)
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestGetPostTotalComments_MissingPost(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.GetPostTotalComments(context.Background(), 1)
	require.ErrorIs(t, err, ErrPostNotFound)
}
