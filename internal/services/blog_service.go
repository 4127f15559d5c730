// Package services – BlogService
//
// This file implements BlogService, the single entry point the hosting
// environment invokes once per external call. Every mutating operation runs
// the same pipeline:
//
//  1. Validate: existence of referenced entities and argument bounds.
//  2. Authorize: caller identity against the role the operation requires.
//  3. Mutate: one logical state change inside one database transaction, so
//     no partial multi-store edit is ever observable.
//  4. Observe: an audit log line, Prometheus counters and the span status.
//
// A failure in steps 1 or 2 aborts the transaction before anything is
// written. The service performs no locking of its own: the host runs one
// call at a time to completion.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the caller, call id and entity ids where applicable.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
	"github.com/tbourn/go-blog-engine/internal/repo"
)

const tracerName = "services/BlogService"

// DefaultMinCommentRunes is the shortest comment body accepted.
const DefaultMinCommentRunes = 10

// Operation names, used as span names and metric/log labels.
const (
	opCreatePost          = "create_post"
	opGetPost             = "get_post"
	opGetPosts            = "get_posts"
	opGetUserPosts        = "get_user_posts"
	opGetPagingPosts      = "get_paging_posts"
	opGetTotalPosts       = "get_total_posts"
	opGetNextPostID       = "get_next_post_id"
	opDeletePost          = "delete_post"
	opCreateComment       = "create_comment"
	opDeleteComment       = "delete_comment"
	opGetComments         = "get_comments"
	opGetPagingComments   = "get_paging_comments"
	opGetComment          = "get_comment"
	opGetPostTotalComment = "get_post_total_comments"
	opGetTotalComments    = "get_total_comments"
	opUpvote              = "upvote"
	opRemoveUpvote        = "remove_upvote"
	opDownvote            = "downvote"
	opRemoveDownvote      = "remove_downvote"
	opGetVotesStatistics  = "get_votes_statistics"
	opGetUserVoteStatus   = "get_user_vote_status"
	opDonate              = "donate"
	opCompleteDonation    = "complete_donation"
	opGetDonations        = "get_donations"
	opGetTotalDonated     = "get_total_donated"
)

// IDAllocator mints ids from named monotonic counters. Allocation runs on
// the handle it is given so it commits or rolls back with the caller's
// transaction.
type IDAllocator interface {
	// Next returns the counter's current value and advances it by one.
	Next(ctx context.Context, db *gorm.DB, counter string) (uint64, error)

	// Peek returns the value Next would hand out without advancing.
	Peek(ctx context.Context, db *gorm.DB, counter string) (uint64, error)
}

// TransferRequester is the part of the hosting environment that moves
// funds. RequestTransfer only queues the transfer; the environment settles
// it after the current call returns and then invokes CompleteDonation with
// the outcome.
type TransferRequester interface {
	RequestTransfer(ctx context.Context, req domain.TransferRequest) error
}

// BlogService orchestrates the post, comment, vote, donation and author
// stores.
type BlogService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// IDs allocates post, comment and donation ids.
	IDs IDAllocator
	// Transfers receives phase-one donation requests.
	Transfers TransferRequester

	// Owner is the identity allowed to delete posts and comments.
	Owner string
	// MinCommentRunes is the shortest accepted comment body, in characters.
	MinCommentRunes int

	// Log receives the audit trail.
	Log zerolog.Logger
	// NewKey generates transfer receipt keys.
	NewKey func() string
}

// NewBlogService constructs a BlogService with default comment rules, the
// global zerolog logger and UUID receipt keys.
func NewBlogService(db *gorm.DB, ids IDAllocator, owner string) *BlogService {
	return &BlogService{
		DB:              db,
		IDs:             ids,
		Owner:           owner,
		MinCommentRunes: DefaultMinCommentRunes,
		Log:             log.Logger,
		NewKey:          uuid.NewString,
	}
}

// GetOwner returns the identity allowed to perform owner-only actions.
func (s *BlogService) GetOwner() string {
	return s.Owner
}

// begin opens the span for op and returns the function that closes it. The
// returned function records metrics and, on failure, the span error and a
// log line; it must be called exactly once with the operation's result.
func (s *BlogService) begin(ctx context.Context, op string, ec *domain.ExecutionContext, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	if ec != nil {
		attrs = append(attrs,
			attribute.String("caller", ec.Caller),
			attribute.String("call.id", ec.CallID),
		)
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, op, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		recordOp(op, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			lg := s.logger(op, ec)
			var ev *zerolog.Event
			switch {
			case Kind(err) == "internal":
				ev = lg.Error()
			case ec == nil:
				ev = lg.Debug()
			default:
				ev = lg.Warn()
			}
			ev.Err(err).Msg("operation aborted")
		}
		span.End()
	}
}

// logger returns the audit logger for one call.
func (s *BlogService) logger(op string, ec *domain.ExecutionContext) zerolog.Logger {
	c := s.Log.With()
	if ec != nil {
		c = c.Str("call_id", ec.CallID).Str("caller", ec.Caller)
	}
	return c.Str("op", op).Logger()
}

// authorizeOwner rejects callers other than the configured owner.
func (s *BlogService) authorizeOwner(ec domain.ExecutionContext) error {
	if ec.Caller != s.Owner {
		return ErrNotOwner
	}
	return nil
}

// requirePost loads a live post or returns ErrPostNotFound.
func requirePost(ctx context.Context, db *gorm.DB, id uint64) (*domain.Post, error) {
	p, err := repo.GetPost(ctx, db, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("load post %d: %w", id, err)
	}
	return p, nil
}

// idAttr records an id as its decimal string; int64 attributes cannot hold
// the whole uint64 range.
func idAttr(key string, id uint64) attribute.KeyValue {
	return attribute.String(key, strconv.FormatUint(id, 10))
}

// validatePage checks 1-based paging arguments.
func validatePage(page, pageSize int) error {
	if pageSize <= 0 {
		return ErrInvalidPageSize
	}
	if page <= 0 {
		return ErrInvalidPage
	}
	return nil
}
