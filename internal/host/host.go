// Package host is an in-process execution environment for BlogService.
//
// A Host plays the role the engine expects from its environment: it builds
// the ExecutionContext for each call (call id, caller, timestamp, available
// balance), runs calls one at a time to completion, holds balances in a
// Bank, settles the value transfers a call requested, and then runs the
// donation continuation as a separate call.
//
// Transfers requested by a call are kept only if the call succeeds. With
// auto-settlement on (the default) they are settled as soon as the call
// returns; otherwise they wait for Flush.
package host

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-blog-engine/internal/domain"
	"github.com/tbourn/go-blog-engine/internal/services"
)

// ErrRateLimited is returned when a caller exceeds its call rate. The
// engine is not invoked.
var ErrRateLimited = errors.New("rate limit exceeded")

// DefaultIdentity is the caller identity the host uses for its own calls,
// such as donation continuations.
const DefaultIdentity = "host"

// Call is one engine operation run under an ExecutionContext.
type Call[T any] func(ctx context.Context, ec domain.ExecutionContext) (T, error)

// Settlement reports how one queued transfer ended.
type Settlement struct {
	Outcome  domain.TransferOutcome
	Donation *domain.Donation // recorded entry, nil when Err is set
	Err      error            // continuation error, e.g. services.ErrTransferFailed
}

// Host drives a BlogService.
type Host struct {
	svc      *services.BlogService
	bank     Bank
	limiter  *RateLimiter
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
	identity string
	auto     bool

	mu       sync.Mutex // held for the whole of each call
	staged   []domain.TransferRequest
	pending  []domain.TransferRequest
	inflight []domain.TransferRequest // taken by Flush, not yet moved on the bank
	retry    []domain.TransferOutcome // settled, continuation still to record
}

// Option configures a Host.
type Option func(*Host)

// WithClock sets the source of ExecutionContext.Now.
func WithClock(now func() time.Time) Option { return func(h *Host) { h.now = now } }

// WithLogger sets the host's logger.
func WithLogger(l zerolog.Logger) Option { return func(h *Host) { h.log = l } }

// WithRateLimit limits each caller to rps calls per second with the given
// burst. rps <= 0 leaves calls unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(h *Host) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		h.limiter = NewRateLimiter(rps, burst)
	}
}

// WithAutoSettle controls whether transfers are settled right after the
// call that requested them.
func WithAutoSettle(on bool) Option { return func(h *Host) { h.auto = on } }

// WithIdentity sets the caller identity of host-initiated calls.
func WithIdentity(id string) Option { return func(h *Host) { h.identity = id } }

// WithCallIDs sets the call id generator.
func WithCallIDs(gen func() string) Option { return func(h *Host) { h.newID = gen } }

// New returns a Host driving svc and registers itself as svc's transfer
// agent.
func New(svc *services.BlogService, bank Bank, opts ...Option) *Host {
	h := &Host{
		svc:      svc,
		bank:     bank,
		log:      log.Logger,
		now:      time.Now,
		newID:    uuid.NewString,
		identity: DefaultIdentity,
		auto:     true,
	}
	for _, o := range opts {
		o(h)
	}
	svc.Transfers = h
	return h
}

// Service returns the driven engine.
func (h *Host) Service() *services.BlogService { return h.svc }

// RequestTransfer queues req on behalf of the running call. It implements
// services.TransferRequester and is only valid from inside a call.
func (h *Host) RequestTransfer(_ context.Context, req domain.TransferRequest) error {
	h.staged = append(h.staged, req)
	return nil
}

// Invoke runs fn as one call by caller and returns its result. Calls are
// serialized. If fn fails, the transfers it requested are dropped.
func Invoke[T any](ctx context.Context, h *Host, caller string, fn Call[T]) (T, error) {
	var zero T
	if h.limiter != nil && !h.limiter.Allow(caller) {
		h.log.Warn().Str("caller", caller).Msg("call rejected by rate limiter")
		return zero, ErrRateLimited
	}

	v, queued, err := run(ctx, h, caller, fn)
	if err != nil {
		return zero, err
	}
	if h.auto && queued > 0 {
		h.Flush(ctx)
	}
	return v, nil
}

// Exec is Invoke for calls that return only an error.
func (h *Host) Exec(ctx context.Context, caller string, fn func(ctx context.Context, ec domain.ExecutionContext) error) error {
	_, err := Invoke[struct{}](ctx, h, caller, func(ctx context.Context, ec domain.ExecutionContext) (struct{}, error) {
		return struct{}{}, fn(ctx, ec)
	})
	return err
}

// run executes fn under the host lock and commits its staged transfers on
// success. It reports how many transfers were queued.
func run[T any](ctx context.Context, h *Host, caller string, fn Call[T]) (T, int, error) {
	var zero T
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}
	ec, err := h.executionContext(ctx, caller)
	if err != nil {
		return zero, 0, err
	}

	h.staged = nil
	v, err := fn(ctx, ec)
	staged := h.staged
	h.staged = nil
	if err != nil {
		if len(staged) > 0 {
			h.log.Debug().Str("call_id", ec.CallID).Int("dropped", len(staged)).Msg("call failed, transfers dropped")
		}
		return zero, 0, err
	}
	h.pending = append(h.pending, staged...)
	return v, len(staged), nil
}

// executionContext builds the per-call context. Balance is what the bank
// holds for caller minus transfers it has queued or that are being settled.
// Must be called with h.mu held.
func (h *Host) executionContext(ctx context.Context, caller string) (domain.ExecutionContext, error) {
	bal, err := h.bank.Balance(ctx, caller)
	if err != nil {
		return domain.ExecutionContext{}, err
	}
	for _, q := range [][]domain.TransferRequest{h.pending, h.inflight} {
		for _, p := range q {
			if p.Donor == caller {
				bal -= p.Amount
			}
		}
	}
	return domain.ExecutionContext{
		CallID:  h.newID(),
		Caller:  caller,
		Now:     h.now().UTC(),
		Balance: bal,
	}, nil
}

// Pending returns the number of transfers waiting to be settled plus the
// continuations waiting to be retried.
func (h *Host) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending) + len(h.retry)
}

// Flush first retries continuations that previously failed with an
// internal error, then settles every queued transfer in request order. For
// each transfer it moves the funds on the bank, then runs CompleteDonation
// with the outcome as a separate host call.
func (h *Host) Flush(ctx context.Context) []Settlement {
	h.mu.Lock()
	queue, retry := h.pending, h.retry
	h.pending, h.retry = nil, nil
	h.inflight = append(h.inflight, queue...)
	h.mu.Unlock()

	out := make([]Settlement, 0, len(retry)+len(queue))
	for _, o := range retry {
		out = append(out, h.complete(ctx, o))
	}
	for _, req := range queue {
		out = append(out, h.settle(ctx, req))
	}
	return out
}

func (h *Host) settle(ctx context.Context, req domain.TransferRequest) Settlement {
	outcome := domain.TransferOutcome{Request: req, OK: true}
	err := h.bank.Transfer(ctx, req.Donor, req.Recipient, req.Amount)

	h.mu.Lock()
	for i, p := range h.inflight {
		if p.Key == req.Key {
			h.inflight = append(h.inflight[:i], h.inflight[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	if err != nil {
		outcome.OK = false
		outcome.Reason = err.Error()
		h.log.Warn().
			Str("receipt_key", req.Key).
			Str("donor", req.Donor).
			Int64("amount", req.Amount).
			Err(err).
			Msg("transfer failed")
	}
	return h.complete(ctx, outcome)
}

// complete runs the donation continuation for outcome. A settled transfer
// whose continuation fails with an internal error is kept for the next
// Flush, since its funds have already moved.
func (h *Host) complete(ctx context.Context, outcome domain.TransferOutcome) Settlement {
	d, _, err := run[*domain.Donation](ctx, h, h.identity, func(ctx context.Context, ec domain.ExecutionContext) (*domain.Donation, error) {
		return h.svc.CompleteDonation(ctx, ec, outcome)
	})
	if err != nil && outcome.OK && services.Kind(err) == "internal" {
		h.mu.Lock()
		h.retry = append(h.retry, outcome)
		h.mu.Unlock()
		h.log.Error().
			Str("receipt_key", outcome.Request.Key).
			Err(err).
			Msg("donation not recorded, will retry")
	}
	return Settlement{Outcome: outcome, Donation: d, Err: err}
}
