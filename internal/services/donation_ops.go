package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/domain"
	"github.com/tbourn/go-blog-engine/internal/repo"
)

// Donate is phase one of a donation. It checks that the post exists, that
// amount is positive and that the caller can cover it, then asks the
// environment to transfer amount to the post's author. Nothing is recorded
// until the environment reports the outcome through CompleteDonation.
func (s *BlogService) Donate(ctx context.Context, ec domain.ExecutionContext, postID uint64, amount int64, message string) (req *domain.TransferRequest, err error) {
	ctx, done := s.begin(ctx, opDonate, &ec,
		idAttr("post.id", postID),
		attribute.Int64("amount", amount),
	)
	defer func() { done(err) }()

	p, err := requirePost(ctx, s.DB, postID)
	if err != nil {
		return nil, err
	}
	if amount < 1 {
		return nil, ErrInvalidAmount
	}
	if ec.Balance < amount {
		return nil, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, ec.Balance, amount)
	}
	if s.Transfers == nil {
		return nil, ErrNoTransferAgent
	}

	r := domain.TransferRequest{
		Key:       s.NewKey(),
		PostID:    postID,
		Donor:     ec.Caller,
		Recipient: p.Author,
		Amount:    amount,
		Message:   message,
	}
	if err := s.Transfers.RequestTransfer(ctx, r); err != nil {
		return nil, fmt.Errorf("request transfer: %w", err)
	}

	lg := s.logger(opDonate, &ec)
	lg.Info().
		Uint64("post_id", postID).
		Int64("amount", amount).
		Str("receipt_key", r.Key).
		Msgf("Transfer of %d to %s requested", amount, p.Author)
	return &r, nil
}

// CompleteDonation is phase two of a donation, run by the environment once
// the transfer has settled. A failed transfer is reported as
// ErrTransferFailed and leaves the ledger untouched. A successful one is
// appended to the post's ledger and added to its total. Running it again
// for the same receipt returns the entry already recorded.
//
// The post is looked up including tombstones: funds that already moved are
// recorded even if the post was deleted in between.
func (s *BlogService) CompleteDonation(ctx context.Context, ec domain.ExecutionContext, outcome domain.TransferOutcome) (donation *domain.Donation, err error) {
	req := outcome.Request
	ctx, done := s.begin(ctx, opCompleteDonation, &ec,
		idAttr("post.id", req.PostID),
		attribute.String("receipt_key", req.Key),
		attribute.Bool("transfer.ok", outcome.OK),
	)
	defer func() { done(err) }()

	if !outcome.OK {
		return nil, fmt.Errorf("%w: %s", ErrTransferFailed, outcome.Reason)
	}

	var created bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := repo.GetDonationByReceipt(ctx, tx, req.Key)
		switch {
		case err == nil:
			donation = prev
			return nil
		case !errors.Is(err, repo.ErrNotFound):
			return fmt.Errorf("load receipt: %w", err)
		}

		if _, err := repo.GetPostUnscoped(ctx, tx, req.PostID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrPostNotFound
			}
			return fmt.Errorf("load post %d: %w", req.PostID, err)
		}

		did, err := s.IDs.Next(ctx, tx, domain.CounterDonations)
		if err != nil {
			return fmt.Errorf("allocate donation id: %w", err)
		}
		d, err := repo.CreateDonation(ctx, tx, domain.Donation{
			ID:         did,
			PostID:     req.PostID,
			Donor:      req.Donor,
			Amount:     req.Amount,
			Message:    req.Message,
			ReceiptKey: req.Key,
		}, ec.Now)
		if err != nil {
			return fmt.Errorf("append donation: %w", err)
		}
		if err := repo.AddDonated(ctx, tx, req.PostID, req.Amount); err != nil {
			return fmt.Errorf("update total: %w", err)
		}
		donation, created = d, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	lg := s.logger(opCompleteDonation, &ec)
	if !created {
		lg.Debug().Str("receipt_key", req.Key).Uint64("donation_id", donation.ID).Msg("donation already recorded")
		return donation, nil
	}
	donatedTotal.Add(float64(donation.Amount))
	lg.Info().
		Uint64("post_id", donation.PostID).
		Uint64("donation_id", donation.ID).
		Int64("amount", donation.Amount).
		Msgf("%s donated %d to post %d", donation.Donor, donation.Amount, donation.PostID)
	return donation, nil
}

// GetDonations returns postID's ledger in append order.
func (s *BlogService) GetDonations(ctx context.Context, postID uint64) (donations []domain.Donation, err error) {
	ctx, done := s.begin(ctx, opGetDonations, nil, idAttr("post.id", postID))
	defer func() { done(err) }()

	if _, err = requirePost(ctx, s.DB, postID); err != nil {
		return nil, err
	}
	return repo.ListDonations(ctx, s.DB, []uint64{postID})
}

// GetTotalDonated returns the sum of postID's ledger amounts.
func (s *BlogService) GetTotalDonated(ctx context.Context, postID uint64) (total int64, err error) {
	ctx, done := s.begin(ctx, opGetTotalDonated, nil, idAttr("post.id", postID))
	defer func() { done(err) }()

	if _, err = requirePost(ctx, s.DB, postID); err != nil {
		return 0, err
	}
	return repo.SumDonations(ctx, s.DB, postID)
}
