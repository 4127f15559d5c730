// Package services defines the business logic of the blog engine.
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Errors form a two-level taxonomy. The category sentinels (ErrNotFound,
// ErrValidation, ErrUnauthorized, ErrInsufficientResources) are what hosts
// branch on; every specific error wraps exactly one category, so both
// errors.Is(err, ErrPostNotFound) and errors.Is(err, ErrNotFound) hold.
package services

import (
	"errors"
	"fmt"
)

// Categories.
var (
	// ErrNotFound indicates that a referenced post or comment is absent.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates an argument outside its allowed range.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates the caller lacks the role an operation needs.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientResources indicates the caller cannot fund a request.
	ErrInsufficientResources = errors.New("insufficient resources")
)

// Specific errors.
var (
	ErrPostNotFound    = fmt.Errorf("post %w", ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("comment %w", ErrNotFound)

	ErrInvalidPage     = fmt.Errorf("%w: page must be greater than 0", ErrValidation)
	ErrInvalidPageSize = fmt.Errorf("%w: page size must be greater than 0", ErrValidation)
	ErrCommentTooShort = fmt.Errorf("%w: comment is too short", ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be greater than 0", ErrValidation)

	// ErrNotOwner is returned when someone other than the configured owner
	// attempts an owner-only action.
	ErrNotOwner = fmt.Errorf("%w: only the owner can do this", ErrUnauthorized)

	// ErrInsufficientFunds is returned when a donation exceeds the caller's
	// available balance.
	ErrInsufficientFunds = fmt.Errorf("%w: not enough balance", ErrInsufficientResources)

	// ErrTransferFailed is returned by the donation continuation when the
	// environment reports that the value transfer did not go through. No
	// ledger entry is written in that case.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrNoTransferAgent is returned by Donate when the service has no
	// environment to request transfers from.
	ErrNoTransferAgent = errors.New("no transfer agent configured")
)

// Kind maps err to a stable, low-cardinality label for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInsufficientResources):
		return "insufficient_resources"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	default:
		return "internal"
	}
}
