package domain

import "time"

// ExecutionContext is the per-call data supplied by the hosting environment.
// The engine treats it as opaque input: it never computes the caller, the
// clock or the balance itself.
type ExecutionContext struct {
	CallID  string    // correlation id for logs and traces
	Caller  string    // identity invoking the operation
	Now     time.Time // timestamp stamped on anything the call creates
	Balance int64     // funds available to the caller, smallest currency unit
}

// TransferRequest is phase one of a donation: the engine asks the
// environment to move Amount from Donor to Recipient. Key identifies the
// transfer and becomes the ledger entry's receipt key.
type TransferRequest struct {
	Key       string
	PostID    uint64
	Donor     string
	Recipient string
	Amount    int64
	Message   string
}

// TransferOutcome is what the environment reports back to the continuation
// once a TransferRequest has settled.
type TransferOutcome struct {
	Request TransferRequest
	OK      bool
	Reason  string // set when OK is false
}
