package domain

import "fmt"

// VoteState is an identity's relationship to a post.
type VoteState int

const (
	VoteStateNone VoteState = iota
	VoteStateUpvoted
	VoteStateDownvoted
)

// VoteStateOf maps a stored vote value to its state. Any value other than
// VoteUp or VoteDown (including 0 for "no row") is VoteStateNone.
func VoteStateOf(value int) VoteState {
	switch value {
	case VoteUp:
		return VoteStateUpvoted
	case VoteDown:
		return VoteStateDownvoted
	default:
		return VoteStateNone
	}
}

func (s VoteState) String() string {
	switch s {
	case VoteStateUpvoted:
		return "Upvoted"
	case VoteStateDownvoted:
		return "Downvoted"
	default:
		return "None"
	}
}

// MarshalText encodes the state by name.
func (s VoteState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *VoteState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Upvoted":
		*s = VoteStateUpvoted
	case "Downvoted":
		*s = VoteStateDownvoted
	case "None":
		*s = VoteStateNone
	default:
		return fmt.Errorf("unknown vote state %q", b)
	}
	return nil
}

// VoteStats is the tally of a post's votes.
type VoteStats struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}
