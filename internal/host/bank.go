package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Bank errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTransfer   = errors.New("invalid transfer")
)

// Bank holds account balances and moves value between accounts. Amounts
// are in the smallest currency unit.
type Bank interface {
	Balance(ctx context.Context, account string) (int64, error)
	Transfer(ctx context.Context, from, to string, amount int64) error
}

// MemoryBank is a process-local Bank. The zero value is ready to use and
// every account starts at zero.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemoryBank returns an empty MemoryBank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[string]int64)}
}

// Deposit credits amount to account.
func (b *MemoryBank) Deposit(account string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: deposit of %d", ErrInvalidTransfer, amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances == nil {
		b.balances = make(map[string]int64)
	}
	b.balances[account] += amount
	return nil
}

// Balance returns account's current balance.
func (b *MemoryBank) Balance(_ context.Context, account string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account], nil
}

// Transfer moves amount from one account to another. It fails without
// changing anything when from cannot cover amount.
func (b *MemoryBank) Transfer(ctx context.Context, from, to string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 || from == to {
		return fmt.Errorf("%w: %d from %q to %q", ErrInvalidTransfer, amount, from, to)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return fmt.Errorf("%w: %q has %d, needs %d", ErrInsufficientFunds, from, b.balances[from], amount)
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}
