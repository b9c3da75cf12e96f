package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrAccountNotFound = errors.New("credit account not found")

// Account is one user's spendable credit balance. The invariant
// credits = total_earned - total_used is maintained by the ledger engine,
// the sole writer of the earned side.
type Account struct {
	UserID             string
	Credits            int64
	TotalCreditsEarned int64
	TotalCreditsUsed   int64
	LastCreditUpdate   time.Time
}

type Accounts interface {
	Get(ctx context.Context, userID string) (Account, error)
	// GetForUpdate lazily creates the account row on first use, then locks
	// it for the remainder of the transaction.
	GetForUpdate(tx *sql.Tx, userID string) (Account, error)
	// ApplyCredit adds credits to the locked account and bumps the
	// monotonic earned total.
	ApplyCredit(tx *sql.Tx, userID string, credits int64, at time.Time) error
}
