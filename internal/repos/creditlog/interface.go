package creditlog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrDuplicateGrant means an entry for this order already exists.
	// The order_id unique constraint is the second idempotency fence behind
	// the order-status check.
	ErrDuplicateGrant = errors.New("credit already granted for order")

	ErrEntryNotFound = errors.New("credit transaction not found")
)

const (
	TypePurchase = "purchase"

	SourceDirect  = "direct"
	SourceWebhook = "webhook"
)

// Entry is one append-only ledger row. Entries are write-once; consecutive
// entries for a user chain credits_after -> credits_before.
type Entry struct {
	ID            string
	UserID        string
	Type          string
	Amount        int64
	CreditsBefore int64
	CreditsAfter  int64
	OrderID       string
	PaymentID     string
	Source        string
	CreatedAt     time.Time
}

type CreditLog interface {
	Insert(tx *sql.Tx, e Entry) error
	GetByOrder(ctx context.Context, orderID string) (Entry, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}
