package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Order is one credit-purchase attempt. It is created pending by the
// order-creation service and mutated exactly once, by the ledger engine.
type Order struct {
	ID               string
	UserID           string
	AmountMinor      int64 // cents
	Currency         string
	CreditsRequested int64
	Status           Status
	PaymentID        string // empty until a payment is attached
	CreditsAfter     int64  // balance snapshot, set on completion
	CreatedAt        time.Time
	CompletedAt      time.Time // zero while pending
}

type Orders interface {
	Get(ctx context.Context, orderID string) (Order, error)
	// GetForUpdate re-reads the order inside the transaction with a row
	// lock, serializing racing verifications of the same order.
	GetForUpdate(tx *sql.Tx, orderID string) (Order, error)
	// MarkCompleted flips pending->completed. Completed rows are immutable;
	// a non-pending row yields ErrOrderNotPending.
	MarkCompleted(tx *sql.Tx, orderID, paymentID string, creditsAfter int64, completedAt time.Time) error
	// MarkFailed flips pending->failed.
	MarkFailed(tx *sql.Tx, orderID, paymentID string, failedAt time.Time) error
}
