package receipts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrReceiptNotFound = errors.New("receipt not found")

// Receipt is the user-facing proof of purchase, derived 1:1 from a
// completed order and immutable once written.
type Receipt struct {
	ID          string
	OrderID     string
	UserID      string
	PaymentID   string
	AmountMinor int64
	Currency    string
	Credits     int64
	IssuedAt    time.Time
}

type Receipts interface {
	Insert(tx *sql.Tx, r Receipt) error
	GetByOrder(ctx context.Context, orderID string) (Receipt, error)
	// ListByUser serves the receipt-listing UI without a cross-user scan
	// (receipts are indexed per user).
	ListByUser(ctx context.Context, userID string, limit int) ([]Receipt, error)
}
