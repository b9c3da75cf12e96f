// Package gateway queries the payment gateway's API for the authoritative
// capture status of a payment. A verified signature only proves the message
// wasn't tampered with; whether funds actually cleared, and for how much,
// is answered here.
package gateway

import (
	"context"
	"errors"
)

// Status is the gateway's view of a payment.
type Status string

const (
	StatusCaptured   Status = "captured"
	StatusAuthorized Status = "authorized"
	StatusPending    Status = "pending"
	StatusFailed     Status = "failed"
	StatusRefused    Status = "refused"
)

// Payment is the authoritative record returned by the gateway query API.
type Payment struct {
	PaymentID   string
	Status      Status
	AmountMinor int64
	Currency    string
}

var (
	// ErrGatewayUnavailable covers network errors, timeouts and responses
	// that could not be interpreted. It is retryable and must never be
	// downgraded to a captured result.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentUnknown means the gateway has no record of the payment ID.
	ErrPaymentUnknown = errors.New("payment unknown to gateway")
)

type StatusChecker interface {
	PaymentStatus(ctx context.Context, paymentID string) (Payment, error)
}
