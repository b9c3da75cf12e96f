package ledger

import "errors"

// Sentinels owned by the engine. Security and store sentinels live with
// the packages that raise them (signature, auth, repos); handlers map the
// union with errors.Is.
var (
	// ErrPaymentNotCaptured: the gateway disagrees with the claimed
	// success — wrong status, wrong amount or wrong currency.
	ErrPaymentNotCaptured = errors.New("payment not captured")

	// ErrOrderFailed: the order reached the failed terminal state and can
	// never be credited.
	ErrOrderFailed = errors.New("order already failed")

	// ErrTransactionConflict: store contention survived the bounded retry
	// budget. Transient; the caller may retry the whole request.
	ErrTransactionConflict = errors.New("transaction conflict, retries exhausted")

	// ErrMalformedEvent: a webhook envelope that verified but cannot be
	// interpreted.
	ErrMalformedEvent = errors.New("malformed gateway event")
)
