package ledger

// ConfirmRequest is one direct verification attempt from the paying client.
// CreditsRequested is advisory only; the engine always credits the value
// stored on the order at creation.
type ConfirmRequest struct {
	OrderID          string
	PaymentID        string
	Signature        string
	UserID           string
	CreditsRequested int64
	Token            string // optional bearer token, empty when absent
}

// ConfirmResult is reported for both a fresh completion and an idempotent
// replay. On a replay Credited is 0 and Duplicate is true; both are success
// states for the caller.
type ConfirmResult struct {
	OrderID   string
	Credited  int64
	Duplicate bool
	Balance   int64
	ReceiptID string
}
