// Package ledger is the transactional core of the payment-to-credit flow.
// Both entry points (the client's direct confirmation and the gateway
// webhook) run the same pipeline: signature check, gateway status lookup,
// identity guard, then one atomic credit transaction. Whichever path gets
// there first performs the increment; the other observes already-completed
// and no-ops.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/luminapay/creditsvc/internal/auth"
	"github.com/luminapay/creditsvc/internal/gateway"
	"github.com/luminapay/creditsvc/internal/infra/logging"
	"github.com/luminapay/creditsvc/internal/infra/metrics"
	"github.com/luminapay/creditsvc/internal/infra/pgutils"
	"github.com/luminapay/creditsvc/internal/repos/accounts"
	pgaccounts "github.com/luminapay/creditsvc/internal/repos/accounts/postgres"
	"github.com/luminapay/creditsvc/internal/repos/creditlog"
	pgcreditlog "github.com/luminapay/creditsvc/internal/repos/creditlog/postgres"
	"github.com/luminapay/creditsvc/internal/repos/orders"
	pgorders "github.com/luminapay/creditsvc/internal/repos/orders/postgres"
	"github.com/luminapay/creditsvc/internal/repos/receipts"
	pgreceipts "github.com/luminapay/creditsvc/internal/repos/receipts/postgres"
	"github.com/luminapay/creditsvc/internal/signature"
)

const defaultMaxAttempts = 4

type Service struct {
	orders   orders.Orders
	accounts accounts.Accounts
	entries  creditlog.CreditLog
	receipts receipts.Receipts

	checker gateway.StatusChecker
	sig     *signature.Verifier
	guard   *auth.Guard

	// runTx executes one attempt of the atomic credit unit. Production
	// wires it to pgutils.WithTx; tests inject their own runner.
	runTx       func(ctx context.Context, fn func(*sql.Tx) error) error
	maxAttempts int
	now         func() time.Time
}

func New(db *sql.DB, checker gateway.StatusChecker, sig *signature.Verifier, guard *auth.Guard) *Service {
	return &Service{
		orders:   pgorders.New(db),
		accounts: pgaccounts.New(db),
		entries:  pgcreditlog.New(db),
		receipts: pgreceipts.New(db),
		checker:  checker,
		sig:      sig,
		guard:    guard,
		runTx: func(ctx context.Context, fn func(*sql.Tx) error) error {
			return pgutils.WithTx(ctx, db, fn)
		},
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// ConfirmPayment is the direct verification entry point.
func (s *Service) ConfirmPayment(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	err := s.sig.Payment(req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		metrics.SecurityRejections.WithLabelValues("signature").Inc()
		logging.SecurityEvent(ctx, "payment signature rejected",
			"order_id", req.OrderID, "payment_id", req.PaymentID, "user_id", req.UserID)

		return ConfirmResult{}, err
	}

	ord, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load order: %w", err)
	}

	err = s.checkCaptured(ctx, ord, req.PaymentID)
	if err != nil {
		return ConfirmResult{}, err
	}

	err = s.guard.Authorize(req.Token, req.UserID, ord.UserID)
	if err != nil {
		s.logGuardRejection(ctx, err, req.OrderID, req.UserID)

		return ConfirmResult{}, err
	}

	// The stored value is trusted; a differing client claim is recorded
	// and ignored.
	if req.CreditsRequested != 0 && req.CreditsRequested != ord.CreditsRequested {
		slog.WarnContext(ctx, "client credits claim differs from order, using stored value",
			"order_id", ord.ID,
			"claimed", req.CreditsRequested,
			"stored", ord.CreditsRequested)
	}

	return s.creditOrder(ctx, ord.ID, req.PaymentID, creditlog.SourceDirect)
}

// HandleGatewayEvent is the webhook entry point, fed with a parsed,
// signature-verified event.
func (s *Service) HandleGatewayEvent(ctx context.Context, ev GatewayEvent) (ConfirmResult, error) {
	switch e := ev.(type) {
	case CapturedEvent:
		ord, err := s.orders.Get(ctx, e.OrderID)
		if err != nil {
			return ConfirmResult{}, fmt.Errorf("load order: %w", err)
		}

		err = s.checkCaptured(ctx, ord, e.PaymentID)
		if err != nil {
			return ConfirmResult{}, err
		}

		// No user token on this path; ownership is the only identity check.
		if e.UserID != "" {
			err = s.guard.Authorize("", e.UserID, ord.UserID)
			if err != nil {
				s.logGuardRejection(ctx, err, e.OrderID, e.UserID)

				return ConfirmResult{}, err
			}
		}

		return s.creditOrder(ctx, ord.ID, e.PaymentID, creditlog.SourceWebhook)

	case FailedEvent:
		err := s.failOrder(ctx, e.OrderID, e.PaymentID)
		if err != nil {
			return ConfirmResult{}, err
		}

		slog.InfoContext(ctx, "order marked failed from gateway event",
			"order_id", e.OrderID, "reason", e.Reason)

		return ConfirmResult{OrderID: e.OrderID}, nil

	case UnknownEvent:
		slog.InfoContext(ctx, "ignoring unhandled gateway event type",
			"event_id", e.EventID, "type", e.Type)

		return ConfirmResult{}, nil

	default:
		return ConfirmResult{}, fmt.Errorf("%w: unexpected event %T", ErrMalformedEvent, ev)
	}
}

// checkCaptured asks the gateway for the authoritative status. A verified
// signature is not proof of capture, and the gateway's amount must match
// the order's; anything else is a rejection, never a silent success.
func (s *Service) checkCaptured(ctx context.Context, ord orders.Order, paymentID string) error {
	payment, err := s.checker.PaymentStatus(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gateway.ErrPaymentUnknown) {
			return fmt.Errorf("%w: %v", ErrPaymentNotCaptured, err)
		}

		metrics.GatewayLookupFailures.Inc()

		return fmt.Errorf("gateway status lookup: %w", err)
	}

	if payment.Status != gateway.StatusCaptured {
		return fmt.Errorf("%w: gateway reports %s", ErrPaymentNotCaptured, payment.Status)
	}

	if payment.AmountMinor != ord.AmountMinor || payment.Currency != ord.Currency {
		logging.SecurityEvent(ctx, "captured amount disagrees with order",
			"order_id", ord.ID,
			"payment_id", paymentID,
			"order_amount", ord.AmountMinor, "order_currency", ord.Currency,
			"captured_amount", payment.AmountMinor, "captured_currency", payment.Currency)

		return fmt.Errorf("%w: captured amount does not match order", ErrPaymentNotCaptured)
	}

	return nil
}

// creditOrder is the Credit Ledger Engine: at most one balance increment
// per order, applied in one atomic unit, retried a bounded number of times
// on store conflicts.
func (s *Service) creditOrder(ctx context.Context, orderID, paymentID, source string) (ConfirmResult, error) {
	var res ConfirmResult

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.runTx(ctx, func(tx *sql.Tx) error {
			res = ConfirmResult{OrderID: orderID}

			ord, err := s.orders.GetForUpdate(tx, orderID)
			if err != nil {
				return err
			}

			switch ord.Status {
			case orders.StatusCompleted:
				// The other entry point won the race. Report the recorded
				// outcome; zero credited, not an error.
				res.Duplicate = true
				res.Balance = ord.CreditsAfter

				return nil
			case orders.StatusFailed:
				return ErrOrderFailed
			case orders.StatusPending:
				// fall through to the increment
			}

			acct, err := s.accounts.GetForUpdate(tx, ord.UserID)
			if err != nil {
				return err
			}

			now := s.now().UTC()
			newBalance := acct.Credits + ord.CreditsRequested

			err = s.accounts.ApplyCredit(tx, ord.UserID, ord.CreditsRequested, now)
			if err != nil {
				return err
			}

			err = s.orders.MarkCompleted(tx, ord.ID, paymentID, newBalance, now)
			if err != nil {
				return err
			}

			err = s.entries.Insert(tx, creditlog.Entry{
				ID:            uuid.New().String(),
				UserID:        ord.UserID,
				Type:          creditlog.TypePurchase,
				Amount:        ord.CreditsRequested,
				CreditsBefore: acct.Credits,
				CreditsAfter:  newBalance,
				OrderID:       ord.ID,
				PaymentID:     paymentID,
				Source:        source,
				CreatedAt:     now,
			})
			if err != nil {
				return err
			}

			receipt := receipts.Receipt{
				ID:          uuid.New().String(),
				OrderID:     ord.ID,
				UserID:      ord.UserID,
				PaymentID:   paymentID,
				AmountMinor: ord.AmountMinor,
				Currency:    ord.Currency,
				Credits:     ord.CreditsRequested,
				IssuedAt:    now,
			}

			err = s.receipts.Insert(tx, receipt)
			if err != nil {
				return err
			}

			res.Credited = ord.CreditsRequested
			res.Balance = newBalance
			res.ReceiptID = receipt.ID

			return nil
		})
		if err == nil {
			if res.Duplicate {
				metrics.DuplicateConfirmations.WithLabelValues(source).Inc()

				// Surface the receipt issued by the winning invocation.
				rec, rerr := s.receipts.GetByOrder(ctx, orderID)
				if rerr == nil {
					res.ReceiptID = rec.ID
				}

				return res, nil
			}

			metrics.CreditsGranted.WithLabelValues(source).Inc()
			slog.InfoContext(ctx, "credits granted",
				"order_id", orderID, "credited", res.Credited,
				"balance", res.Balance, "source", source)

			return res, nil
		}

		if retryableConflict(err) {
			slog.WarnContext(ctx, "credit transaction conflict, retrying",
				"order_id", orderID, "attempt", attempt)

			continue
		}

		return ConfirmResult{}, fmt.Errorf("credit order: %w", err)
	}

	metrics.TransactionConflicts.Inc()

	return ConfirmResult{}, fmt.Errorf("%w: order %s", ErrTransactionConflict, orderID)
}

// failOrder transitions pending->failed. Replayed failure events for an
// already-terminal order are a no-op; a completed order is never reverted.
func (s *Service) failOrder(ctx context.Context, orderID, paymentID string) error {
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		ord, err := s.orders.GetForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		if ord.Status != orders.StatusPending {
			if ord.Status == orders.StatusCompleted {
				slog.ErrorContext(ctx, "failure event for a completed order, keeping credits",
					"order_id", orderID, "payment_id", paymentID)
			}

			return nil
		}

		return s.orders.MarkFailed(tx, orderID, paymentID, s.now().UTC())
	})
	if err != nil {
		return fmt.Errorf("fail order: %w", err)
	}

	return nil
}

// retryableConflict: serialization failures and a grant row lost to a
// racing commit both mean "re-run from the re-read".
func retryableConflict(err error) bool {
	return pgutils.IsSerializationFailure(err) || errors.Is(err, creditlog.ErrDuplicateGrant)
}

func (s *Service) logGuardRejection(ctx context.Context, err error, orderID, userID string) {
	reason := "identity"
	if errors.Is(err, auth.ErrOwnershipMismatch) {
		reason = "ownership"
	}

	metrics.SecurityRejections.WithLabelValues(reason).Inc()
	logging.SecurityEvent(ctx, "identity guard rejected verification",
		"order_id", orderID, "user_id", userID, "reason", reason)
}
