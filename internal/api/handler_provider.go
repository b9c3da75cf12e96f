package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/luminapay/creditsvc/internal/auth"
	"github.com/luminapay/creditsvc/internal/gateway"
	"github.com/luminapay/creditsvc/internal/repos/accounts"
	"github.com/luminapay/creditsvc/internal/repos/orders"
	"github.com/luminapay/creditsvc/internal/repos/receipts"
	"github.com/luminapay/creditsvc/internal/services/ledger"
	"github.com/luminapay/creditsvc/internal/signature"
)

const (
	maxBodyBytes    = 1 << 20 // 1MB cap
	receiptPageSize = 50
)

// Confirmer is the slice of the ledger service the handlers need.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, req ledger.ConfirmRequest) (ledger.ConfirmResult, error)
	HandleGatewayEvent(ctx context.Context, ev ledger.GatewayEvent) (ledger.ConfirmResult, error)
}

// HandlerProvider wraps the ledger service and exposes HTTP handlers.
type HandlerProvider struct {
	svc      Confirmer
	sig      *signature.Verifier
	accounts accounts.Accounts
	receipts receipts.Receipts
}

func NewHandler(svc Confirmer, sig *signature.Verifier, accts accounts.Accounts, recs receipts.Receipts) *HandlerProvider {
	return &HandlerProvider{svc: svc, sig: sig, accounts: accts, receipts: recs}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)

		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// bearerToken extracts the optional token from the Authorization header.
func bearerToken(h http.Header) string {
	raw := strings.TrimSpace(h.Get("Authorization"))
	if raw == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(raw, prefix) {
		return ""
	}

	return strings.TrimSpace(raw[len(prefix):])
}

type verifyRequest struct {
	OrderID          string `json:"orderId"`
	PaymentID        string `json:"paymentId"`
	Signature        string `json:"signature"`
	UserID           string `json:"userId"`
	CreditsRequested int64  `json:"creditsRequested"`
}

type verifyResponse struct {
	Status    string `json:"status"`
	OrderID   string `json:"orderId"`
	Credited  int64  `json:"credited"`
	Duplicate bool   `json:"duplicate"`
	Balance   int64  `json:"balance"`
	ReceiptID string `json:"receiptId,omitempty"`
}

// --- Handlers ---

// VerifyPaymentHandler handles POST /payments/verify, the direct
// verification entry point.
func (h *HandlerProvider) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	//nolint:errcheck
	defer r.Body.Close()

	var req verifyRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(&req)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty body")
			return
		}

		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "orderId, paymentId, signature and userId are required")
		return
	}

	res, err := h.svc.ConfirmPayment(r.Context(), ledger.ConfirmRequest{
		OrderID:          req.OrderID,
		PaymentID:        req.PaymentID,
		Signature:        req.Signature,
		UserID:           req.UserID,
		CreditsRequested: req.CreditsRequested,
		Token:            bearerToken(r.Header),
	})
	if err != nil {
		h.writeConfirmError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Status:    "ok",
		OrderID:   res.OrderID,
		Credited:  res.Credited,
		Duplicate: res.Duplicate,
		Balance:   res.Balance,
		ReceiptID: res.ReceiptID,
	})
}

// writeConfirmError maps the error taxonomy to HTTP codes. Security
// rejections get deliberately generic bodies; details stay in the logs.
func (h *HandlerProvider) writeConfirmError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signature.ErrMalformedSignature):
		writeError(w, http.StatusBadRequest, "malformed signature")
	case errors.Is(err, signature.ErrSignatureMismatch):
		writeError(w, http.StatusForbidden, "verification rejected")
	case errors.Is(err, auth.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, auth.ErrIdentityMismatch), errors.Is(err, auth.ErrOwnershipMismatch):
		writeError(w, http.StatusForbidden, "verification rejected")
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ledger.ErrPaymentNotCaptured):
		writeError(w, http.StatusConflict, "payment not captured")
	case errors.Is(err, ledger.ErrOrderFailed):
		writeError(w, http.StatusConflict, "order failed")
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
	case errors.Is(err, ledger.ErrTransactionConflict):
		writeError(w, http.StatusServiceUnavailable, "temporary contention, retry")
	default:
		slog.Error("payment verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// GetCreditsHandler handles GET /user/{userId}/credits. A user without an
// account row simply has a zero balance.
func (h *HandlerProvider) GetCreditsHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId in path")
		return
	}

	acct, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			acct = accounts.Account{UserID: userID}
		} else {
			slog.Error("get credits failed", "error", err, "user_id", userID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":             acct.UserID,
		"credits":            acct.Credits,
		"totalCreditsEarned": acct.TotalCreditsEarned,
		"totalCreditsUsed":   acct.TotalCreditsUsed,
	})
}

type receiptItem struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	PaymentID string    `json:"paymentId"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Credits   int64     `json:"credits"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// ListReceiptsHandler handles GET /user/{userId}/receipts.
func (h *HandlerProvider) ListReceiptsHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId in path")
		return
	}

	recs, err := h.receipts.ListByUser(r.Context(), userID, receiptPageSize)
	if err != nil {
		slog.Error("list receipts failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]receiptItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, receiptItem{
			ID:        rec.ID,
			OrderID:   rec.OrderID,
			PaymentID: rec.PaymentID,
			Amount:    formatMinor(rec.AmountMinor),
			Currency:  rec.Currency,
			Credits:   rec.Credits,
			IssuedAt:  rec.IssuedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "receipts": items})
}

// formatMinor renders minor units as a decimal string ("1015" -> "10.15").
func formatMinor(m int64) string {
	return decimal.NewFromInt(m).Shift(-2).StringFixed(2)
}
