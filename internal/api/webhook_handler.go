package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/luminapay/creditsvc/internal/auth"
	"github.com/luminapay/creditsvc/internal/infra/logging"
	"github.com/luminapay/creditsvc/internal/infra/metrics"
	"github.com/luminapay/creditsvc/internal/services/ledger"
)

const webhookSignatureHeader = "X-Gateway-Signature"

// GatewayWebhookHandler handles POST /webhooks/gateway.
//
// The gateway redelivers on any non-2xx, so the handler acknowledges
// everything it has conclusively dealt with (applied, duplicate, failed
// transition, unknown event type, ownership rejection) and returns 500
// only when a retry might succeed. Internal error detail never goes into
// the acknowledgement body.
func (h *HandlerProvider) GatewayWebhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	//nolint:errcheck
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"ok": false})
		return
	}

	// Webhook-specific secret, computed over the raw body bytes.
	err = h.sig.Webhook(body, r.Header.Get(webhookSignatureHeader))
	if err != nil {
		metrics.SecurityRejections.WithLabelValues("signature").Inc()
		logging.SecurityEvent(r.Context(), "webhook signature rejected",
			"remote_addr", r.RemoteAddr)

		writeJSON(w, http.StatusBadRequest, map[string]bool{"ok": false})
		return
	}

	ev, err := ledger.ParseGatewayEvent(body)
	if err != nil {
		slog.WarnContext(r.Context(), "undecodable gateway event", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]bool{"ok": false})
		return
	}

	_, err = h.svc.HandleGatewayEvent(r.Context(), ev)
	if err != nil {
		// Deterministic rejections are acknowledged so the gateway stops
		// redelivering; they are already security-logged by the service.
		if errors.Is(err, auth.ErrOwnershipMismatch) ||
			errors.Is(err, ledger.ErrPaymentNotCaptured) ||
			errors.Is(err, ledger.ErrOrderFailed) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "applied": false})
			return
		}

		slog.ErrorContext(r.Context(), "gateway event processing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]bool{"ok": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
