// Package metrics holds the prometheus instruments for the crediting flow.
// Everything is registered on the default registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CreditsGranted counts genuine (non-duplicate) credit grants by source
	// ("direct" or "webhook").
	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditsvc_credits_granted_total",
		Help: "Completed orders that resulted in a balance increment.",
	}, []string{"source"})

	// DuplicateConfirmations counts idempotent no-op confirmations.
	DuplicateConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditsvc_duplicate_confirmations_total",
		Help: "Redundant confirmations observed as already completed.",
	}, []string{"source"})

	// SecurityRejections counts rejected requests by reason
	// ("signature", "identity", "ownership").
	SecurityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditsvc_security_rejections_total",
		Help: "Requests rejected at a security boundary.",
	}, []string{"reason"})

	// GatewayLookupFailures counts status-checker calls that did not yield
	// an authoritative answer (network, timeout, bad response).
	GatewayLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditsvc_gateway_lookup_failures_total",
		Help: "Gateway status lookups that failed before returning a status.",
	})

	// TransactionConflicts counts ledger transactions that exhausted the
	// bounded retry budget.
	TransactionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditsvc_transaction_conflicts_total",
		Help: "Credit transactions aborted after exhausting conflict retries.",
	})
)
