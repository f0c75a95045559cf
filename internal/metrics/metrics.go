package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsOpened counts ledger sessions that were established
	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbdc_gateway_sessions_opened_total",
			Help: "Total number of ledger sessions opened",
		},
	)

	// SessionsClosed counts ledger sessions that were torn down
	SessionsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbdc_gateway_sessions_closed_total",
			Help: "Total number of ledger sessions closed",
		},
	)

	// SessionErrors counts failed session scopes by error kind
	SessionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbdc_gateway_session_errors_total",
			Help: "Total number of session scopes that ended in an error",
		},
		[]string{"kind"},
	)

	// LedgerCallDuration tracks submit/evaluate latency
	LedgerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbdc_gateway_ledger_call_duration_seconds",
			Help:    "Ledger invocation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"function", "mode", "outcome"},
	)

	// TokenOperations counts token service operations by name and outcome
	TokenOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbdc_gateway_token_operations_total",
			Help: "Total number of token operations",
		},
		[]string{"operation", "outcome"},
	)

	// QueryPages counts transaction query pages served by mode
	QueryPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbdc_gateway_query_pages_total",
			Help: "Total number of transaction query pages served",
		},
		[]string{"mode", "outcome"},
	)
)

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
