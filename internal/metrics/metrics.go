package metrics

import (
	"time"

	apperrors "github.com/nrlogs/nrlogs/internal/pkg/errors"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records
// nothing, so callers never need to check.
type Metrics struct {
	// Query metrics
	QueryRequests  *CounterVec // labels: code ("ok" or an error code)
	QueryLatency   *Histogram  // milliseconds, backend round trip included
	QueryRecords   *Histogram
	QueryTruncated *Counter

	// Account metrics
	AccountLookups *CounterVec // labels: code

	// MCP metrics
	ToolCalls         *CounterVec // labels: tool, outcome
	ToolCallsInFlight *Gauge

	startTime time.Time
}

// New creates the metric set.
func New() *Metrics {
	return &Metrics{
		QueryRequests: NewCounterVec("nrlogs_query_requests_total",
			"Log queries by result code", []string{"code"}),
		QueryLatency: NewHistogram("nrlogs_query_duration_ms",
			"Log query duration in milliseconds", nil),
		QueryRecords: NewHistogram("nrlogs_query_records",
			"Log entries returned per query, after truncation",
			[]float64{0, 10, 50, 100, 250, 500, 1000, 2000}),
		QueryTruncated: NewCounter("nrlogs_query_truncated_total",
			"Responses truncated to fit the size budget", nil),

		AccountLookups: NewCounterVec("nrlogs_account_lookups_total",
			"Account name lookups by result code", []string{"code"}),

		ToolCalls: NewCounterVec("nrlogs_tool_calls_total",
			"MCP tool calls by tool and outcome", []string{"tool", "outcome"}),
		ToolCallsInFlight: NewGauge("nrlogs_tool_calls_in_flight",
			"MCP tool calls currently executing"),

		startTime: time.Now(),
	}
}

func codeLabel(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return apperrors.CodeOf(err)
}

// RecordQuery records one log query.
func (m *Metrics) RecordQuery(d time.Duration, records int, truncated bool, err error) {
	if m == nil {
		return
	}
	m.QueryRequests.WithLabels(codeLabel(err)).Inc()
	m.QueryLatency.Observe(float64(d.Microseconds()) / 1000)
	if err != nil {
		return
	}
	m.QueryRecords.Observe(float64(records))
	if truncated {
		m.QueryTruncated.Inc()
	}
}

// RecordAccountLookup records one account name resolution.
func (m *Metrics) RecordAccountLookup(err error) {
	if m == nil {
		return
	}
	m.AccountLookups.WithLabels(codeLabel(err)).Inc()
}

// StartToolCall marks a tool call in flight and returns a func that records
// its outcome.
func (m *Metrics) StartToolCall(tool string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	m.ToolCallsInFlight.Inc()
	return func(err error) {
		m.ToolCallsInFlight.Dec()
		outcome := OutcomeOK
		if err != nil {
			outcome = OutcomeError
		}
		m.ToolCalls.WithLabels(tool, outcome).Inc()
	}
}

// Uptime returns the time since the metrics were created.
func (m *Metrics) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}
