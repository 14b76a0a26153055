// Package logs runs structured log queries: it builds NRQL, executes it,
// normalizes the returned records, and bounds the rendered response size.
package logs

import (
	"strings"
	"time"

	"github.com/nrlogs/nrlogs/internal/nrql"
	apperrors "github.com/nrlogs/nrlogs/internal/pkg/errors"
)

// Request defaults and bounds.
const (
	DefaultSince = "1 hour ago"
	DefaultLimit = 100
	MinLimit     = 1
	MaxLimit     = 2000
)

// DefaultLevel is used for records without a level field.
const DefaultLevel = "INFO"

// QueryRequest describes a log query.
type QueryRequest struct {
	AccountID string `json:"account_id"`
	// Query is raw NRQL. When set, the other filter fields are ignored.
	Query         string       `json:"query,omitempty"`
	MessageSearch string       `json:"message_search,omitempty"`
	Filters       nrql.Filters `json:"filters,omitempty"`
	Since         string       `json:"since,omitempty"`
	Limit         int          `json:"limit,omitempty"`
}

// Normalize fills defaults and validates the request.
func (r *QueryRequest) Normalize() error {
	if strings.TrimSpace(r.AccountID) == "" {
		return apperrors.ValidationError("account_id is required")
	}
	if r.Since == "" {
		r.Since = DefaultSince
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit < MinLimit || r.Limit > MaxLimit {
		return apperrors.ValidationError("limit must be between 1 and 2000").
			WithDetail("limit", itoa(r.Limit))
	}
	return nil
}

// NRQL returns the query-builder view of the request.
func (r QueryRequest) NRQL() nrql.Request {
	return nrql.Request{
		Query:         r.Query,
		MessageSearch: r.MessageSearch,
		Filters:       r.Filters,
		Since:         r.Since,
		Limit:         r.Limit,
	}
}

// LogEntry is a single normalized log record.
type LogEntry struct {
	// Timestamp is epoch milliseconds; nil when the record had none.
	Timestamp  *int64
	Message    string
	Level      string
	Attributes map[string]any
}

// TimestampISO renders the timestamp as ISO-8601 UTC, or "" when absent.
func (e LogEntry) TimestampISO() string {
	if e.Timestamp == nil {
		return ""
	}
	return time.UnixMilli(*e.Timestamp).UTC().Format("2006-01-02T15:04:05.000Z")
}

// QueryResponse is the result of a log query.
type QueryResponse struct {
	Logs []LogEntry
	// TotalResults is the backend-reported total, which may exceed len(Logs).
	TotalResults  int
	QueryExecuted string

	Truncated       bool
	TruncatedReason string
	OriginalLimit   int
}
