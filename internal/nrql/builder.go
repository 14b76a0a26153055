// Package nrql builds NRQL query strings from structured log-query requests.
package nrql

import (
	"regexp"
	"strconv"
	"strings"
)

// LogTable is the event type every structured query selects from.
const LogTable = "Log"

// Request carries the parts of a log query that shape the NRQL text.
type Request struct {
	// Query is raw NRQL; when set it is used verbatim.
	Query         string
	MessageSearch string
	Filters       Filters
	Since         string
	Limit         int
}

// ValueKind is the literal type a filter value is rendered as.
type ValueKind int

const (
	KindText ValueKind = iota
	KindBool
	KindNumber
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "text"
	}
}

var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Classify decides how a filter value is rendered.
func Classify(value string) ValueKind {
	switch {
	case strings.EqualFold(value, "true"), strings.EqualFold(value, "false"):
		return KindBool
	case numberPattern.MatchString(value):
		return KindNumber
	default:
		return KindText
	}
}

// Literal renders value as an NRQL literal of its classified kind.
// Text values are single-quoted without escaping embedded quotes.
func Literal(value string) string {
	switch Classify(value) {
	case KindBool:
		return strings.ToLower(value)
	case KindNumber:
		return value
	default:
		return "'" + value + "'"
	}
}

// Conditions returns the WHERE conditions for req in emission order.
func Conditions(req Request) []string {
	conds := make([]string, 0, len(req.Filters)+1)
	if req.MessageSearch != "" {
		conds = append(conds, "message LIKE '%"+req.MessageSearch+"%'")
	}
	for _, f := range req.Filters {
		conds = append(conds, f.Field+" = "+Literal(f.Value))
	}
	return conds
}

// Build returns the NRQL text for req.
func Build(req Request) string {
	if req.Query != "" {
		return req.Query
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(LogTable)

	if conds := Conditions(req); len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	b.WriteString(" SINCE ")
	b.WriteString(req.Since)
	b.WriteString(" LIMIT ")
	b.WriteString(strconv.Itoa(req.Limit))

	return b.String()
}
