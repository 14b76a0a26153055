package logs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/nrlogs/nrlogs/internal/pkg/errors"
)

// Fields lifted out of a record into LogEntry; everything else becomes an attribute.
const (
	FieldTimestamp = "timestamp"
	FieldMessage   = "message"
	FieldLevel     = "level"
)

// Normalize converts raw NRQL result records into log entries, preserving
// backend order. It fails only when a record is not a JSON object.
func Normalize(records []json.RawMessage) ([]LogEntry, error) {
	entries := make([]LogEntry, 0, len(records))
	for i, raw := range records {
		entry, err := NormalizeRecord(raw)
		if err != nil {
			if appErr, ok := apperrors.As(err); ok {
				appErr.WithDetail(apperrors.DetailIndex, itoa(i))
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// NormalizeRecord converts a single raw record.
func NormalizeRecord(raw json.RawMessage) (LogEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return LogEntry{}, apperrors.MalformedResultError("result record is not valid JSON: " + err.Error())
	}
	record, ok := value.(map[string]any)
	if !ok {
		return LogEntry{}, apperrors.MalformedResultError(fmt.Sprintf("result record is not an object (got %s)", jsonKind(value)))
	}

	entry := LogEntry{
		Level:      DefaultLevel,
		Attributes: make(map[string]any, len(record)),
	}

	for key, v := range record {
		switch key {
		case FieldTimestamp:
			// Unparseable timestamps are kept verbatim as an attribute.
			if ts, ok := epochMillis(v); ok {
				entry.Timestamp = ts
			} else {
				entry.Attributes[key] = v
			}
		case FieldMessage:
			if v != nil {
				entry.Message = scalarText(v)
			}
		case FieldLevel:
			if v != nil {
				entry.Level = scalarText(v)
			}
		default:
			entry.Attributes[key] = v
		}
	}

	return entry, nil
}

// TotalResults picks the backend-reported count when present, otherwise the
// number of normalized entries.
func TotalResults(reported *int, entries []LogEntry) int {
	if reported != nil {
		return *reported
	}
	return len(entries)
}

// epochMillis reads a timestamp as epoch milliseconds. Numbers and numeric
// strings are accepted; null is a valid absent timestamp.
func epochMillis(v any) (*int64, bool) {
	var n json.Number
	switch t := v.(type) {
	case nil:
		return nil, true
	case json.Number:
		n = t
	case string:
		n = json.Number(strings.TrimSpace(t))
	default:
		return nil, false
	}

	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return &i, true
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil, false
	}
	i := int64(f)
	return &i, true
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	default:
		return "object"
	}
}
