package logs

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf8"
)

type renderedEntry struct {
	Timestamp  *string        `json:"timestamp"`
	Message    string         `json:"message"`
	Level      string         `json:"level"`
	Attributes map[string]any `json:"attributes"`
}

type renderedResponse struct {
	Logs            []renderedEntry `json:"logs"`
	TotalResults    int             `json:"total_results"`
	QueryExecuted   string          `json:"query_executed"`
	Truncated       bool            `json:"truncated,omitempty"`
	TruncatedReason string          `json:"truncated_reason,omitempty"`
	OriginalLimit   int             `json:"original_limit,omitempty"`
}

func renderEntry(e LogEntry) renderedEntry {
	out := renderedEntry{
		Message:    e.Message,
		Level:      e.Level,
		Attributes: e.Attributes,
	}
	if e.Timestamp != nil {
		ts := e.TimestampISO()
		out.Timestamp = &ts
	}
	if out.Attributes == nil {
		out.Attributes = map[string]any{}
	}
	return out
}

// MarshalJSON renders the response in its external shape.
func (r QueryResponse) MarshalJSON() ([]byte, error) {
	return marshal(r, false)
}

// Render returns the indented JSON text handed to callers.
func Render(r QueryResponse) ([]byte, error) {
	return marshal(r, true)
}

// RenderedSize is the character count of Render(r).
func RenderedSize(r QueryResponse) (int, error) {
	data, err := Render(r)
	if err != nil {
		return 0, err
	}
	return utf8.RuneCount(data), nil
}

func marshal(r QueryResponse, indent bool) ([]byte, error) {
	out := renderedResponse{
		Logs:          make([]renderedEntry, len(r.Logs)),
		TotalResults:  r.TotalResults,
		QueryExecuted: r.QueryExecuted,
	}
	for i, e := range r.Logs {
		out.Logs[i] = renderEntry(e)
	}
	if r.Truncated {
		out.Truncated = true
		out.TruncatedReason = r.TruncatedReason
		out.OriginalLimit = r.OriginalLimit
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
