package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PrometheusFormat exports all metrics in Prometheus text exposition format.
// See: https://prometheus.io/docs/instrumenting/exposition_formats/
func (m *Metrics) PrometheusFormat() string {
	var sb strings.Builder

	// Query metrics
	writeCounterVec(&sb, m.QueryRequests)
	writeHistogram(&sb, m.QueryLatency)
	writeHistogram(&sb, m.QueryRecords)
	writeCounter(&sb, m.QueryTruncated)

	// Account metrics
	writeCounterVec(&sb, m.AccountLookups)

	// MCP metrics
	writeCounterVec(&sb, m.ToolCalls)
	writeGauge(&sb, m.ToolCallsInFlight)

	// Process
	writeHeader(&sb, "nrlogs_uptime_seconds", "Seconds since process start", "gauge")
	fmt.Fprintf(&sb, "nrlogs_uptime_seconds %.0f\n", m.Uptime().Seconds())

	return sb.String()
}

func writeHeader(sb *strings.Builder, name, help, kind string) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, kind)
}

func writeCounter(sb *strings.Builder, c *Counter) {
	writeHeader(sb, c.Name(), c.Help(), "counter")
	sb.WriteString(c.Name())
	writeLabels(sb, c.Labels())
	fmt.Fprintf(sb, " %d\n", c.Value())
}

func writeGauge(sb *strings.Builder, g *Gauge) {
	writeHeader(sb, g.Name(), g.Help(), "gauge")
	fmt.Fprintf(sb, "%s %d\n", g.Name(), g.Value())
}

func writeHistogram(sb *strings.Builder, h *Histogram) {
	writeHeader(sb, h.Name(), h.Help(), "histogram")

	counts, sum, count := h.Snapshot()
	for i, bucket := range h.Buckets() {
		fmt.Fprintf(sb, "%s_bucket{le=\"%s\"} %d\n", h.Name(), formatFloat(bucket), counts[i])
	}
	fmt.Fprintf(sb, "%s_bucket{le=\"+Inf\"} %d\n", h.Name(), counts[len(counts)-1])
	fmt.Fprintf(sb, "%s_sum %s\n", h.Name(), formatFloat(sum))
	fmt.Fprintf(sb, "%s_count %d\n", h.Name(), count)
}

// writeCounterVec writes a counter vector; empty vectors are omitted.
func writeCounterVec(sb *strings.Builder, cv *CounterVec) {
	counters := cv.GetAll()
	if len(counters) == 0 {
		return
	}

	writeHeader(sb, cv.Name(), cv.Help(), "counter")
	for _, c := range counters {
		sb.WriteString(c.Name())
		writeLabels(sb, c.Labels())
		fmt.Fprintf(sb, " %d\n", c.Value())
	}
}

// writeLabels writes labels in Prometheus format {key="value",key2="value2"}.
func writeLabels(sb *strings.Builder, labels map[string]string) {
	if len(labels) == 0 {
		return
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=\"")
		sb.WriteString(escapeString(labels[k]))
		sb.WriteString("\"")
	}
	sb.WriteString("}")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// escapeString escapes special characters in label values.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
