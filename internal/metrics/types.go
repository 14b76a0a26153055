// Package metrics provides Prometheus-compatible metrics for nrlogs.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter represents a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	value  int64
	labels map[string]string
}

// NewCounter creates a new counter.
func NewCounter(name, help string, labels map[string]string) *Counter {
	if labels == nil {
		labels = make(map[string]string)
	}
	return &Counter{
		name:   name,
		help:   help,
		labels: labels,
	}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add adds the given value to the counter.
func (c *Counter) Add(delta int64) {
	if delta < 0 {
		return // Counters can't decrease
	}
	atomic.AddInt64(&c.value, delta)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

func (c *Counter) Name() string { return c.name }
func (c *Counter) Help() string { return c.help }

// Labels returns a copy of the metric labels. Labels are fixed at creation.
func (c *Counter) Labels() map[string]string {
	result := make(map[string]string, len(c.labels))
	for k, v := range c.labels {
		result[k] = v
	}
	return result
}

// Gauge represents a gauge metric that can go up and down.
type Gauge struct {
	name  string
	help  string
	value int64
}

// NewGauge creates a new gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Inc() { atomic.AddInt64(&g.value, 1) }
func (g *Gauge) Dec() { atomic.AddInt64(&g.value, -1) }
func (g *Gauge) Set(v int64) { atomic.StoreInt64(&g.value, v) }
func (g *Gauge) Value() int64 { return atomic.LoadInt64(&g.value) }
func (g *Gauge) Name() string { return g.name }
func (g *Gauge) Help() string { return g.help }

// Histogram represents a histogram with cumulative buckets.
type Histogram struct {
	name    string
	help    string
	buckets []float64

	mu     sync.Mutex
	counts []int64 // len(buckets)+1, last is +Inf
	sum    float64
	count  int64
}

// NewHistogram creates a new histogram with the given buckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		// Default buckets in milliseconds
		buckets = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}
	}
	buckets = append([]float64(nil), buckets...)
	sort.Float64s(buckets)

	return &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]int64, len(buckets)+1),
	}
}

// Observe adds a single observation.
func (h *Histogram) Observe(value float64) {
	if math.IsNaN(value) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++

	// Increment the first matching bucket and every higher one (cumulative)
	idx := sort.SearchFloat64s(h.buckets, value)
	for i := idx; i < len(h.counts); i++ {
		h.counts[i]++
	}
}

// Snapshot returns bucket counts, sum and count under one lock.
func (h *Histogram) Snapshot() (counts []int64, sum float64, count int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.counts...), h.sum, h.count
}

// Count returns the total count of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Buckets returns the bucket upper bounds.
func (h *Histogram) Buckets() []float64 {
	return append([]float64(nil), h.buckets...)
}

func (h *Histogram) Name() string { return h.name }
func (h *Histogram) Help() string { return h.help }

// CounterVec represents a counter with labels.
type CounterVec struct {
	name       string
	help       string
	labelNames []string

	mu       sync.RWMutex
	counters map[string]*Counter
}

// NewCounterVec creates a new counter vector.
func NewCounterVec(name, help string, labelNames []string) *CounterVec {
	return &CounterVec{
		name:       name,
		help:       help,
		labelNames: labelNames,
		counters:   make(map[string]*Counter),
	}
}

// WithLabels returns the counter for the given label values, creating it on
// first use.
func (cv *CounterVec) WithLabels(labelValues ...string) *Counter {
	if len(labelValues) != len(cv.labelNames) {
		panic(fmt.Sprintf("expected %d label values, got %d", len(cv.labelNames), len(labelValues)))
	}

	labels := make(map[string]string, len(cv.labelNames))
	for i, name := range cv.labelNames {
		labels[name] = labelValues[i]
	}
	key := labelsToKey(labels)

	cv.mu.RLock()
	counter, exists := cv.counters[key]
	cv.mu.RUnlock()
	if exists {
		return counter
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()

	// Double-check after acquiring write lock
	if counter, exists := cv.counters[key]; exists {
		return counter
	}
	counter = NewCounter(cv.name, cv.help, labels)
	cv.counters[key] = counter
	return counter
}

// GetAll returns every counter in the vector, ordered by label values.
func (cv *CounterVec) GetAll() []*Counter {
	cv.mu.RLock()
	defer cv.mu.RUnlock()

	keys := make([]string, 0, len(cv.counters))
	for k := range cv.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]*Counter, len(keys))
	for i, k := range keys {
		result[i] = cv.counters[k]
	}
	return result
}

func (cv *CounterVec) Name() string { return cv.name }
func (cv *CounterVec) Help() string { return cv.help }

// labelsToKey creates a stable key from label map.
func labelsToKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(labels[k])
	}
	return sb.String()
}
