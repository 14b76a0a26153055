package logs

import (
	"fmt"
)

// Truncator bounds the rendered size of a query response by keeping the
// longest prefix of its entries that fits the budget.
type Truncator struct {
	maxSize int
}

// NewTruncator creates a truncator with a budget of maxSize characters.
func NewTruncator(maxSize int) *Truncator {
	return &Truncator{maxSize: maxSize}
}

// MaxSize returns the budget in characters.
func (t *Truncator) MaxSize() int {
	return t.maxSize
}

// Truncate returns the longest prefix of resp.Logs whose rendered response
// fits the budget, and whether anything was dropped. When even a single
// entry does not fit, that entry is returned anyway.
//
// Prefix sizes grow with k, so a binary search finds the largest fit in
// O(log n) renders.
func (t *Truncator) Truncate(resp QueryResponse) ([]LogEntry, bool, error) {
	entries := resp.Logs
	n := len(entries)
	if n == 0 {
		return entries, false, nil
	}

	fits := func(k int) (bool, error) {
		trial := resp
		trial.Logs = entries[:k]
		trial.Truncated = false
		size, err := RenderedSize(trial)
		if err != nil {
			return false, err
		}
		return size <= t.maxSize, nil
	}

	ok, err := fits(n)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return entries, false, nil
	}

	best := 0
	lo, hi := 1, n-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		ok, err := fits(mid)
		if err != nil {
			return nil, false, err
		}
		if ok {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == 0 {
		best = 1
	}

	return entries[:best], true, nil
}

// Apply truncates resp in place and records why. requestedLimit is reported
// as the original limit.
func (t *Truncator) Apply(resp *QueryResponse, requestedLimit int) error {
	if len(resp.Logs) == 0 {
		return nil
	}

	kept, truncated, err := t.Truncate(*resp)
	if err != nil {
		return err
	}
	if !truncated {
		return nil
	}

	full := *resp
	full.Truncated = false
	fullSize, err := RenderedSize(full)
	if err != nil {
		return err
	}

	original := len(resp.Logs)
	resp.Logs = kept
	resp.Truncated = true
	resp.OriginalLimit = requestedLimit
	resp.TruncatedReason = fmt.Sprintf(
		"Response size (%d characters) exceeded the %d character limit; returned %d of %d log entries. Narrow the time range, add filters, or lower the limit.",
		fullSize, t.maxSize, len(kept), original)
	return nil
}
