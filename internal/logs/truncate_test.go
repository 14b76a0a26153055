package logs

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func makeEntries(n int, messageLen func(i int) int) []LogEntry {
	entries := make([]LogEntry, n)
	for i := range entries {
		ts := int64(1700000000000 + i)
		entries[i] = LogEntry{
			Timestamp:  &ts,
			Message:    strings.Repeat("x", messageLen(i)),
			Level:      "INFO",
			Attributes: map[string]any{"seq": i},
		}
	}
	return entries
}

func sizeOfPrefix(t *testing.T, resp QueryResponse, k int) int {
	t.Helper()
	trial := resp
	trial.Logs = resp.Logs[:k]
	size, err := RenderedSize(trial)
	if err != nil {
		t.Fatalf("RenderedSize() error = %v", err)
	}
	return size
}

func TestTruncate_Empty(t *testing.T) {
	kept, truncated, err := NewTruncator(1).Truncate(QueryResponse{QueryExecuted: "q"})
	if err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if truncated || len(kept) != 0 {
		t.Errorf("Truncate(empty) = %d entries, truncated=%v; want 0, false", len(kept), truncated)
	}
}

func TestTruncate_FitsUnchanged(t *testing.T) {
	resp := QueryResponse{
		Logs:          makeEntries(10, func(int) int { return 20 }),
		TotalResults:  10,
		QueryExecuted: "SELECT * FROM Log SINCE 1 hour ago LIMIT 10",
	}
	size := sizeOfPrefix(t, resp, 10)

	for _, budget := range []int{size, size + 1, size * 10} {
		kept, truncated, err := NewTruncator(budget).Truncate(resp)
		if err != nil {
			t.Fatalf("Truncate() error = %v", err)
		}
		if truncated {
			t.Errorf("budget %d: truncated = true, want false", budget)
		}
		if len(kept) != 10 {
			t.Errorf("budget %d: kept %d entries, want 10", budget, len(kept))
		}
	}
}

func TestTruncate_LargestFittingPrefix(t *testing.T) {
	resp := QueryResponse{
		Logs:          makeEntries(40, func(i int) int { return 10 + (i*37)%150 }),
		TotalResults:  500,
		QueryExecuted: "SELECT * FROM Log SINCE 1 hour ago LIMIT 40",
	}

	sizes := make([]int, len(resp.Logs)+1)
	for k := 1; k <= len(resp.Logs); k++ {
		sizes[k] = sizeOfPrefix(t, resp, k)
	}

	for _, budget := range []int{1, sizes[1] - 1, sizes[1], sizes[2], sizes[7] + 3, sizes[20], sizes[39], sizes[40] - 1} {
		t.Run(fmt.Sprintf("budget=%d", budget), func(t *testing.T) {
			kept, truncated, err := NewTruncator(budget).Truncate(resp)
			if err != nil {
				t.Fatalf("Truncate() error = %v", err)
			}

			want := 1
			for k := 1; k <= len(resp.Logs); k++ {
				if sizes[k] <= budget {
					want = k
				}
			}

			if len(kept) != want {
				t.Errorf("kept %d entries, want %d", len(kept), want)
			}
			if !truncated {
				t.Error("truncated = false, want true")
			}
			for i := range kept {
				if kept[i].Message != resp.Logs[i].Message {
					t.Fatalf("entry %d is not a prefix of the input", i)
				}
			}
		})
	}
}

func TestTruncate_SingleOversizedEntry(t *testing.T) {
	resp := QueryResponse{
		Logs:          makeEntries(3, func(int) int { return 1000 }),
		QueryExecuted: "q",
	}

	kept, truncated, err := NewTruncator(100).Truncate(resp)
	if err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if len(kept) != 1 || !truncated {
		t.Errorf("Truncate() = %d entries, truncated=%v; want 1, true", len(kept), truncated)
	}

	single := QueryResponse{Logs: resp.Logs[:1], QueryExecuted: "q"}
	kept, truncated, err = NewTruncator(100).Truncate(single)
	if err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if len(kept) != 1 || truncated {
		t.Errorf("Truncate(single) = %d entries, truncated=%v; want 1, false", len(kept), truncated)
	}
}

func TestApply_Scenario(t *testing.T) {
	resp := &QueryResponse{
		Logs:          makeEntries(50, func(int) int { return 480 }),
		TotalResults:  50,
		QueryExecuted: "SELECT * FROM Log SINCE 1 hour ago LIMIT 50",
	}

	fullSize, err := RenderedSize(*resp)
	if err != nil {
		t.Fatalf("RenderedSize() error = %v", err)
	}
	if fullSize < 25000 || fullSize > 35000 {
		t.Fatalf("fixture renders to %d characters, want about 30000", fullSize)
	}

	if err := NewTruncator(20000).Apply(resp, 50); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if !resp.Truncated {
		t.Fatal("Truncated = false, want true")
	}
	if k := len(resp.Logs); k >= 50 || k < 1 {
		t.Errorf("kept %d entries, want 1..49", k)
	}
	if resp.OriginalLimit != 50 {
		t.Errorf("OriginalLimit = %d, want 50", resp.OriginalLimit)
	}
	if resp.TotalResults != 50 {
		t.Errorf("TotalResults = %d, want 50 (untouched)", resp.TotalResults)
	}

	for _, want := range []string{
		fmt.Sprintf("%d characters", fullSize),
		"20000 character limit",
		fmt.Sprintf("returned %d of 50", len(resp.Logs)),
	} {
		if !strings.Contains(resp.TruncatedReason, want) {
			t.Errorf("TruncatedReason = %q, missing %q", resp.TruncatedReason, want)
		}
	}

	trial := *resp
	trial.Truncated = false
	if size, _ := RenderedSize(trial); size > 20000 {
		t.Errorf("kept prefix renders to %d characters, want <= 20000", size)
	}
}

func TestApply_MetadataOvershootIsBounded(t *testing.T) {
	// The kept prefix fits the budget; only the truncation metadata added
	// afterwards may push the rendered size over it.
	const metadataKeys = 100

	for _, budget := range []int{2000, 5000, 12000, 20000} {
		t.Run(fmt.Sprintf("budget=%d", budget), func(t *testing.T) {
			resp := &QueryResponse{
				Logs:          makeEntries(50, func(int) int { return 480 }),
				TotalResults:  50,
				QueryExecuted: "SELECT * FROM Log SINCE 1 hour ago LIMIT 50",
			}
			if err := NewTruncator(budget).Apply(resp, 50); err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if !resp.Truncated {
				t.Fatal("Truncated = false, want true")
			}

			size, err := RenderedSize(*resp)
			if err != nil {
				t.Fatalf("RenderedSize() error = %v", err)
			}
			limit := budget + utf8.RuneCountInString(resp.TruncatedReason) + metadataKeys
			if size > limit {
				t.Errorf("rendered size = %d, want <= %d", size, limit)
			}
		})
	}
}

func TestApply_NoTruncation(t *testing.T) {
	resp := &QueryResponse{
		Logs:          makeEntries(2, func(int) int { return 5 }),
		TotalResults:  2,
		QueryExecuted: "q",
	}

	if err := NewTruncator(20000).Apply(resp, 100); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if resp.Truncated || resp.TruncatedReason != "" || resp.OriginalLimit != 0 {
		t.Errorf("response should not carry truncation metadata: %+v", resp)
	}
	if len(resp.Logs) != 2 {
		t.Errorf("kept %d entries, want 2", len(resp.Logs))
	}
}
