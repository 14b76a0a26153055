package logs

import (
	"testing"

	"github.com/nrlogs/nrlogs/internal/nrql"
	apperrors "github.com/nrlogs/nrlogs/internal/pkg/errors"
)

func TestQueryRequest_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		req       QueryRequest
		wantErr   bool
		wantSince string
		wantLimit int
	}{
		{
			name:      "defaults applied",
			req:       QueryRequest{AccountID: "123"},
			wantSince: "1 hour ago",
			wantLimit: 100,
		},
		{
			name:      "explicit values kept",
			req:       QueryRequest{AccountID: "123", Since: "2 days ago", Limit: 2000},
			wantSince: "2 days ago",
			wantLimit: 2000,
		},
		{
			name:      "minimum limit",
			req:       QueryRequest{AccountID: "123", Limit: 1},
			wantSince: "1 hour ago",
			wantLimit: 1,
		},
		{
			name:    "missing account",
			req:     QueryRequest{},
			wantErr: true,
		},
		{
			name:    "blank account",
			req:     QueryRequest{AccountID: "  "},
			wantErr: true,
		},
		{
			name:    "limit too large",
			req:     QueryRequest{AccountID: "1", Limit: 2001},
			wantErr: true,
		},
		{
			name:    "negative limit",
			req:     QueryRequest{AccountID: "1", Limit: -5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Normalize()
			if tt.wantErr {
				if !apperrors.IsValidation(err) {
					t.Errorf("Normalize() error = %v, want VALIDATION_ERROR", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if req.Since != tt.wantSince {
				t.Errorf("Since = %q, want %q", req.Since, tt.wantSince)
			}
			if req.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", req.Limit, tt.wantLimit)
			}
		})
	}
}

func TestQueryRequest_NRQL(t *testing.T) {
	req := QueryRequest{
		AccountID: "123",
		Filters:   nrql.Filters{{Field: "region", Value: "us-east"}},
		Since:     "1 hour ago",
		Limit:     100,
	}

	got := nrql.Build(req.NRQL())
	want := "SELECT * FROM Log WHERE region = 'us-east' SINCE 1 hour ago LIMIT 100"
	if got != want {
		t.Errorf("Build(NRQL()) = %q, want %q", got, want)
	}
}

func TestLogEntry_TimestampISO(t *testing.T) {
	ts := int64(1700000000123)
	zero := int64(0)

	tests := []struct {
		name  string
		entry LogEntry
		want  string
	}{
		{"absent", LogEntry{}, ""},
		{"millis", LogEntry{Timestamp: &ts}, "2023-11-14T22:13:20.123Z"},
		{"epoch zero", LogEntry{Timestamp: &zero}, "1970-01-01T00:00:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.TimestampISO(); got != tt.want {
				t.Errorf("TimestampISO() = %q, want %q", got, tt.want)
			}
		})
	}
}
