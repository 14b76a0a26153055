package nrql

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilters_UnmarshalJSON_KeepsOrder(t *testing.T) {
	var f Filters
	data := []byte(`{"zeta":"1","alpha":"two","mid":"true"}`)
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := Filters{{"zeta", "1"}, {"alpha", "two"}, {"mid", "true"}}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}

	got := Build(Request{Filters: f, Since: "1 hour ago", Limit: 10})
	wantQuery := "SELECT * FROM Log WHERE zeta = 1 AND alpha = 'two' AND mid = true SINCE 1 hour ago LIMIT 10"
	if got != wantQuery {
		t.Errorf("Build() = %q, want %q", got, wantQuery)
	}
}

func TestFilters_UnmarshalJSON_InStruct(t *testing.T) {
	var params struct {
		AccountID string  `json:"account_id"`
		Filters   Filters `json:"filters"`
	}
	data := []byte(`{"account_id":"1","filters":{"b":"x","a":"y"}}`)
	if err := json.Unmarshal(data, &params); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := Filters{{"b", "x"}, {"a", "y"}}
	if diff := cmp.Diff(want, params.Filters); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}
}

func TestFilters_UnmarshalJSON_Scalars(t *testing.T) {
	var f Filters
	if err := json.Unmarshal([]byte(`{"n":42,"b":false,"s":"x"}`), &f); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := Filters{{"n", "42"}, {"b", "false"}, {"s", "x"}}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}
}

func TestFilters_UnmarshalJSON_DuplicateKeepsFirstPosition(t *testing.T) {
	var f Filters
	if err := json.Unmarshal([]byte(`{"a":"1","b":"2","a":"3"}`), &f); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := Filters{{"a", "3"}, {"b", "2"}}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}
}

func TestFilters_UnmarshalJSON_Errors(t *testing.T) {
	tests := []string{
		`["a"]`,
		`"a=b"`,
		`{"a":{"nested":"x"}}`,
		`{"a":["x"]}`,
		`{"a":null}`,
	}

	for _, data := range tests {
		var f Filters
		if err := json.Unmarshal([]byte(data), &f); err == nil {
			t.Errorf("Unmarshal(%s) error = nil, want error", data)
		}
	}
}

func TestFilters_UnmarshalJSON_Null(t *testing.T) {
	f := Filters{{"a", "b"}}
	if err := json.Unmarshal([]byte(`null`), &f); err != nil {
		t.Fatalf("Unmarshal(null) error = %v", err)
	}
	if f != nil {
		t.Errorf("filters = %v, want nil", f)
	}
}

func TestFilters_MarshalJSON(t *testing.T) {
	f := Filters{{"z", "1"}, {"a", `q"uote`}}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"z":"1","a":"q\"uote"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestFilters_SetGet(t *testing.T) {
	var f Filters
	f.Set("a", "1")
	f.Set("b", "2")
	f.Set("a", "3")

	if len(f) != 2 {
		t.Fatalf("len = %d, want 2", len(f))
	}
	if v, ok := f.Get("a"); !ok || v != "3" {
		t.Errorf("Get(a) = %q, %v, want 3, true", v, ok)
	}
	if _, ok := f.Get("missing"); ok {
		t.Error("Get(missing) ok = true, want false")
	}
}

func TestParseFilterArgs(t *testing.T) {
	f, err := ParseFilterArgs([]string{"service=api", "msg=a=b", "empty="})
	if err != nil {
		t.Fatalf("ParseFilterArgs() error = %v", err)
	}

	want := Filters{{"service", "api"}, {"msg", "a=b"}, {"empty", ""}}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=x", " =x"} {
		if _, err := ParseFilterArgs([]string{bad}); err == nil {
			t.Errorf("ParseFilterArgs(%q) error = nil, want error", bad)
		}
	}
}
