package security

import (
	"net/http"
	"strings"
	"testing"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"simple", "SELECT * FROM Log", "SELECT * FROM Log"},
		{"newline", "line1\nline2", "line1\\nline2"},
		{"carriage return", "line1\rline2", "line1\\rline2"},
		{"tab", "col1\tcol2", "col1\\tcol2"},
		{"control chars", "hello\x00\x01\x02world", "helloworld"},
		{"long string", strings.Repeat("a", 300), strings.Repeat("a", 200) + "..."},
		{"unicode", "message LIKE '%世界%'", "message LIKE '%世界%'"},
		{"log injection", "x'\nlevel=ERROR msg=fake", "x'\\nlevel=ERROR msg=fake"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeForLog(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"short", Redacted},
		{"NRAK-ABCDEFGHIJKLMNOP1234", "NRAK...1234"},
	}

	for _, tt := range tests {
		if got := MaskSecret(tt.input); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMaskSensitiveHeaders(t *testing.T) {
	headers := http.Header{
		"Api-Key":      []string{"NRAK-SECRET"},
		"Content-Type": []string{"application/json"},
		"X-Auth-Token": []string{"abc"},
	}

	masked := MaskSensitiveHeaders(headers)

	if got := masked.Get("Api-Key"); got != Redacted {
		t.Errorf("Api-Key = %q, want %q", got, Redacted)
	}
	if got := masked.Get("X-Auth-Token"); got != Redacted {
		t.Errorf("X-Auth-Token = %q, want %q", got, Redacted)
	}
	if got := masked.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if headers.Get("Api-Key") != "NRAK-SECRET" {
		t.Error("original headers were modified")
	}
	if MaskSensitiveHeaders(nil) != nil {
		t.Error("MaskSensitiveHeaders(nil) != nil")
	}
}
