// Package security provides sanitization and sensitive data masking for logs
// and diagnostics.
package security

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Redacted replaces masked values.
const Redacted = "[REDACTED]"

// SanitizeForLog sanitizes a string for safe logging.
// It prevents log injection by:
// - Replacing newlines with escaped versions
// - Replacing carriage returns
// - Removing other control characters
// - Truncating to a maximum length
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, 200)
}

// SanitizeForLogWithLength sanitizes a string for logging with a custom max length.
func SanitizeForLogWithLength(s string, maxLen int) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(min(len(s), maxLen+10))

	count := 0
	for _, r := range s {
		if count >= maxLen {
			b.WriteString("...")
			break
		}

		switch r {
		case '\n':
			b.WriteString("\\n")
			count += 2
		case '\r':
			b.WriteString("\\r")
			count += 2
		case '\t':
			b.WriteString("\\t")
			count += 2
		default:
			// Remove other control characters, keep printable
			if !unicode.IsControl(r) {
				b.WriteRune(r)
				count++
			}
		}
	}

	return b.String()
}

// MaskSecret shows only the first and last four characters of a secret.
// Short secrets are fully redacted.
func MaskSecret(s string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}
	if n < 12 {
		return Redacted
	}
	r := []rune(s)
	return string(r[:4]) + "..." + string(r[n-4:])
}

// sensitiveHeaders are HTTP header names that contain sensitive data.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"api-key":             true,
	"x-api-key":           true,
	"x-insert-key":        true,
	"x-license-key":       true,
	"cookie":              true,
	"set-cookie":          true,
	"proxy-authorization": true,
}

// sensitiveFieldPatterns are patterns in header names that indicate sensitive data.
var sensitiveFieldPatterns = []string{
	"password",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
}

// MaskSensitiveHeaders creates a copy of headers with sensitive values masked.
func MaskSensitiveHeaders(headers http.Header) http.Header {
	if headers == nil {
		return nil
	}

	masked := make(http.Header, len(headers))
	for key, values := range headers {
		if isSensitiveHeader(key) {
			masked[key] = []string{Redacted}
		} else {
			masked[key] = append([]string(nil), values...)
		}
	}
	return masked
}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	if sensitiveHeaders[lower] {
		return true
	}
	for _, pattern := range sensitiveFieldPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
