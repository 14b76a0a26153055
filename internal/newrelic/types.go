// Package newrelic is a NerdGraph client for running NRQL log queries and
// listing accounts.
package newrelic

import (
	"encoding/json"
	"strings"
)

// Metadata is the NRQL result metadata NerdGraph returns alongside results.
type Metadata struct {
	EventTypes []string `json:"eventTypes,omitempty"`
	Facets     []string `json:"facets,omitempty"`
	Messages   []string `json:"messages,omitempty"`
}

// Result is the raw outcome of an NRQL query.
type Result struct {
	// Records are the result rows in backend order, undecoded.
	Records []json.RawMessage
	// TotalCount is the backend-reported total, nil when absent.
	TotalCount *int
	Metadata   *Metadata
}

// Account is a New Relic account visible to the API key.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DisplayName returns the account name or "Unknown" when it has none.
func (a Account) DisplayName() string {
	if a.Name == "" {
		return "Unknown"
	}
	return a.Name
}

// KeyType classifies a New Relic API key by its prefix.
type KeyType string

const (
	KeyUser    KeyType = "user"
	KeyIngest  KeyType = "ingest"
	KeyREST    KeyType = "rest"
	KeyUnknown KeyType = "unknown"
)

// UserKeyPrefix is the prefix of User API keys, the only kind NerdGraph accepts.
const UserKeyPrefix = "NRAK"

// ClassifyKey reports which kind of key apiKey looks like.
func ClassifyKey(apiKey string) KeyType {
	switch {
	case strings.HasPrefix(apiKey, UserKeyPrefix):
		return KeyUser
	case strings.HasPrefix(apiKey, "NRAI"):
		return KeyIngest
	case strings.HasPrefix(apiKey, "NRRA"):
		return KeyREST
	default:
		return KeyUnknown
	}
}

// Advice returns a human-readable hint for the key type.
func (k KeyType) Advice() string {
	switch k {
	case KeyUser:
		return "appears to be a User API Key (correct type)"
	case KeyIngest:
		return "appears to be an Ingest API Key (wrong type); a User API Key starting with 'NRAK' is required"
	case KeyREST:
		return "appears to be a REST API Key (legacy, may not work); use a User API Key starting with 'NRAK'"
	default:
		return "unknown API key format; expected a User API Key starting with 'NRAK'"
	}
}
