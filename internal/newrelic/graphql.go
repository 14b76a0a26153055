package newrelic

import (
	"encoding/json"
	"fmt"
	"strings"
)

const logQueryTemplate = `
{
  actor {
    account(id: %s) {
      nrql(query: "%s") {
        results
        totalResult
        metadata {
          eventTypes
          facets
          messages
        }
      }
    }
  }
}
`

const accountsQuery = `
{
  actor {
    accounts {
      id
      name
    }
  }
}
`

// Envelope wraps NRQL into the NerdGraph query for accountID. Double quotes
// in the NRQL are backslash-escaped; nothing else is.
func Envelope(nrql, accountID string) string {
	return fmt.Sprintf(logQueryTemplate, accountID, strings.ReplaceAll(nrql, `"`, `\"`))
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message *string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (r *graphQLResponse) errorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Message == nil {
			msgs = append(msgs, "Unknown error")
			continue
		}
		msgs = append(msgs, *e.Message)
	}
	return msgs
}

type nrqlData struct {
	Actor *struct {
		Account *struct {
			NRQL *struct {
				Results     json.RawMessage `json:"results"`
				TotalResult json.RawMessage `json:"totalResult"`
				Metadata    json.RawMessage `json:"metadata"`
			} `json:"nrql"`
		} `json:"account"`
	} `json:"actor"`
}

type accountsData struct {
	Actor *struct {
		Accounts []struct {
			ID   json.RawMessage `json:"id"`
			Name *string         `json:"name"`
		} `json:"accounts"`
	} `json:"actor"`
}
