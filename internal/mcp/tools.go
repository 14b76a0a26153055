package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nrlogs/nrlogs/internal/logs"
	"github.com/nrlogs/nrlogs/internal/nrql"
	apperrors "github.com/nrlogs/nrlogs/internal/pkg/errors"
)

// Tool names.
const (
	ToolQueryLogs    = "query_logs"
	ToolGetAccountID = "get_account_id"
)

func (h *Handler) defineTools() []Tool {
	closed := false
	return []Tool{
		{
			Name:        ToolQueryLogs,
			Description: "Query New Relic logs using NRQL or simple filters",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"account_id": {
						Type:        "string",
						Description: "New Relic account ID",
					},
					"query": {
						Type:        "string",
						Description: "Full NRQL query (overrides other parameters)",
					},
					"message_search": {
						Type:        "string",
						Description: "Search text in message field",
					},
					"filters": {
						Type:                 "object",
						Description:          "Key-value pairs for filtering",
						AdditionalProperties: &Property{Type: "string"},
					},
					"since": {
						Type:        "string",
						Description: "Time range (e.g., '1 hour ago')",
						Default:     logs.DefaultSince,
					},
					"limit": {
						Type:        "integer",
						Description: fmt.Sprintf("Maximum number of results (%d-%d)", logs.MinLimit, logs.MaxLimit),
						Default:     logs.DefaultLimit,
					},
				},
				Required:             []string{"account_id"},
				AdditionalProperties: &closed,
			},
		},
		{
			Name:        ToolGetAccountID,
			Description: "Look up New Relic account ID by name",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"account_name": {
						Type:        "string",
						Description: "Name of the New Relic account",
					},
				},
				Required:             []string{"account_name"},
				AdditionalProperties: &closed,
			},
		},
	}
}

func (h *Handler) callTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	switch name {
	case ToolQueryLogs:
		return h.toolQueryLogs(ctx, args)
	case ToolGetAccountID:
		return h.toolGetAccountID(ctx, args)
	default:
		return "", apperrors.ValidationError("unknown tool: " + name)
	}
}

// toolLabel bounds metric label cardinality to the defined tools.
func toolLabel(name string) string {
	switch name {
	case ToolQueryLogs, ToolGetAccountID:
		return name
	default:
		return "unknown"
	}
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return apperrors.ValidationError("invalid arguments: " + err.Error())
	}
	return nil
}

func (h *Handler) toolQueryLogs(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		AccountID     string       `json:"account_id"`
		Query         string       `json:"query"`
		MessageSearch string       `json:"message_search"`
		Filters       nrql.Filters `json:"filters"`
		Since         string       `json:"since"`
		Limit         *int         `json:"limit"`
	}

	if err := decodeArgs(args, &params); err != nil {
		return "", err
	}

	req := logs.QueryRequest{
		AccountID:     params.AccountID,
		Query:         params.Query,
		MessageSearch: params.MessageSearch,
		Filters:       params.Filters,
		Since:         params.Since,
	}
	// An explicit limit must be in range; zero is not shorthand for the default here.
	if params.Limit != nil {
		if *params.Limit < logs.MinLimit || *params.Limit > logs.MaxLimit {
			return "", apperrors.ValidationError(
				fmt.Sprintf("limit must be between %d and %d", logs.MinLimit, logs.MaxLimit)).
				WithDetail("limit", fmt.Sprint(*params.Limit))
		}
		req.Limit = *params.Limit
	}

	resp, err := h.logs.QueryLogs(ctx, req)
	if err != nil {
		return "", err
	}

	out, err := logs.Render(*resp)
	if err != nil {
		return "", apperrors.InternalError("failed to render response", err)
	}
	return string(out), nil
}

func (h *Handler) toolGetAccountID(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		AccountName string `json:"account_name"`
	}

	if err := decodeArgs(args, &params); err != nil {
		return "", err
	}
	if strings.TrimSpace(params.AccountName) == "" {
		return "", apperrors.ValidationError("account_name is required")
	}

	id, err := h.accounts.Resolve(ctx, params.AccountName)
	h.metrics.RecordAccountLookup(err)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Account ID for '%s': %s", params.AccountName, id), nil
}

// toolError renders a failed call as a tool result so the client sees the
// message instead of a protocol error.
func toolError(err error) ToolResult {
	msg := err.Error()
	if appErr, ok := apperrors.As(err); ok {
		msg = appErr.Message
		if appErr.Err != nil {
			msg += ": " + appErr.Err.Error()
		}
	}
	return ToolResult{
		Content: []Content{{Type: "text", Text: "Error: " + msg}},
		IsError: true,
	}
}
