package mcp

import (
	"context"
	"encoding/json"

	"github.com/nrlogs/nrlogs/internal/logs"
	"github.com/nrlogs/nrlogs/internal/metrics"
	reqctx "github.com/nrlogs/nrlogs/internal/pkg/context"
	"github.com/nrlogs/nrlogs/internal/pkg/logger"
)

// ServerName is reported to clients during initialize.
const ServerName = "nrlogs"

// LogQuerier runs log queries. *logs.Service implements it.
type LogQuerier interface {
	QueryLogs(ctx context.Context, req logs.QueryRequest) (*logs.QueryResponse, error)
}

// AccountResolver maps account names to ids. *accounts.Resolver implements it.
type AccountResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

type Handler struct {
	logs     LogQuerier
	accounts AccountResolver
	version  string
	metrics  *metrics.Metrics
	log      *logger.Logger

	// Cached tool definitions
	tools []Tool
}

type HandlerConfig struct {
	Logs     LogQuerier
	Accounts AccountResolver
	Version  string
	Metrics  *metrics.Metrics // optional
	Logger   *logger.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	h := &Handler{
		logs:     cfg.Logs,
		accounts: cfg.Accounts,
		version:  version,
		metrics:  cfg.Metrics,
		log:      log.WithComponent("mcp"),
	}
	h.tools = h.defineTools()
	return h
}

// Handle dispatches req. It returns nil for notifications.
func (h *Handler) Handle(ctx context.Context, req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Handler panic", "method", req.Method, "panic", r)
			resp = errorResponse(req.ID, ErrInternal, "Internal error")
			if req.IsNotification() {
				resp = nil
			}
		}
	}()

	if req.IsNotification() {
		h.handleNotification(req)
		return nil
	}

	switch req.Method {
	// Lifecycle
	case "initialize":
		return h.handleInitialize(req)
	case "ping":
		return result(req.ID, struct{}{})

	// Tools
	case "tools/list":
		return h.handleToolsList(req)
	case "tools/call":
		return h.handleToolsCall(ctx, req)

	// Nothing to offer beyond tools
	case "resources/list":
		return result(req.ID, map[string]any{"resources": []any{}})
	case "prompts/list":
		return result(req.ID, map[string]any{"prompts": []any{}})

	default:
		return errorResponse(req.ID, ErrMethodNotFound, "Method not found: "+req.Method)
	}
}

func (h *Handler) handleNotification(req *Request) {
	switch req.Method {
	case "notifications/initialized", "initialized":
		h.log.Debug("Client initialized")
	default:
		h.log.Debug("Ignoring notification", "method", req.Method)
	}
}

func (h *Handler) handleInitialize(req *Request) *Response {
	return result(req.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: h.version,
		},
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
	})
}

func (h *Handler) handleToolsList(req *Request) *Response {
	return result(req.ID, map[string]any{"tools": h.tools})
}

func (h *Handler) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, ErrInvalidParams, err.Error())
	}
	if params.Name == "" {
		return errorResponse(req.ID, ErrInvalidParams, "missing tool name")
	}

	ctx, requestID := reqctx.WithNewRequestID(ctx)
	log := h.log.WithContext(ctx).WithTool(params.Name)
	log.Debug("Tool call", "request_id", requestID)

	done := h.metrics.StartToolCall(toolLabel(params.Name))
	text, err := h.callTool(ctx, params.Name, params.Arguments)
	done(err)
	if err != nil {
		log.WithError(err).Warn("Tool call failed")
		return result(req.ID, toolError(err))
	}

	return result(req.ID, ToolResult{
		Content: []Content{{Type: "text", Text: text}},
	})
}

func result(id any, v any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

func errorResponse(id any, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
}
