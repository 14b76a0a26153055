package newrelic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/nrlogs/nrlogs/internal/pkg/errors"
	"github.com/nrlogs/nrlogs/internal/pkg/hash"
	"github.com/nrlogs/nrlogs/internal/pkg/logger"
	"github.com/nrlogs/nrlogs/internal/pkg/security"
)

// DefaultEndpoint is the public NerdGraph endpoint.
const DefaultEndpoint = "https://api.newrelic.com/graphql"

// DefaultTimeout bounds every NerdGraph request.
const DefaultTimeout = 30 * time.Second

// Config configures the client.
type Config struct {
	// APIKey is a New Relic User API key. It is checked on every call, not at
	// construction, so a server can start without one.
	APIKey string

	// Endpoint is the NerdGraph URL.
	Endpoint string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RateLimit paces outgoing requests (requests per second). Zero disables
	// pacing. Requests wait for a token; they are never retried.
	RateLimit float64

	// HTTPClient overrides the lazily built HTTP client.
	HTTPClient *http.Client

	Logger *logger.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Timeout:  DefaultTimeout,
	}
}

// Client talks to NerdGraph. It is safe for concurrent use.
type Client struct {
	cfg     Config
	log     *logger.Logger
	limiter *rate.Limiter

	once       sync.Once
	httpClient *http.Client
}

// New creates a new NerdGraph client.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	c := &Client{
		cfg: cfg,
		log: cfg.Logger.WithComponent("newrelic"),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// Endpoint returns the configured NerdGraph URL.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

// Query runs nrql against accountID.
func (c *Client) Query(ctx context.Context, nrql, accountID string) (*Result, error) {
	log := c.log.WithContext(ctx).WithAccount(accountID)
	log.Info("Executing NRQL query",
		"nrql", security.SanitizeForLogWithLength(nrql, 500),
		"fingerprint", hash.Fingerprint(nrql))

	start := time.Now()
	data, err := c.do(ctx, Envelope(nrql, accountID))
	if err != nil {
		log.WithError(err).Warn("NRQL query failed", "fingerprint", hash.Fingerprint(nrql))
		return nil, err
	}

	result, err := parseNRQLData(data)
	if err != nil {
		return nil, err
	}

	log.Debug("NRQL query completed",
		"records", len(result.Records),
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// ListAccounts returns every account visible to the API key, in backend order.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	data, err := c.do(ctx, accountsQuery)
	if err != nil {
		c.log.WithContext(ctx).WithError(err).Warn("Listing accounts failed")
		return nil, err
	}
	return parseAccountsData(data)
}

func (c *Client) init() {
	c.once.Do(func() {
		if c.cfg.HTTPClient != nil {
			c.httpClient = c.cfg.HTTPClient
		} else {
			c.httpClient = &http.Client{
				Timeout: c.cfg.Timeout,
				Transport: &http.Transport{
					Proxy:               http.ProxyFromEnvironment,
					MaxIdleConns:        20,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     90 * time.Second,
					ForceAttemptHTTP2:   true,
				},
			}
		}

		if ClassifyKey(c.cfg.APIKey) != KeyUser {
			c.log.Warn("API key does not start with '" + UserKeyPrefix + "'. It may not be a valid User API Key.")
		}
	})
}

// do sends a GraphQL query and returns the "data" member of the response.
func (c *Client) do(ctx context.Context, query string) (json.RawMessage, error) {
	if c.cfg.APIKey == "" {
		return nil, apperrors.ConfigurationError("NEW_RELIC_API_KEY environment variable not set")
	}
	c.init()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if _, hasDeadline := ctx.Deadline(); hasDeadline {
				return nil, apperrors.TimeoutError("waiting for rate limiter", err)
			}
			return nil, apperrors.TransportError("waiting for rate limiter", err)
		}
	}

	body, err := json.Marshal(graphQLRequest{Query: query})
	if err != nil {
		return nil, apperrors.InternalError("failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.TransportError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyNetError("request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetError("failed to read response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.RateLimitedError(resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WithContext(ctx).Debug("NerdGraph returned non-success status",
			"status", resp.StatusCode,
			"request_headers", security.MaskSensitiveHeaders(req.Header))
		return nil, apperrors.HTTPStatusError(resp.StatusCode, string(respBody))
	}

	var gql graphQLResponse
	if err := json.Unmarshal(respBody, &gql); err != nil {
		return nil, apperrors.TransportError("failed to decode response", err)
	}
	if len(gql.Errors) > 0 {
		return nil, apperrors.BackendQueryError(gql.errorMessages())
	}

	return gql.Data, nil
}

func classifyNetError(message string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.TimeoutError("NerdGraph request", err)
	}
	return apperrors.TransportError(message, err)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parseNRQLData(data json.RawMessage) (*Result, error) {
	result := &Result{}
	if isNull(data) {
		return result, nil
	}

	var d nrqlData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, apperrors.MalformedResultError("unexpected NRQL response shape: " + err.Error())
	}
	if d.Actor == nil || d.Actor.Account == nil || d.Actor.Account.NRQL == nil {
		return result, nil
	}
	nrql := d.Actor.Account.NRQL

	if !isNull(nrql.Results) {
		if err := json.Unmarshal(nrql.Results, &result.Records); err != nil {
			return nil, apperrors.MalformedResultError("NRQL results is not a list")
		}
	}

	result.TotalCount = parseTotalCount(nrql.TotalResult)

	if !isNull(nrql.Metadata) {
		var md Metadata
		// Metadata is informational; an unexpected shape is not fatal.
		if err := json.Unmarshal(nrql.Metadata, &md); err == nil {
			result.Metadata = &md
		}
	}

	return result, nil
}

// parseTotalCount accepts either {"count": N} or a bare number.
func parseTotalCount(raw json.RawMessage) *int {
	if isNull(raw) {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return numberToInt(n)
	}

	var obj struct {
		Count *json.Number `json:"count"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Count != nil {
		return numberToInt(*obj.Count)
	}
	return nil
}

func numberToInt(n json.Number) *int {
	if i, err := n.Int64(); err == nil {
		v := int(i)
		return &v
	}
	if f, err := n.Float64(); err == nil {
		v := int(f)
		return &v
	}
	return nil
}

func parseAccountsData(data json.RawMessage) ([]Account, error) {
	if isNull(data) {
		return nil, nil
	}

	var d accountsData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, apperrors.MalformedResultError("unexpected accounts response shape: " + err.Error())
	}
	if d.Actor == nil {
		return nil, nil
	}

	accounts := make([]Account, 0, len(d.Actor.Accounts))
	for _, a := range d.Actor.Accounts {
		acct := Account{ID: rawID(a.ID)}
		if a.Name != nil {
			acct.Name = *a.Name
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// rawID renders an id that may arrive as a JSON number or string.
func rawID(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
