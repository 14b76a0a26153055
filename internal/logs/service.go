package logs

import (
	"context"
	"time"

	"github.com/nrlogs/nrlogs/internal/metrics"
	"github.com/nrlogs/nrlogs/internal/newrelic"
	"github.com/nrlogs/nrlogs/internal/nrql"
	"github.com/nrlogs/nrlogs/internal/pkg/logger"
)

// Backend executes NRQL. *newrelic.Client implements it.
type Backend interface {
	Query(ctx context.Context, nrql, accountID string) (*newrelic.Result, error)
}

// Service runs log queries end to end.
type Service struct {
	backend   Backend
	truncator *Truncator
	metrics   *metrics.Metrics
	log       *logger.Logger
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Backend Backend
	// MaxResponseSize is the rendered response budget in characters.
	MaxResponseSize int
	// Metrics is optional.
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// NewService creates a new log query service.
func NewService(cfg ServiceConfig) *Service {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		backend:   cfg.Backend,
		truncator: NewTruncator(cfg.MaxResponseSize),
		metrics:   cfg.Metrics,
		log:       log.WithComponent("logs"),
	}
}

// QueryLogs builds and runs the query for req and returns a size-bounded
// response. Backend and normalization failures are returned unchanged.
func (s *Service) QueryLogs(ctx context.Context, req QueryRequest) (resp *QueryResponse, err error) {
	start := time.Now()
	defer func() {
		var records int
		var truncated bool
		if resp != nil {
			records, truncated = len(resp.Logs), resp.Truncated
		}
		s.metrics.RecordQuery(time.Since(start), records, truncated, err)
	}()

	if err := req.Normalize(); err != nil {
		return nil, err
	}

	query := nrql.Build(req.NRQL())

	result, err := s.backend.Query(ctx, query, req.AccountID)
	if err != nil {
		return nil, err
	}

	entries, err := Normalize(result.Records)
	if err != nil {
		return nil, err
	}

	resp = &QueryResponse{
		Logs:          entries,
		TotalResults:  TotalResults(result.TotalCount, entries),
		QueryExecuted: query,
	}

	if err := s.truncator.Apply(resp, req.Limit); err != nil {
		return nil, err
	}

	if resp.Truncated {
		s.log.WithContext(ctx).WithAccount(req.AccountID).Info("Response truncated",
			"original", len(entries),
			"kept", len(resp.Logs),
			"max_size", s.truncator.MaxSize())
	}

	return resp, nil
}
