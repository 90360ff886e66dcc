// Package service runs the analysis operations against a domain's stored
// pages. It loads items from the store, calls the pure cluster, topics,
// links and graph packages, persists cluster ids under a domain lock, and
// records every operation in the log and in telemetry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/linkmap/internal/config"
	"github.com/Aman-CERP/linkmap/internal/embed"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/store"
	"github.com/Aman-CERP/linkmap/internal/telemetry"
)

// Operation names, shared by logs, metrics and the MCP tools.
const (
	OpIngest           = "ingest"
	OpPreviewClusters  = "preview_clusters"
	OpCommitClusters   = "commit_clusters"
	OpClearClusters    = "clear_clusters"
	OpClusterStatus    = "cluster_status"
	OpLabelTopics      = "label_topics"
	OpSuggestLinks     = "suggest_links"
	OpBuildGraph       = "build_graph"
	OpRecomputeMetrics = "recompute_metrics"
)

// Service is safe for concurrent use. Writes to one domain are serialized
// by the domain locker.
type Service struct {
	store    *store.Store
	embedder embed.Embedder
	cfg      *config.Config
	metrics  *telemetry.Collector
	logger   *slog.Logger
	locker   *store.DomainLocker
}

// Option customizes a Service.
type Option func(*Service)

// WithEmbedder sets the embedder used by Ingest for records without an
// embedding.
func WithEmbedder(e embed.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithMetrics sets the telemetry collector.
func WithMetrics(m *telemetry.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLocker replaces the locker built from cfg.Store.LockDir.
func WithLocker(l *store.DomainLocker) Option {
	return func(s *Service) { s.locker = l }
}

// New creates a Service over st. A nil cfg means defaults.
func New(st *store.Store, cfg *config.Config, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Service{
		store:  st,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = store.NewDomainLocker(cfg.Store.LockDir)
	}
	return s, nil
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Domains lists the domains with stored items.
func (s *Service) Domains(ctx context.Context) ([]string, error) {
	return s.store.Domains(ctx)
}

// begin validates the domain and returns the function that finishes the
// operation.
func (s *Service) begin(op, domain string) (string, func(err error, attrs ...slog.Attr), error) {
	domain = strings.TrimSpace(domain)
	finish := s.track(op, slog.String("domain", domain))
	if domain == "" {
		err := lmerrors.InvalidParameter("domain", "must not be empty")
		finish(err)
		return "", nil, err
	}
	return domain, finish, nil
}

// track starts timing op and returns the function that logs its outcome
// and records it in telemetry.
func (s *Service) track(op string, base ...slog.Attr) func(err error, attrs ...slog.Attr) {
	start := time.Now()
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, op+"_started", base...)

	return func(err error, attrs ...slog.Attr) {
		s.metrics.Observe(op, start, err)
		all := make([]slog.Attr, 0, len(base)+len(attrs)+3)
		all = append(all, base...)
		all = append(all, slog.Duration("duration", time.Since(start)))
		all = append(all, attrs...)
		if err != nil {
			all = append(all,
				slog.String("error", err.Error()),
				slog.String("code", lmerrors.GetCode(err)))
			s.logger.LogAttrs(context.Background(), slog.LevelError, op+"_failed", all...)
			return
		}
		s.logger.LogAttrs(context.Background(), slog.LevelInfo, op+"_completed", all...)
	}
}

func (s *Service) warnNoEligible(op, domain string, excluded int) {
	s.logger.Warn("no_eligible_items",
		slog.String("operation", op),
		slog.String("domain", domain),
		slog.String("code", lmerrors.ErrCodeNoEligibleItems),
		slog.Int("excluded", excluded))
}

func (s *Service) warnNotConverged(op, domain, algorithm string, iterations int) {
	s.metrics.ConvergenceFailure(op)
	s.logger.Warn("convergence_not_reached",
		slog.String("operation", op),
		slog.String("domain", domain),
		slog.String("algorithm", algorithm),
		slog.String("code", lmerrors.ErrCodeConvergenceNotReached),
		slog.Int("iterations", iterations))
}
