package rewards

import (
	"context"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/algorithms"
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
	"github.com/dd0wney/cluso-trustrank/pkg/logging"
	"github.com/dd0wney/cluso-trustrank/pkg/metrics"
	"github.com/dd0wney/cluso-trustrank/pkg/source"
)

var tracer = otel.Tracer("github.com/dd0wney/cluso-trustrank/pkg/rewards")

// ErrInvalidSourceConfig is returned when an AttestationSource is
// configured with values that would make every pass fail.
var ErrInvalidSourceConfig = errors.New("invalid attestation source config")

// AttestationSourceConfig configures an AttestationSource.
type AttestationSourceConfig struct {
	SchemaID          string
	PageRank          algorithms.PageRankConfig
	Pool              *big.Int
	MinScoreThreshold float64
	Decoder           source.WeightDecoder
	AllowDuplicates   bool // Keep parallel edges instead of last-write-wins
}

// ScoringPass is the memoised output of one fetch, solve and allocate run.
type ScoringPass struct {
	ID         string
	Schema     string
	ComputedAt time.Time
	Result     *algorithms.PageRankResult
	Rewards    Allocation
	Stats      source.EdgeStats
	Received   map[account.Account]int // Accepted attestations per recipient
	Rings      *algorithms.RingResult  // Mutually attesting groups
	Nodes      int
	Edges      int
}

// Scores returns the normalised score map of the pass.
func (p *ScoringPass) Scores() map[account.Account]float64 {
	return p.Result.Scores
}

// AttestationSource rewards accounts by trust-aware PageRank over the
// attestations recorded under one schema.
//
// The pass runs at most once per instance: concurrent first callers share
// a single computation and every later call is served from the cache. A
// failed pass is not cached. To rescore, construct a new instance.
type AttestationSource struct {
	name    string
	cfg     AttestationSourceConfig
	fetcher source.Fetcher
	logger  logging.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer
	now     func() time.Time

	mu    sync.Mutex
	pass  *ScoringPass
	group singleflight.Group
}

// AttestationOption configures an AttestationSource.
type AttestationOption func(*AttestationSource)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) AttestationOption {
	return func(s *AttestationSource) {
		s.logger = logging.OrNop(logger)
	}
}

// WithMetrics records pass, cache and allocation metrics in reg.
func WithMetrics(reg *metrics.Registry) AttestationOption {
	return func(s *AttestationSource) {
		s.metrics = reg
	}
}

// WithTracer overrides the tracer used for pass spans.
func WithTracer(t trace.Tracer) AttestationOption {
	return func(s *AttestationSource) {
		s.tracer = t
	}
}

// WithClock overrides the clock used to stamp passes.
func WithClock(now func() time.Time) AttestationOption {
	return func(s *AttestationSource) {
		s.now = now
	}
}

// NewAttestationSource validates cfg and creates a source. Nothing is
// fetched until the first query.
func NewAttestationSource(name string, fetcher source.Fetcher, cfg AttestationSourceConfig, opts ...AttestationOption) (*AttestationSource, error) {
	if fetcher == nil {
		return nil, errors.Wrap(ErrInvalidSourceConfig, "fetcher is nil")
	}
	if cfg.SchemaID == "" {
		return nil, errors.Wrap(ErrInvalidSourceConfig, "schema id is empty")
	}
	if err := cfg.PageRank.Validate(); err != nil {
		return nil, err
	}
	if err := ValidatePool(cfg.Pool); err != nil {
		return nil, err
	}
	if err := ValidateThreshold(cfg.MinScoreThreshold); err != nil {
		return nil, err
	}
	cfg.Pool = new(big.Int).Set(cfg.Pool)

	s := &AttestationSource{
		name:    name,
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logging.NewNopLogger(),
		tracer:  tracer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("rewards"), logging.Schema(cfg.SchemaID))
	return s, nil
}

// Name returns the source name.
func (s *AttestationSource) Name() string {
	return s.name
}

// cached returns the memoised pass, if any.
func (s *AttestationSource) cached() *ScoringPass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pass
}

// Pass returns the scoring pass, computing it on first use. A caller whose
// ctx ends while waiting gets ctx's error; the computation itself carries on
// for the other waiters.
func (s *AttestationSource) Pass(ctx context.Context) (*ScoringPass, error) {
	if p := s.cached(); p != nil {
		s.recordCache(true)
		return p, nil
	}
	s.recordCache(false)

	ch := s.group.DoChan(s.cfg.SchemaID, func() (any, error) {
		if p := s.cached(); p != nil {
			return p, nil
		}

		p, err := s.compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.pass = p
		s.mu.Unlock()
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ScoringPass), nil
	}
}

func (s *AttestationSource) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(s.name, hit)
	}
}

// compute fetches, builds, solves and allocates. It is never cancelled by
// an individual caller; max_iterations bounds the solver.
func (s *AttestationSource) compute(ctx context.Context) (pass *ScoringPass, err error) {
	passID := uuid.NewString()
	logger := s.logger.With(logging.PassID(passID))

	ctx, span := s.tracer.Start(ctx, "rewards.AttestationSource.compute",
		trace.WithAttributes(
			attribute.String("source", s.name),
			attribute.String("schema", s.cfg.SchemaID),
			attribute.String("pass_id", passID),
		))
	defer span.End()

	timer := logging.StartTimer(logger, "scoring pass")
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			timer.EndError(err)
		}
		if s.metrics != nil {
			s.metrics.RecordScoringPass(s.name, status)
		}
	}()

	atts, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	edges, stats := source.ToEdges(atts, s.cfg.Decoder, logger)
	stats.Record(s.metrics)

	g := graph.BuildAttestationGraph(edges, s.cfg.PageRank.GraphOptions(s.cfg.AllowDuplicates))
	span.SetAttributes(
		attribute.Int("attestations", stats.Total),
		attribute.Int("attestations.skipped", stats.Skipped()),
		attribute.Int("graph.nodes", g.NodeCount()),
		attribute.Int("graph.edges", g.EdgeCount()),
	)

	result, err := s.solve(ctx, g)
	if err != nil {
		return nil, err
	}

	allocation, err := s.allocate(ctx, result.Scores)
	if err != nil {
		return nil, err
	}

	rings := algorithms.AttestationRings(g)
	span.SetAttributes(attribute.Int("graph.rings", len(rings.Rings)))

	received := make(map[account.Account]int)
	for _, e := range edges {
		received[e.To]++
	}

	pass = &ScoringPass{
		ID:         passID,
		Schema:     s.cfg.SchemaID,
		ComputedAt: s.now().UTC(),
		Result:     result,
		Rewards:    allocation,
		Stats:      stats,
		Received:   received,
		Rings:      rings,
		Nodes:      g.NodeCount(),
		Edges:      g.EdgeCount(),
	}

	timer.End(
		logging.Int("nodes", pass.Nodes),
		logging.Int("edges", pass.Edges),
		logging.Int("iterations", result.Iterations),
		logging.Bool("converged", result.Converged),
		logging.Int("recipients", len(allocation)),
		logging.Int("rings", len(rings.Rings)),
	)
	return pass, nil
}

func (s *AttestationSource) fetch(ctx context.Context) ([]source.Attestation, error) {
	ctx, span := s.tracer.Start(ctx, "rewards.fetch")
	defer span.End()

	start := time.Now()
	atts, err := s.fetcher.FetchAttestations(ctx, s.cfg.SchemaID)
	if s.metrics != nil {
		s.metrics.RecordFetch(s.name, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "fetching attestations for %s", s.cfg.SchemaID)
	}
	span.SetAttributes(attribute.Int("count", len(atts)))
	return atts, nil
}

func (s *AttestationSource) solve(ctx context.Context, g *graph.AttestationGraph) (*algorithms.PageRankResult, error) {
	_, span := s.tracer.Start(ctx, "rewards.pagerank")
	defer span.End()

	start := time.Now()
	result, err := algorithms.PageRank(g, s.cfg.PageRank)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordPageRankError()
		}
		return nil, err
	}

	if s.metrics != nil {
		seeds := 0
		for _, node := range g.Nodes() {
			if s.cfg.PageRank.Trust.IsSeed(node) {
				seeds++
			}
		}
		s.metrics.RecordPageRank(result.Iterations, result.Converged, time.Since(start))
		s.metrics.UpdateGraphMetrics(g.NodeCount(), g.EdgeCount(), seeds, len(result.Isolated))
	}

	span.SetAttributes(
		attribute.Int("iterations", result.Iterations),
		attribute.Bool("converged", result.Converged),
		attribute.Int("isolated", len(result.Isolated)),
	)
	if !result.Converged {
		s.logger.Warn("pagerank stopped at max iterations",
			logging.Int("iterations", result.Iterations))
	}
	return result, nil
}

func (s *AttestationSource) allocate(ctx context.Context, scores map[account.Account]float64) (Allocation, error) {
	_, span := s.tracer.Start(ctx, "rewards.allocate")
	defer span.End()

	start := time.Now()
	allocation, err := AllocateRewards(scores, s.cfg.Pool, s.cfg.MinScoreThreshold)
	if s.metrics != nil {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		s.metrics.RecordAllocation(status, len(allocation), time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("recipients", len(allocation)))
	return allocation, nil
}

// Accounts returns every account in the attestation graph, in identity order.
func (s *AttestationSource) Accounts(ctx context.Context) ([]account.Account, error) {
	p, err := s.Pass(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]account.Account, 0, len(p.Result.Scores))
	for acct := range p.Result.Scores {
		out = append(out, acct)
	}
	account.Sort(out)
	return out, nil
}

// EventsAndValue returns the number of accepted attestations acct received
// and its reward.
func (s *AttestationSource) EventsAndValue(ctx context.Context, acct account.Account) (Reward, error) {
	p, err := s.Pass(ctx)
	if err != nil {
		return Reward{}, err
	}
	return Reward{
		Account: acct,
		Events:  p.Received[acct],
		Value:   p.Rewards.Get(acct),
	}, nil
}

// Metadata describes the source. It does not trigger a pass; the pass
// attributes appear once one has completed.
func (s *AttestationSource) Metadata(ctx context.Context) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}

	trust := s.cfg.PageRank.Trust
	attrs := map[string]string{
		"schema":         s.cfg.SchemaID,
		"pool":           s.cfg.Pool.String(),
		"min_threshold":  strconv.FormatFloat(s.cfg.MinScoreThreshold, 'g', -1, 64),
		"damping_factor": strconv.FormatFloat(s.cfg.PageRank.DampingFactor, 'g', -1, 64),
		"trusted_seeds":  strconv.Itoa(len(trust.TrustedSeeds)),
	}
	if p := s.cached(); p != nil {
		attrs["pass_id"] = p.ID
		attrs["computed_at"] = p.ComputedAt.Format(time.RFC3339)
		attrs["nodes"] = strconv.Itoa(p.Nodes)
		attrs["edges"] = strconv.Itoa(p.Edges)
	}

	return Metadata{
		Name:        s.name,
		Kind:        "attestation",
		Description: "Trust-aware PageRank over attestations",
		Attributes:  attrs,
	}, nil
}
