package algorithms

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
)

// ErrInvalidConfig marks configuration values that cannot be clamped to a sane default.
var ErrInvalidConfig = errors.New("invalid pagerank configuration")

// Trust defaults used when trust is enabled through configuration.
const (
	DefaultTrustMultiplier = 2.0
	DefaultTrustShare      = 0.99
	DefaultTrustDecay      = 0.8
)

// TrustConfig biases PageRank towards paths that start at trusted seeds.
// An empty seed set disables every trust feature.
type TrustConfig struct {
	TrustedSeeds    account.Set
	TrustMultiplier float64 // >= 1, applied to edges leaving a seed
	TrustShare      float64 // [0,1], initial mass reserved for seeds
	TrustDecay      float64 // [0,1], per-hop attenuation from the nearest seed
}

// DefaultTrustConfig returns a trust configuration with no seeds.
func DefaultTrustConfig() TrustConfig {
	return TrustConfig{
		TrustedSeeds:    account.NewSet(),
		TrustMultiplier: DefaultTrustMultiplier,
		TrustShare:      DefaultTrustShare,
		TrustDecay:      DefaultTrustDecay,
	}
}

// Enabled reports whether any trusted seed is configured.
func (tc TrustConfig) Enabled() bool {
	return len(tc.TrustedSeeds) > 0
}

// IsSeed reports whether a is a trusted seed.
func (tc TrustConfig) IsSeed(a account.Account) bool {
	return tc.TrustedSeeds.Contains(a)
}

// Normalized returns a copy with every parameter clamped into range.
func (tc TrustConfig) Normalized() TrustConfig {
	out := tc
	if out.TrustedSeeds == nil {
		out.TrustedSeeds = account.NewSet()
	}
	if math.IsNaN(out.TrustMultiplier) || out.TrustMultiplier < 1 {
		out.TrustMultiplier = 1
	}
	if math.IsInf(out.TrustMultiplier, 1) {
		out.TrustMultiplier = math.MaxFloat64
	}
	out.TrustShare = clampUnit(out.TrustShare)
	out.TrustDecay = clampUnit(out.TrustDecay)
	return out
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PageRankConfig configures the trust-aware PageRank algorithm
type PageRankConfig struct {
	DampingFactor float64 // Usually 0.85
	MaxIterations int
	Tolerance     float64 // Convergence threshold
	MinWeight     float64 // Edge weight clamp, lower bound
	MaxWeight     float64 // Edge weight clamp, upper bound and normalisation unit
	Trust         TrustConfig
}

// DefaultPageRankConfig returns default PageRank configuration
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
		MinWeight:     graph.DefaultMinWeight,
		MaxWeight:     graph.DefaultMaxWeight,
		Trust:         DefaultTrustConfig(),
	}
}

// Validate rejects values for which no clamp exists. Trust parameters are
// never rejected here; they are clamped by Normalized.
func (c PageRankConfig) Validate() error {
	switch {
	case math.IsNaN(c.DampingFactor) || c.DampingFactor <= 0 || c.DampingFactor >= 1:
		return errors.Wrapf(ErrInvalidConfig, "damping factor %v outside (0,1)", c.DampingFactor)
	case c.MaxIterations <= 0:
		return errors.Wrapf(ErrInvalidConfig, "max iterations must be positive, got %d", c.MaxIterations)
	case math.IsNaN(c.Tolerance) || c.Tolerance <= 0:
		return errors.Wrapf(ErrInvalidConfig, "tolerance must be positive, got %v", c.Tolerance)
	case math.IsNaN(c.MinWeight) || math.IsNaN(c.MaxWeight) || math.IsInf(c.MaxWeight, 0) || math.IsInf(c.MinWeight, 0):
		return errors.Wrap(ErrInvalidConfig, "edge weight bounds must be finite")
	case c.MaxWeight <= 0:
		return errors.Wrapf(ErrInvalidConfig, "max weight must be positive, got %v", c.MaxWeight)
	case c.MinWeight > c.MaxWeight:
		return errors.Wrapf(ErrInvalidConfig, "min weight %v exceeds max weight %v", c.MinWeight, c.MaxWeight)
	}
	return nil
}

// ClampWeight bounds w to [MinWeight, MaxWeight]. NaN maps to the lower bound.
func (c PageRankConfig) ClampWeight(w float64) float64 {
	if math.IsNaN(w) || w < c.MinWeight {
		return c.MinWeight
	}
	if w > c.MaxWeight {
		return c.MaxWeight
	}
	return w
}

// GraphOptions returns graph options whose clamp bounds match the config.
func (c PageRankConfig) GraphOptions(allowDuplicates bool) graph.GraphOptions {
	return graph.GraphOptions{
		AllowDuplicates: allowDuplicates,
		MinWeight:       c.MinWeight,
		MaxWeight:       c.MaxWeight,
	}
}
