package trust

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"

	"github.com/titanous/json5"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

const (
	// DefaultScore applies to sources with no prior.
	DefaultScore = 50

	trustedSellerBonus = 10
	lowRatingPenalty   = 25
	lowRatingCutoff    = 3.5

	maxReturnPenalty    = 30
	maxComplaintPenalty = 20
)

type snapshot struct {
	scores         map[string]int
	defaultScore   int
	trustedSellers []string
}

// Scorer answers trust lookups from an immutable snapshot. Refresh builds a
// new snapshot and swaps it in, so readers never lock.
type Scorer struct {
	priors  map[string]int
	current atomic.Pointer[snapshot]
}

// Options configure a Scorer.
type Options struct {
	Default        int
	Priors         map[string]int
	TrustedSellers []string
}

// NewScorer builds a scorer from static priors.
func NewScorer(opts Options) *Scorer {
	def := opts.Default
	if def <= 0 {
		def = DefaultScore
	}
	priors := make(map[string]int, len(opts.Priors))
	for k, v := range opts.Priors {
		priors[normalize(k)] = clamp(v)
	}
	sellers := make([]string, 0, len(opts.TrustedSellers))
	for _, s := range opts.TrustedSellers {
		if s = normalize(s); s != "" {
			sellers = append(sellers, s)
		}
	}

	s := &Scorer{priors: priors}
	s.current.Store(&snapshot{scores: priors, defaultScore: clamp(def), trustedSellers: sellers})
	return s
}

// Score returns the trust in [0,100] for a source id.
func (s *Scorer) Score(sourceID string) int {
	snap := s.current.Load()
	if v, ok := snap.scores[normalize(sourceID)]; ok {
		return v
	}
	return snap.defaultScore
}

// ListingScore refines the source score with seller and rating data when present.
func (s *Scorer) ListingScore(l domain.CanonicalListing) int {
	score := s.Score(l.SourceID)
	snap := s.current.Load()

	if seller := normalize(l.Seller); seller != "" {
		for _, trusted := range snap.trustedSellers {
			if strings.Contains(seller, trusted) {
				score += trustedSellerBonus
				break
			}
		}
	}
	if l.Rating > 0 && l.Rating < lowRatingCutoff {
		score -= lowRatingPenalty
	}
	return clamp(score)
}

// Refresh pulls observed signals and recomputes every score from the static
// priors. The previous snapshot stays in place when the provider fails.
func (s *Scorer) Refresh(ctx context.Context, provider ports.SignalProvider) error {
	if provider == nil {
		return nil
	}
	signals, err := provider.Signals(ctx)
	if err != nil {
		return fmt.Errorf("fetch trust signals: %w", err)
	}

	prev := s.current.Load()
	scores := make(map[string]int, len(s.priors)+len(signals))
	for k, v := range s.priors {
		scores[k] = v
	}
	for source, sig := range signals {
		key := normalize(source)
		base, ok := scores[key]
		if !ok {
			base = prev.defaultScore
		}
		scores[key] = clamp(base - Penalty(sig))
	}

	s.current.Store(&snapshot{scores: scores, defaultScore: prev.defaultScore, trustedSellers: prev.trustedSellers})
	return nil
}

// Penalty converts observed signals into points subtracted from a prior.
func Penalty(sig domain.TrustSignals) int {
	returns := int(math.Round(sig.ReturnRate * 50))
	if returns < 0 {
		returns = 0
	}
	returns = min(returns, maxReturnPenalty)

	complaints := 0
	if sig.Complaints > 0 {
		complaints = min(sig.Complaints/10, maxComplaintPenalty)
	}
	return returns + complaints
}

// LoadPriors reads a json5 object of source id to score.
func LoadPriors(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read priors: %w", err)
	}
	var priors map[string]int
	if err := json5.Unmarshal(data, &priors); err != nil {
		return nil, fmt.Errorf("decode priors %s: %w", path, err)
	}
	return priors, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp(v int) int {
	return max(0, min(100, v))
}
