package aggregate

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"PriceRadar/internal/canonical"
	"PriceRadar/internal/domain"
)

// DefaultThreshold is the title similarity needed to join a cluster.
const DefaultThreshold = 0.75

// TrustSource scores listings. *trust.Scorer satisfies it.
type TrustSource interface {
	ListingScore(l domain.CanonicalListing) int
}

// Options tune an Aggregator.
type Options struct {
	Threshold       float64
	KeepAccessories bool
}

// Result is the outcome of one aggregation.
type Result struct {
	Clusters []domain.ProductCluster
	Dropped  []domain.DroppedListing
}

// Best returns the first cluster's best listing.
func (r Result) Best() (domain.CanonicalListing, bool) {
	if len(r.Clusters) == 0 {
		return domain.CanonicalListing{}, false
	}
	return r.Clusters[0].Best, true
}

// Aggregator turns raw listings from many sources into ranked product clusters.
// It holds no state between calls.
type Aggregator struct {
	trust     TrustSource
	threshold float64
	keepAcc   bool
	logger    *slog.Logger
}

// New builds an Aggregator. trust may be nil, in which case every listing scores 0.
func New(trust TrustSource, opts Options, logger *slog.Logger) *Aggregator {
	threshold := opts.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Aggregator{trust: trust, threshold: threshold, keepAcc: opts.KeepAccessories, logger: logger}
}

// Aggregate canonicalizes, filters, clusters and sorts raw listings. query
// drives the accessory filter and may be empty.
func (a *Aggregator) Aggregate(query string, raw []domain.RawListing) Result {
	var res Result
	listings := make([]domain.CanonicalListing, 0, len(raw))

	for i, r := range raw {
		l, reason, err := Canonicalize(r, i)
		if reason != "" {
			res.Dropped = append(res.Dropped, domain.DroppedListing{Listing: r, Reason: reason, Err: err})
			continue
		}
		if !a.keepAcc && query != "" && IsAccessory(l.Title, query) {
			res.Dropped = append(res.Dropped, domain.DroppedListing{Listing: r, Reason: domain.DropIrrelevant})
			continue
		}
		if a.trust != nil {
			l.Trust = a.trust.ListingScore(l)
		}
		listings = append(listings, l)
	}

	res.Clusters = a.cluster(listings)
	if a.logger != nil {
		a.logger.Debug("listings aggregated", "raw", len(raw), "dropped", len(res.Dropped), "clusters", len(res.Clusters))
	}
	return res
}

// Canonicalize converts one raw listing. A non-empty reason means the listing
// must be dropped.
func Canonicalize(r domain.RawListing, seq int) (domain.CanonicalListing, domain.DropReason, error) {
	title := canonical.CanonicalizeTitle(r.Title)
	if title == "" {
		return domain.CanonicalListing{}, domain.DropMissingTitle, fmt.Errorf("%w: empty title", domain.ErrParseFailure)
	}
	price, ok := canonical.ParsePrice(r.PriceText)
	if !ok {
		return domain.CanonicalListing{}, domain.DropUnparseablePrice, fmt.Errorf("%w: price %q", domain.ErrParseFailure, r.PriceText)
	}
	if price <= 0 {
		return domain.CanonicalListing{}, domain.DropNonPositivePrice, fmt.Errorf("%w: non-positive price %q", domain.ErrParseFailure, r.PriceText)
	}

	link, productID := canonical.CanonicalizeURL(r.URL)
	return domain.CanonicalListing{
		SourceID:   r.SourceID,
		Title:      title,
		RawTitle:   r.Title,
		PriceMinor: price,
		URL:        link,
		ProductID:  productID,
		ImageURL:   r.ImageURL,
		Seller:     r.Seller,
		Rating:     parseRating(r.RatingText),
		Seq:        seq,
	}, "", nil
}

var ratingExpr = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parseRating reads "4.3 out of 5 stars" style text; anything outside (0,5] is 0.
func parseRating(text string) float64 {
	m := ratingExpr.FindString(text)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v <= 0 || v > 5 {
		return 0
	}
	return v
}

type clusterState struct {
	rep      domain.CanonicalListing
	tokens   []string
	rawSizes map[string]struct{}
	members  []domain.CanonicalListing
}

// clusterer assigns listings to clusters. A listing sharing a canonical URL or
// product id with any member joins that member's cluster; otherwise title
// similarity against each representative decides.
type clusterer struct {
	threshold float64
	states    []*clusterState
	byURL     map[string]*clusterState
	byID      map[string]*clusterState
}

func (a *Aggregator) cluster(listings []domain.CanonicalListing) []domain.ProductCluster {
	c := &clusterer{
		threshold: a.threshold,
		byURL:     make(map[string]*clusterState),
		byID:      make(map[string]*clusterState),
	}
	for _, l := range listings {
		c.add(l)
	}

	clusters := make([]domain.ProductCluster, 0, len(c.states))
	for _, st := range c.states {
		clusters = append(clusters, finish(st))
	}
	SortClusters(clusters)
	return clusters
}

func (c *clusterer) add(l domain.CanonicalListing) {
	home := c.identity(l)
	tokens := canonical.Tokens(l.Title)
	if home == nil {
		rawSizes := sizes(toSet(canonical.Tokens(l.DisplayTitle())))
		for _, st := range c.states {
			if tokenSimilarity(st.tokens, tokens) < c.threshold {
				continue
			}
			if sizeConflict(st.rawSizes, rawSizes) || sourceConflict(st, l) {
				continue
			}
			home = st
			break
		}
		if home == nil {
			home = &clusterState{rep: l, tokens: tokens, rawSizes: rawSizes}
			c.states = append(c.states, home)
		}
	}
	home.members = append(home.members, l)
	if _, ok := c.byID[l.ProductID]; !ok && l.ProductID != "" {
		c.byID[l.ProductID] = home
	}
	if _, ok := c.byURL[l.URL]; !ok && l.URL != "" {
		c.byURL[l.URL] = home
	}
}

// identity finds the cluster already holding l's product id or URL.
func (c *clusterer) identity(l domain.CanonicalListing) *clusterState {
	if st, ok := c.byID[l.ProductID]; ok && l.ProductID != "" {
		return st
	}
	if st, ok := c.byURL[l.URL]; ok && l.URL != "" {
		return st
	}
	return nil
}

// sourceConflict rejects a second, distinct offer from a source already in
// the cluster. Listings sharing a URL or product id are never distinct.
func sourceConflict(st *clusterState, l domain.CanonicalListing) bool {
	for _, m := range st.members {
		if m.SourceID != l.SourceID {
			continue
		}
		sameURL := l.URL != "" && m.URL == l.URL
		sameID := l.ProductID != "" && m.ProductID == l.ProductID
		if !sameURL && !sameID {
			return true
		}
	}
	return false
}

func finish(st *clusterState) domain.ProductCluster {
	best := st.members[0]
	trustScore := best.Trust
	for _, m := range st.members[1:] {
		if better(m, best) {
			best = m
		}
		trustScore = max(trustScore, m.Trust)
	}
	return domain.ProductCluster{
		Key:        clusterKey(st.rep, st.tokens),
		Members:    st.members,
		Best:       best,
		TrustScore: trustScore,
	}
}

func better(a, b domain.CanonicalListing) bool {
	if a.PriceMinor != b.PriceMinor {
		return a.PriceMinor < b.PriceMinor
	}
	if a.Trust != b.Trust {
		return a.Trust > b.Trust
	}
	return a.Seq < b.Seq
}

func clusterKey(rep domain.CanonicalListing, tokens []string) string {
	if rep.ProductID != "" {
		return "id:" + rep.ProductID
	}
	if key := canonical.TokenKey(tokens); key != "" {
		return key
	}
	return rep.URL
}

// SortClusters orders by ascending best price, then higher trust, then key.
func SortClusters(clusters []domain.ProductCluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.Best.PriceMinor != b.Best.PriceMinor {
			return a.Best.PriceMinor < b.Best.PriceMinor
		}
		if a.TrustScore != b.TrustScore {
			return a.TrustScore > b.TrustScore
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Best.Seq < b.Best.Seq
	})
}
