package domain

import "time"

// RawListing is a candidate product exactly as a retailer page presented it.
type RawListing struct {
	SourceID   string
	Title      string
	PriceText  string
	URL        string
	ImageURL   string
	Seller     string
	RatingText string
	FetchedAt  time.Time
}

// CanonicalListing is a RawListing after canonicalization. PriceMinor is in
// minor currency units (paise, cents).
type CanonicalListing struct {
	SourceID   string
	Title      string
	RawTitle   string
	PriceMinor int64
	URL        string
	ProductID  string
	ImageURL   string
	Seller     string
	Rating     float64
	Trust      int
	Seq        int
}

// DisplayTitle is the title as the retailer showed it. Title is the matching
// key and is never shown.
func (l CanonicalListing) DisplayTitle() string {
	if l.RawTitle != "" {
		return l.RawTitle
	}
	return l.Title
}

// DropReason explains why a raw listing never reached clustering.
type DropReason string

const (
	DropUnparseablePrice DropReason = "unparseable_price"
	DropNonPositivePrice DropReason = "non_positive_price"
	DropMissingTitle     DropReason = "missing_title"
	DropIrrelevant       DropReason = "irrelevant"
)

// DroppedListing records a discarded listing for diagnostics.
type DroppedListing struct {
	Listing RawListing
	Reason  DropReason
	Err     error
}

// ProductCluster groups listings believed to describe the same product.
type ProductCluster struct {
	Key        string
	Members    []CanonicalListing
	Best       CanonicalListing
	TrustScore int
}

// Sources lists the distinct source ids present in the cluster in member order.
func (c ProductCluster) Sources() []string {
	seen := make(map[string]struct{}, len(c.Members))
	out := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if _, ok := seen[m.SourceID]; ok {
			continue
		}
		seen[m.SourceID] = struct{}{}
		out = append(out, m.SourceID)
	}
	return out
}
