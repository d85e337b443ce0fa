package aggregate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"PriceRadar/internal/domain"
)

type trustBySource map[string]int

func (t trustBySource) ListingScore(l domain.CanonicalListing) int {
	return t[l.SourceID]
}

func TestDuplicateURLAcrossSourcesShareCluster(t *testing.T) {
	t.Parallel()

	agg := New(nil, Options{}, nil)
	res := agg.Aggregate("", []domain.RawListing{
		{SourceID: "amazon", Title: "Sony WH-1000XM5 Wireless Headphones", PriceText: "₹26,990", URL: "https://shop.example.com/item/42?utm_source=a"},
		{SourceID: "deals", Title: "Refurb Bundle: Noise Cancelling Set", PriceText: "₹25,500", URL: "https://SHOP.example.com/item/42?utm_campaign=b"},
	})

	require.Empty(t, res.Dropped)
	require.Len(t, res.Clusters, 1)
	require.Len(t, res.Clusters[0].Members, 2)
	require.Equal(t, "deals", res.Clusters[0].Best.SourceID)
	require.Equal(t, []string{"amazon", "deals"}, res.Clusters[0].Sources())
}

func TestSharedURLWithAnyMemberJoinsCluster(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		third domain.RawListing
	}{
		{
			name:  "other source with a different title",
			third: domain.RawListing{SourceID: "z", Title: "Refurbished Bundle Offer", PriceText: "2899", URL: "https://shop.example.com/u2?utm_source=z"},
		},
		{
			name:  "founding source again",
			third: domain.RawListing{SourceID: "x", Title: "Boat Airdopes 141 Bluetooth TWS", PriceText: "2899", URL: "https://shop.example.com/u2"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			agg := New(nil, Options{}, nil)
			res := agg.Aggregate("", []domain.RawListing{
				{SourceID: "x", Title: "Boat Airdopes 141 Bluetooth TWS", PriceText: "2999", URL: "https://shop.example.com/u1"},
				{SourceID: "y", Title: "boAt Airdopes 141 Bluetooth TWS", PriceText: "2950", URL: "https://shop.example.com/u2"},
				tc.third,
			})
			require.Len(t, res.Clusters, 1)
			require.Len(t, res.Clusters[0].Members, 3)
			require.Equal(t, int64(289900), res.Clusters[0].Best.PriceMinor)
		})
	}
}

func TestStorageVariantsStaySeparate(t *testing.T) {
	t.Parallel()

	agg := New(nil, Options{}, nil)
	res := agg.Aggregate("", []domain.RawListing{
		{SourceID: "amazon", Title: "Apple iPhone 15 (128 GB) - Black", PriceText: "₹69,900", URL: "https://a.example.com/128"},
		{SourceID: "flipkart", Title: "Apple iPhone 15 (256 GB) - Black", PriceText: "₹79,900", URL: "https://b.example.com/256"},
		{SourceID: "croma", Title: "Apple iPhone 15 Black", PriceText: "₹70,500", URL: "https://c.example.com/any"},
	})

	require.Len(t, res.Clusters, 2)
	require.Equal(t, "Apple iPhone 15 (128 GB) - Black", res.Clusters[0].Best.RawTitle)
	require.Len(t, res.Clusters[0].Members, 2, "a title without a size may join either variant")
	require.Len(t, res.Clusters[1].Members, 1)
	require.Equal(t, "Apple iPhone 15 (256 GB) - Black", res.Clusters[1].Best.RawTitle)
}

func TestClustersSortedByPriceThenTrust(t *testing.T) {
	t.Parallel()

	agg := New(trustBySource{"a": 50, "b": 90, "c": 40}, Options{}, nil)
	res := agg.Aggregate("", []domain.RawListing{
		{SourceID: "a", Title: "Alpha Blender 500W", PriceText: "500", URL: "https://a.example.com/1"},
		{SourceID: "b", Title: "Bravo Kettle Steel", PriceText: "300", URL: "https://b.example.com/2"},
		{SourceID: "c", Title: "Charlie Toaster Oven", PriceText: "300", URL: "https://c.example.com/3"},
	})

	type row struct {
		Price int64
		Trust int
	}
	var got []row
	for _, c := range res.Clusters {
		got = append(got, row{Price: c.Best.PriceMinor, Trust: c.TrustScore})
	}
	want := []row{{30000, 90}, {30000, 40}, {50000, 50}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cluster order mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateDropsBadListings(t *testing.T) {
	t.Parallel()

	agg := New(nil, Options{}, nil)
	res := agg.Aggregate("iphone 15", []domain.RawListing{
		{SourceID: "a", Title: "Apple iPhone 15 (128 GB)", PriceText: "₹69,900", URL: "https://a.example.com/p"},
		{SourceID: "a", Title: "Apple iPhone 15", PriceText: "Contact seller", URL: "https://a.example.com/q"},
		{SourceID: "a", Title: "Apple iPhone 15", PriceText: "₹0", URL: "https://a.example.com/r"},
		{SourceID: "a", Title: "  [Sponsored]  ", PriceText: "₹100", URL: "https://a.example.com/s"},
		{SourceID: "b", Title: "Silicone Back Cover for iPhone 15", PriceText: "₹299", URL: "https://b.example.com/c"},
	})

	require.Len(t, res.Clusters, 1)
	reasons := make([]domain.DropReason, 0, len(res.Dropped))
	for _, d := range res.Dropped {
		reasons = append(reasons, d.Reason)
	}
	require.Equal(t, []domain.DropReason{
		domain.DropUnparseablePrice,
		domain.DropNonPositivePrice,
		domain.DropMissingTitle,
		domain.DropIrrelevant,
	}, reasons)
	require.True(t, errors.Is(res.Dropped[0].Err, domain.ErrParseFailure))
}

func TestAccessoryQueryKeepsAccessories(t *testing.T) {
	t.Parallel()

	agg := New(nil, Options{}, nil)
	res := agg.Aggregate("iphone 15 case", []domain.RawListing{
		{SourceID: "b", Title: "Silicone Case for iPhone 15", PriceText: "₹299", URL: "https://b.example.com/c"},
	})
	require.Empty(t, res.Dropped)
	require.Len(t, res.Clusters, 1)

	keep := New(nil, Options{KeepAccessories: true}, nil)
	res = keep.Aggregate("iphone 15", []domain.RawListing{
		{SourceID: "b", Title: "Silicone Case for iPhone 15", PriceText: "₹299", URL: "https://b.example.com/c"},
	})
	require.Empty(t, res.Dropped)
}

func TestSimilarTitlesCluster(t *testing.T) {
	t.Parallel()

	agg := New(trustBySource{"amazon": 70, "flipkart": 70}, Options{}, nil)
	res := agg.Aggregate("", []domain.RawListing{
		{SourceID: "amazon", Title: "Samsung Galaxy S24 Ultra 5G (Titanium Gray, 12GB, 256GB)", PriceText: "₹1,21,999", URL: "https://www.amazon.in/dp/B0CS5XW6TN"},
		{SourceID: "flipkart", Title: "SAMSUNG Galaxy S24 Ultra 5G | Titanium Gray", PriceText: "₹1,19,999", URL: "https://www.flipkart.com/x/p/itm1?pid=MOBGX2F3ZZZZZZZZ"},
		{SourceID: "flipkart", Title: "SAMSUNG Galaxy S24 5G", PriceText: "₹74,999", URL: "https://www.flipkart.com/y/p/itm2?pid=MOBGX2F3YYYYYYYY"},
	})

	require.Len(t, res.Clusters, 2)
	require.Equal(t, int64(7499900), res.Clusters[0].Best.PriceMinor)
	require.Len(t, res.Clusters[1].Members, 2)
	require.Equal(t, "flipkart", res.Clusters[1].Best.SourceID)
}

func TestSameSourceDistinctOffersDoNotMerge(t *testing.T) {
	t.Parallel()

	agg := New(nil, Options{}, nil)
	res := agg.Aggregate("", []domain.RawListing{
		{SourceID: "a", Title: "Boat Airdopes 141 Bluetooth TWS", PriceText: "1299", URL: "https://a.example.com/1"},
		{SourceID: "a", Title: "Boat Airdopes 141 Bluetooth TWS", PriceText: "1199", URL: "https://a.example.com/2"},
	})
	require.Len(t, res.Clusters, 2)
}

func TestBestTieBreaksOnTrustThenSeq(t *testing.T) {
	t.Parallel()

	agg := New(trustBySource{"low": 40, "high": 80, "high2": 80}, Options{}, nil)
	res := agg.Aggregate("", []domain.RawListing{
		{SourceID: "low", Title: "Kindle Paperwhite 16GB", PriceText: "13999", URL: "https://x.example.com/k"},
		{SourceID: "high", Title: "Kindle Paperwhite 16GB", PriceText: "13999", URL: "https://x.example.com/k"},
		{SourceID: "high2", Title: "Kindle Paperwhite 16GB", PriceText: "13999", URL: "https://x.example.com/k"},
	})
	require.Len(t, res.Clusters, 1)
	require.Equal(t, "high", res.Clusters[0].Best.SourceID)
	require.Equal(t, 80, res.Clusters[0].TrustScore)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 1.0, Similarity("Apple iPhone 15", "apple IPHONE 15"), 1e-9)
	require.Zero(t, Similarity("iPhone 15 Pro", "iPhone 15"))
	require.Zero(t, Similarity("Galaxy S24 256GB", "Galaxy S24 128GB"))
	require.Zero(t, Similarity("Apple iPhone 15 128 GB Black", "Apple iPhone 15 256 GB Black"))
	require.Zero(t, Similarity("", "anything"))
	require.Less(t, Similarity("Sony Bravia 55 inch TV", "LG Washing Machine 7kg"), DefaultThreshold)
}

func TestParseRating(t *testing.T) {
	t.Parallel()

	require.Equal(t, 4.3, parseRating("4.3 out of 5 stars"))
	require.Equal(t, 0.0, parseRating("No reviews"))
	require.Equal(t, 0.0, parseRating("1234 ratings"))
}
