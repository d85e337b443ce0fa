package canonical

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		raw    string
		want   string
		wantID string
	}{
		{
			name:   "amazon product with tracking",
			raw:    "https://www.Amazon.in/Apple-iPhone-15-128-GB/dp/B0CHX1W1XY/ref=sr_1_1?crid=2X&keywords=iphone&qid=1700&sr=8-1",
			want:   "https://www.amazon.in/dp/B0CHX1W1XY",
			wantID: "B0CHX1W1XY",
		},
		{
			name:   "amazon gp product",
			raw:    "https://www.amazon.com/gp/product/B08N5WRWNW?psc=1",
			want:   "https://www.amazon.com/dp/B08N5WRWNW",
			wantID: "B08N5WRWNW",
		},
		{
			name:   "flipkart pid",
			raw:    "https://www.flipkart.com/apple-iphone-15/p/itm6ac6485515ae4?pid=MOBGTAGPTB3VS24W&lid=LSTMOB&marketplace=FLIPKART",
			want:   "https://www.flipkart.com/apple-iphone-15/p/itm6ac6485515ae4?pid=MOBGTAGPTB3VS24W",
			wantID: "MOBGTAGPTB3VS24W",
		},
		{
			name: "generic strips tracking and fragment",
			raw:  "https://shop.example.com/item/42?color=red&utm_source=mail&ref=abc&size=m#reviews",
			want: "https://shop.example.com/item/42?color=red&size=m",
		},
		{
			name: "relative keeps path and query",
			raw:  "/item/42?tag=aff-21&id=7",
			want: "/item/42?id=7",
		},
		{
			name: "control character in tracking param",
			raw:  "http://Shop.Example.COM/item?utm_source=\x01",
			want: "http://shop.example.com/item",
		},
		{
			name:   "control character behind amazon path",
			raw:    "https://www.amazon.in/Apple-iPhone/dp/B0CHX1W1XY/ref=sr_1?tag=\x01",
			want:   "https://www.amazon.in/dp/B0CHX1W1XY",
			wantID: "B0CHX1W1XY",
		},
		{
			name: "empty",
			raw:  "   ",
			want: "",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, id := CanonicalizeURL(tc.raw)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.wantID, id)
		})
	}
}

func TestCanonicalizeURLIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://www.amazon.in/Apple-iPhone-15/dp/B0CHX1W1XY/ref=sr_1_1?qid=1",
		"https://www.flipkart.com/x?pid=MOBGTAGPTB3VS24W&lid=1",
		"HTTP://Example.COM/a%20b/?utm_medium=x&q=1&&ref_=y",
		"//cdn.example.com/p?q=1",
		"http://[::1",
		"http://[::1?ref=x&keep=1",
		"HTTP://Host.COM/p#%zz",
		"/path#%zz",
		"mailto:someone@example.com?ref=1",
		"http://x/%zz?sr=1",
		"https://example.com/p?a=b &ref=1",
		"::::",
		"%",
		"http://Shop.Example.COM/item?utm_source=\x01",
		"https://www.amazon.in/Apple-iPhone/dp/B0CHX1W1XY/ref=sr_1?tag=\x01",
		"HTTP://Shop.COM/a\x7f?q=1",
		"http://Shop.COM/a?k=\x01&gclid=2#frag",
	}

	for _, in := range inputs {
		once, id1 := CanonicalizeURL(in)
		twice, id2 := CanonicalizeURL(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
		again, id3 := CanonicalizeURL(in)
		if again != once || id3 != id1 {
			t.Fatalf("not deterministic for %q", in)
		}
		if id1 != "" && id2 != id1 {
			t.Fatalf("product id changed for %q: %q then %q", in, id1, id2)
		}
	}
}

func TestCanonicalizeTitle(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"Apple iPhone 15 (Blue, 128 GB) | Free Delivery", "Apple iPhone 15"},
		{"  Samsung   Galaxy S24 [Renewed]  ", "Samsung Galaxy S24"},
		{"- Sony WH-1000XM5, ", "Sony WH-1000XM5"},
		{"LG 55\" OLED TV ((Nested) Sale)", "LG 55\" OLED TV"},
		{"OnePlus 12 (Unbalanced", "OnePlus 12 (Unbalanced"},
		{"", ""},
	}

	for _, tc := range cases {
		in, want := tc.in, tc.want
		got := CanonicalizeTitle(in)
		if got != want {
			t.Fatalf("CanonicalizeTitle(%q) = %q, want %q", in, got, want)
		}
		if again := CanonicalizeTitle(got); again != got {
			t.Fatalf("CanonicalizeTitle not idempotent for %q: %q then %q", in, got, again)
		}
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()

	got := Tokens("The Apple iPhone 15 Pro with 5G & A17 chip - Edition X")
	want := []string{"apple", "iphone", "15", "pro", "5g", "a17", "chip"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, []string{"iphone", "15", "128gb", "black"}, Tokens("iPhone 15 (128 GB) - Black"))
	require.Equal(t, []string{"ssd", "1tb", "ram", "16gb"}, Tokens("SSD 1 TB, RAM 16GB"))

	require.Equal(t, "15 apple iphone", TokenKey([]string{"iphone", "apple", "15", "apple"}))
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"₹1,299.00", 129900, true},
		{"Rs. 1,299", 129900, true},
		{"$19.99", 1999, true},
		{"₹74,999 ₹79,900 (6% off)", 7499900, true},
		{"1.299.00", 129900, true},
		{"12.", 1200, true},
		{"0.005", 1, true},
		{"Contact seller", 0, false},
		{"", 0, false},
		{"₹", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParsePrice(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParsePrice(%q) = (%d, %v), want (%d, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormatMinor(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1299.00", FormatMinor(129900))
	require.Equal(t, "0.05", FormatMinor(5))
}
