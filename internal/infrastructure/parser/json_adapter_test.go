package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/retailer"
)

const searchResponse = `{
  "searchresult": [
    {
      "productname": "Apple iPhone 15 (128 GB) - Black",
      "price": {"sellingPrice": {"value": 65999}, "value": 69900},
      "webURL": "/apple-iphone-15/p-MP000000019212345",
      "imageURL": "//img.example.com/iphone.jpg",
      "averageRating": 4.4
    },
    {
      "productname": "",
      "price": {"value": "1,299"},
      "webURL": "/untitled"
    },
    {
      "productname": "Samsung Galaxy S24",
      "price": {"value": "74,999"},
      "webURL": "https://other.example.com/s24",
      "seller": {"name": "  Retail   Net "}
    }
  ]
}`

func jsonSite(searchURL string) config.SiteConfig {
	return config.SiteConfig{
		Name:      "api",
		Kind:      config.KindJSON,
		SearchURL: searchURL,
		Timeout:   2 * time.Second,
		Fields: config.FieldConfig{
			Items:  "searchresult",
			Title:  "productname",
			Price:  "price.sellingPrice.value|price.value",
			Link:   "webURL",
			Image:  "imageURL",
			Seller: "seller.name",
			Rating: "averageRating",
		},
	}
}

func TestJSONAdapterFetch(t *testing.T) {
	t.Parallel()

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponse))
	}))
	defer server.Close()

	adapter, err := NewJSONAdapter(jsonSite(server.URL+"/search?q={query}"), nil)
	if err != nil {
		t.Fatalf("NewJSONAdapter: %v", err)
	}

	listings, err := adapter.Fetch(context.Background(), retailer.Request{Query: "iphone 15"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if gotQuery != "iphone 15" {
		t.Fatalf("unexpected query sent: %q", gotQuery)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.Title != "Apple iPhone 15 (128 GB) - Black" || first.PriceText != "65999" || first.RatingText != "4.4" {
		t.Fatalf("unexpected fields: %+v", first)
	}
	if first.URL != server.URL+"/apple-iphone-15/p-MP000000019212345" {
		t.Fatalf("relative link not resolved: %s", first.URL)
	}
	if first.ImageURL != "http://img.example.com/iphone.jpg" {
		t.Fatalf("scheme-relative image not resolved: %s", first.ImageURL)
	}
	if first.SourceID != "api" || first.FetchedAt.IsZero() {
		t.Fatalf("source metadata missing: %+v", first)
	}

	second := listings[1]
	if second.PriceText != "74,999" || second.Seller != "Retail Net" || second.URL != "https://other.example.com/s24" {
		t.Fatalf("fallback path or nested field not read: %+v", second)
	}
}

func TestJSONAdapterErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusBadGateway, body: `{}`, want: domain.ErrSourceUnavailable},
		{name: "not json", status: http.StatusOK, body: `<html>captcha</html>`, want: domain.ErrParseFailure},
		{name: "items not an array", status: http.StatusOK, body: `{"searchresult": {"total": 0}}`, want: domain.ErrParseFailure},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			adapter, err := NewJSONAdapter(jsonSite(server.URL+"/search?q={query}"), nil)
			if err != nil {
				t.Fatalf("NewJSONAdapter: %v", err)
			}
			if _, err := adapter.Fetch(context.Background(), retailer.Request{Query: "tv"}); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestJSONAdapterMissingItemsIsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"searchresult": null}`))
	}))
	defer server.Close()

	adapter, err := NewJSONAdapter(jsonSite(server.URL+"/search?q={query}"), nil)
	if err != nil {
		t.Fatalf("NewJSONAdapter: %v", err)
	}
	listings, err := adapter.Fetch(context.Background(), retailer.Request{Query: "tv"})
	if err != nil || len(listings) != 0 {
		t.Fatalf("expected no listings and no error, got %d, %v", len(listings), err)
	}

	if _, err := NewJSONAdapter(config.SiteConfig{Name: "bare", Kind: config.KindJSON, SearchURL: server.URL}, nil); err == nil {
		t.Fatalf("json site without field paths should fail")
	}
}

// proxyServer answers every proxied request itself and records the host the
// client asked for.
func proxyServer(t *testing.T, body string, hosts chan<- string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts <- r.Host
		_, _ = w.Write([]byte(body))
	}))
}

func TestSitesFetchThroughProxy(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		hosts := make(chan string, 1)
		proxy := proxyServer(t, searchResponse, hosts)
		defer proxy.Close()

		site := jsonSite("http://api.shop.invalid/search?q={query}")
		site.Proxy = proxy.URL
		adapter, err := NewJSONAdapter(site, nil)
		if err != nil {
			t.Fatalf("NewJSONAdapter: %v", err)
		}
		listings, err := adapter.Fetch(context.Background(), retailer.Request{Query: "iphone"})
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
		if host := <-hosts; host != "api.shop.invalid" {
			t.Fatalf("proxy saw host %q", host)
		}
		if len(listings) != 2 || listings[0].URL != "http://api.shop.invalid/apple-iphone-15/p-MP000000019212345" {
			t.Fatalf("unexpected listings: %+v", listings)
		}
	})

	t.Run("html", func(t *testing.T) {
		t.Parallel()
		hosts := make(chan string, 1)
		proxy := proxyServer(t, searchPage, hosts)
		defer proxy.Close()

		site := testSite("http://www.shop.invalid/search?q={query}")
		site.Proxy = proxy.URL
		adapter, err := NewHTMLAdapter(site, nil)
		if err != nil {
			t.Fatalf("NewHTMLAdapter: %v", err)
		}
		listings, err := adapter.Fetch(context.Background(), retailer.Request{Query: "iphone"})
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
		if host := <-hosts; host != "www.shop.invalid" {
			t.Fatalf("proxy saw host %q", host)
		}
		if len(listings) != 2 {
			t.Fatalf("expected 2 listings, got %d", len(listings))
		}
	})
}
