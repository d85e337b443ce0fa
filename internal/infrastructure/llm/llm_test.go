package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
)

func TestHeuristicExtractSpecs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  domain.AttributeMap
	}{
		{
			title: "Samsung Galaxy S24 Ultra 5G (12GB RAM, 256GB Storage) 6.8 inch Dynamic AMOLED 120Hz, Snapdragon 8 Gen 3, 5000mAh, 200MP",
			want: domain.AttributeMap{
				"ram":       "12 GB RAM",
				"storage":   "256 GB Storage",
				"display":   `6.8" Dynamic Amoled 120Hz`,
				"processor": "Snapdragon 8 Gen 3",
				"battery":   "5000 mAh",
				"camera":    "200 MP Main Camera",
			},
		},
		{
			title: "Apple iPhone 15 (128 GB) - Black",
			want:  domain.AttributeMap{"storage": "128 GB Storage"},
		},
		{
			title: "Redmi Note 13 5G",
			want:  domain.AttributeMap{"processor": "5G Supported"},
		},
		{
			title: "Seagate 2TB External HDD",
			want:  domain.AttributeMap{"storage": "2 TB Storage"},
		},
	}

	for _, tc := range cases {
		got, err := Heuristic{}.ExtractSpecs(context.Background(), tc.title)
		require.NoError(t, err)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", tc.title, diff)
		}
	}
}

func TestHeuristicCompare(t *testing.T) {
	t.Parallel()

	left := domain.CanonicalListing{Title: "Phone A 8GB RAM 128GB", PriceMinor: 1999900}
	right := domain.CanonicalListing{Title: "Phone B 8GB RAM 256GB", PriceMinor: 2499900}

	res, err := Heuristic{}.Compare(context.Background(), left, right)
	require.NoError(t, err)
	require.Equal(t, []domain.AttributeDiff{{Name: "storage", Left: "128 GB Storage", Right: "256 GB Storage"}}, res.Differences)
	require.Equal(t, "Phone A 8GB RAM 128GB is cheaper. They differ on storage.", res.Summary)
}

func TestHeuristicCompareReadsBracketedSpecs(t *testing.T) {
	t.Parallel()

	left := domain.CanonicalListing{Title: "Apple iPhone 15 - Black", RawTitle: "Apple iPhone 15 (128 GB) - Black", PriceMinor: 6990000}
	right := domain.CanonicalListing{Title: "Apple iPhone 15 - Black", RawTitle: "Apple iPhone 15 (256 GB) - Black", PriceMinor: 7990000}

	res, err := Heuristic{}.Compare(context.Background(), left, right)
	require.NoError(t, err)
	require.Equal(t, []domain.AttributeDiff{{Name: "storage", Left: "128 GB Storage", Right: "256 GB Storage"}}, res.Differences)
	require.Equal(t, "Apple iPhone 15 (128 GB) - Black is cheaper. They differ on storage.", res.Summary)
}

func chatServer(t *testing.T, replies ...string) *httptest.Server {
	t.Helper()
	calls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply := replies[min(calls, len(replies)-1)]
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
}

func TestChatGPTExtractSpecs(t *testing.T) {
	t.Parallel()

	server := chatServer(t, "```json\n{\"RAM\": \"8 GB\", \"storage\": \"256 GB\", \"battery\": null}\n```")
	defer server.Close()

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "gpt-4o-mini", APIKey: "sk-test"})
	specs, err := client.ExtractSpecs(context.Background(), "Some phone")
	require.NoError(t, err)
	require.Equal(t, domain.AttributeMap{"ram": "8 GB", "storage": "256 GB"}, specs)
}

func TestChatGPTCompare(t *testing.T) {
	t.Parallel()

	server := chatServer(t, `{"ram": "8 GB"}`, `{"ram": "12 GB"}`, "B is faster.")
	defer server.Close()

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "m", APIKey: "sk-test"})
	res, err := client.Compare(context.Background(), domain.CanonicalListing{Title: "A"}, domain.CanonicalListing{Title: "B"})
	require.NoError(t, err)
	require.Equal(t, "B is faster.", res.Summary)
	require.Equal(t, []domain.AttributeDiff{{Name: "ram", Left: "8 GB", Right: "12 GB"}}, res.Differences)
}

func TestChatGPTErrors(t *testing.T) {
	t.Parallel()

	server := chatServer(t, "not json")
	defer server.Close()

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "m", APIKey: "sk-test"})
	_, err := client.ExtractSpecs(context.Background(), "x")
	require.True(t, errors.Is(err, domain.ErrParseFailure))

	bad := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "m", APIKey: "wrong"})
	_, err = bad.ExtractSpecs(context.Background(), "x")
	require.ErrorContains(t, err, "401")

	require.False(t, NewChatGPTClient(config.ChatGPTConfig{}).Configured())
}

func TestFallbackUsesSecondaryOnError(t *testing.T) {
	t.Parallel()

	primary := NewChatGPTClient(config.ChatGPTConfig{})
	f := NewFallback(primary, Heuristic{}, nil)

	specs, err := f.ExtractSpecs(context.Background(), "Pixel 8 8GB RAM Tensor G3")
	require.NoError(t, err)
	require.Equal(t, "Tensor G3", specs["processor"])

	res, err := f.Compare(context.Background(), domain.CanonicalListing{Title: "a 64gb"}, domain.CanonicalListing{Title: "b 64gb"})
	require.NoError(t, err)
	require.Empty(t, res.Differences)
}
