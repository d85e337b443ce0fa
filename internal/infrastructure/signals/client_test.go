package signals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
)

func TestSignals(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Amazon": {"returnRate": 0.12, "complaints": 40}, "snapdeal": {"returnRate": 0.3}}`))
	}))
	defer server.Close()

	got, err := NewClient(config.SignalsConfig{URL: server.URL, APIKey: "key"}).Signals(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]domain.TrustSignals{
		"amazon":   {ReturnRate: 0.12, Complaints: 40},
		"snapdeal": {ReturnRate: 0.3},
	}, got)

	_, err = NewClient(config.SignalsConfig{URL: server.URL}).Signals(context.Background())
	require.ErrorContains(t, err, "403")
}

func TestSignalsRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.SignalsConfig{}).Signals(context.Background())
	require.Error(t, err)
}
