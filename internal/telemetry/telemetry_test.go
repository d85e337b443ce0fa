package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"PriceRadar/internal/config"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestNewResourceCarriesServiceName(t *testing.T) {
	t.Parallel()

	r, err := newResource("priceradar-test")
	require.NoError(t, err)

	found := false
	for _, kv := range r.Attributes() {
		if kv.Key == "service.name" && kv.Value.AsString() == "priceradar-test" {
			found = true
		}
	}
	require.True(t, found)
}
