package usecase

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("priceradar/usecase")
	meter  = otel.Meter("priceradar/usecase")

	sourceFailures  = counter("priceradar.discovery.source_failures", "Retailer fetches that failed or timed out.")
	droppedListings = counter("priceradar.aggregate.dropped_listings", "Raw listings discarded before clustering.")
	dropsFired      = counter("priceradar.alerts.drops_fired", "Monitors moved to triggered after a notified price drop.")
	checkFailures   = counter("priceradar.alerts.check_failures", "Monitor evaluations that could not obtain a price.")
)

func counter(name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
	}
	return c
}
