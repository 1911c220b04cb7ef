package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const ServiceName = "blog"

// Metrics holds the counters the services report into.
type Metrics struct {
	ViewsRecorded        metric.Int64Counter
	ViewsRateLimited     metric.Int64Counter
	ViewsFailed          metric.Int64Counter
	CommentsDeleted      metric.Int64Counter
	ImageCleanupFailures metric.Int64Counter
	FeedItemsIngested    metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.ViewsRecorded, "blog.views.recorded", "Accepted view increments"},
		{&m.ViewsRateLimited, "blog.views.rate_limited", "View requests dropped by the window limiter"},
		{&m.ViewsFailed, "blog.views.failed", "View increments that failed in the limiter or the store"},
		{&m.CommentsDeleted, "blog.comments.deleted", "Comments deleted together with their replies"},
		{&m.ImageCleanupFailures, "blog.comments.image_cleanup_failures", "Comment image files that could not be removed"},
		{&m.FeedItemsIngested, "blog.feed.items_ingested", "Posts created from RSS items"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

// Nop returns counters that discard every measurement.
func Nop() *Metrics {
	m, _ := New(noop.NewMeterProvider().Meter(ServiceName))
	return m
}

// Provider owns the SDK meter provider and its Prometheus registry.
type Provider struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

func NewProvider() (*Provider, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("init prometheus exporter: %w", err)
	}
	return &Provider{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
		registry: registry,
	}, nil
}

func (p *Provider) Meter() metric.Meter {
	return p.provider.Meter(ServiceName)
}

// Handler serves the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
