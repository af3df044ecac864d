package shelf

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/simp-lee/epubcover/shelf"

// outcomeFound is the resolution outcome recorded for a successful lookup.
const outcomeFound = "found"

// Metrics holds the cover loading OpenTelemetry instruments.
type Metrics struct {
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	resolutions     metric.Int64Counter
	resolveDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	cacheHits, err := meter.Int64Counter(
		"epubshelf.cover.cache.hits",
		metric.WithDescription("Covers served from the cover cache"),
		metric.WithUnit("{cover}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"epubshelf.cover.cache.misses",
		metric.WithDescription("Cover lookups not satisfied by the cover cache"),
		metric.WithUnit("{cover}"),
	)
	if err != nil {
		return nil, err
	}

	resolutions, err := meter.Int64Counter(
		"epubshelf.cover.resolutions",
		metric.WithDescription("Cover resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, err
	}

	resolveDuration, err := meter.Float64Histogram(
		"epubshelf.cover.resolve.duration",
		metric.WithDescription("Time to read and resolve one ePub cover"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		resolutions:     resolutions,
		resolveDuration: resolveDuration,
	}, nil
}

func (m *Metrics) recordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

func (m *Metrics) recordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1)
}

func (m *Metrics) recordResolution(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.resolutions.Add(ctx, 1, attrs)
	m.resolveDuration.Record(ctx, d.Seconds(), attrs)
}
