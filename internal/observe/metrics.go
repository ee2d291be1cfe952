// Package observe provides OpenTelemetry metric instruments for the decoder.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) backed by
// the global meter provider is available for convenience; tests should use
// [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/ieee0824/ctcdecode"

// Metrics holds the metric instruments recorded by the decoder.
// All fields are safe for concurrent use.
type Metrics struct {
	// DecodeDuration tracks the wall time of one utterance decode.
	DecodeDuration metric.Float64Histogram

	// Decodes counts decode calls. Use with attribute.String("status", ...).
	Decodes metric.Int64Counter

	// DecodedFrames counts emission frames consumed by the beam search.
	DecodedFrames metric.Int64Counter

	// DecodedWords counts words in the top hypothesis.
	DecodedWords metric.Int64Counter

	// PrunedHypotheses counts candidates dropped by threshold or beam-size pruning.
	PrunedHypotheses metric.Int64Counter
}

// decodeBuckets are histogram boundaries in seconds.
var decodeBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DecodeDuration, err = m.Float64Histogram("ctcdecode.decode.duration",
		metric.WithDescription("Latency of one beam-search decode."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(decodeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Decodes, err = m.Int64Counter("ctcdecode.decodes",
		metric.WithDescription("Number of decode calls."),
	); err != nil {
		return nil, err
	}
	if met.DecodedFrames, err = m.Int64Counter("ctcdecode.decode.frames",
		metric.WithDescription("Emission frames consumed by the beam search."),
	); err != nil {
		return nil, err
	}
	if met.DecodedWords, err = m.Int64Counter("ctcdecode.decode.words",
		metric.WithDescription("Words emitted by the best hypothesis."),
	); err != nil {
		return nil, err
	}
	if met.PrunedHypotheses, err = m.Int64Counter("ctcdecode.decode.pruned",
		metric.WithDescription("Candidate hypotheses discarded by beam pruning."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call from [otel.GetMeterProvider].
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// DecodeStats is the per-utterance summary recorded by [Metrics.RecordDecode].
type DecodeStats struct {
	Frames   int
	Words    int
	Pruned   int
	Duration time.Duration
	Status   string
}

// RecordDecode records one finished decode.
func (m *Metrics) RecordDecode(ctx context.Context, s DecodeStats) {
	status := metric.WithAttributes(attribute.String("status", s.Status))
	m.Decodes.Add(ctx, 1, status)
	m.DecodeDuration.Record(ctx, s.Duration.Seconds(), status)
	m.DecodedFrames.Add(ctx, int64(s.Frames))
	m.DecodedWords.Add(ctx, int64(s.Words))
	m.PrunedHypotheses.Add(ctx, int64(s.Pruned))
}
