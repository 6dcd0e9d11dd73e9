// Package telemetry provides OpenTelemetry instrumentation for photofeed.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FeedMetricsMeterName is the name used for the feed sync metrics meter
	FeedMetricsMeterName = "github.com/stacklok/photofeed/feed"

	// SubmissionMetricsMeterName is the name used for the post submission metrics meter
	SubmissionMetricsMeterName = "github.com/stacklok/photofeed/submission"
)

// FeedMetrics holds the OpenTelemetry instruments for feed synchronization
type FeedMetrics struct {
	syncDuration  metric.Float64Histogram
	postsTotal    metric.Int64Gauge
	assetFailures metric.Int64Counter
}

// NewFeedMetrics creates a new FeedMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewFeedMetrics(provider metric.MeterProvider) (*FeedMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FeedMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"photofeed_sync_duration_seconds",
		metric.WithDescription("Duration of feed sync operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	postsTotal, err := meter.Int64Gauge(
		"photofeed_posts_total",
		metric.WithDescription("Number of posts delivered by the last feed sync"),
		metric.WithUnit("{post}"),
	)
	if err != nil {
		return nil, err
	}

	assetFailures, err := meter.Int64Counter(
		"photofeed_asset_failures_total",
		metric.WithDescription("Number of posts dropped because their image could not be resolved"),
		metric.WithUnit("{post}"),
	)
	if err != nil {
		return nil, err
	}

	return &FeedMetrics{
		syncDuration:  syncDuration,
		postsTotal:    postsTotal,
		assetFailures: assetFailures,
	}, nil
}

// RecordSync records the outcome of one feed sync. outcome is the terminal sync phase.
func (m *FeedMetrics) RecordSync(
	ctx context.Context, collection string, duration time.Duration, outcome string, posts, failures int,
) {
	if m == nil {
		return
	}

	collectionAttr := attribute.String("collection", collection)

	if m.syncDuration != nil {
		m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			collectionAttr,
			attribute.String("outcome", outcome),
		))
	}
	if m.postsTotal != nil && outcome != "Failed" {
		m.postsTotal.Record(ctx, int64(posts), metric.WithAttributes(collectionAttr))
	}
	if m.assetFailures != nil && failures > 0 {
		m.assetFailures.Add(ctx, int64(failures), metric.WithAttributes(collectionAttr))
	}
}

// SubmissionMetrics holds the OpenTelemetry instruments for post submissions
type SubmissionMetrics struct {
	submissions metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewSubmissionMetrics creates a new SubmissionMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSubmissionMetrics(provider metric.MeterProvider) (*SubmissionMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SubmissionMetricsMeterName)

	submissions, err := meter.Int64Counter(
		"photofeed_submissions_total",
		metric.WithDescription("Number of post submissions by result"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"photofeed_submission_duration_seconds",
		metric.WithDescription("Duration of post submissions in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	return &SubmissionMetrics{
		submissions: submissions,
		duration:    duration,
	}, nil
}

// RecordSubmission records one submission. result is "success" or the failure kind.
func (m *SubmissionMetrics) RecordSubmission(ctx context.Context, duration time.Duration, result string) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("result", result))
	if m.submissions != nil {
		m.submissions.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), attrs)
	}
}
