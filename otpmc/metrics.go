// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otpmc

import (
	"context"
	"time"

	"github.com/petenewcomb/pertmc-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func meter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}

// MetricsTask records <metricName>.count, <metricName>.duration (seconds) and
// <metricName>.errors for each execution of taskFunc.
func MetricsTask[T any](
	metricName string,
	taskFunc pertmc.TaskFunc[T],
) pertmc.TaskFunc[T] {
	m := meter()
	count, _ := m.Int64Counter(metricName + ".count")
	duration, _ := m.Float64Histogram(metricName+".duration", metric.WithUnit("s"))
	errors, _ := m.Int64Counter(metricName + ".errors")

	return func(ctx context.Context) (T, error) {
		startTime := time.Now()
		count.Add(ctx, 1)

		result, err := taskFunc(ctx)

		duration.Record(ctx, time.Since(startTime).Seconds())
		if err != nil {
			errors.Add(ctx, 1)
		}
		return result, err
	}
}

// MetricsGather is the gather counterpart of [MetricsTask].
func MetricsGather[T any](
	metricName string,
	gatherFunc pertmc.GatherFunc[T],
) pertmc.GatherFunc[T] {
	m := meter()
	count, _ := m.Int64Counter(metricName + ".count")
	duration, _ := m.Float64Histogram(metricName+".duration", metric.WithUnit("s"))
	errors, _ := m.Int64Counter(metricName + ".errors")

	return func(ctx context.Context, result T, err error) error {
		startTime := time.Now()
		count.Add(ctx, 1)

		gatherErr := gatherFunc(ctx, result, err)

		duration.Record(ctx, time.Since(startTime).Seconds())
		if gatherErr != nil {
			errors.Add(ctx, 1)
		}
		return gatherErr
	}
}

// CountTrials adds each successful worker's trial and success counts to the
// pertmc.trials and pertmc.successes counters.
func CountTrials(taskFunc pertmc.TaskFunc[pertmc.Partial]) pertmc.TaskFunc[pertmc.Partial] {
	m := meter()
	trials, _ := m.Int64Counter("pertmc.trials")
	successes, _ := m.Int64Counter("pertmc.successes")

	return func(ctx context.Context) (pertmc.Partial, error) {
		p, err := taskFunc(ctx)
		if err == nil {
			attrs := metric.WithAttributes(attribute.Int("pertmc.worker", p.Worker))
			trials.Add(ctx, p.Trials, attrs)
			successes.Add(ctx, p.Successes, attrs)
		}
		return p, err
	}
}
