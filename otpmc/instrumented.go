// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otpmc

import (
	"context"

	"github.com/petenewcomb/pertmc-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedTask applies logging, metrics and tracing to taskFunc, with
// tracing outermost so the log and metric calls happen inside the span.
func InstrumentedTask[T any](
	operationName string,
	taskFunc pertmc.TaskFunc[T],
) pertmc.TaskFunc[T] {
	return TracedTask(operationName, MetricsTask(operationName, LoggedTask(operationName, taskFunc)))
}

// InstrumentedGather is the gather counterpart of [InstrumentedTask].
func InstrumentedGather[T any](
	operationName string,
	gatherFunc pertmc.GatherFunc[T],
) pertmc.GatherFunc[T] {
	return TracedGather(operationName, MetricsGather(operationName, LoggedGather(operationName, gatherFunc)))
}

// Options returns the [pertmc.Option] values that instrument every worker
// task as "pertmc.worker" and every gather as "pertmc.gather".
func Options() []pertmc.Option {
	return []pertmc.Option{
		pertmc.WithTaskWrapper(func(task pertmc.TaskFunc[pertmc.Partial]) pertmc.TaskFunc[pertmc.Partial] {
			return InstrumentedTask("pertmc.worker", annotateWorker(CountTrials(task)))
		}),
		pertmc.WithGatherWrapper(func(gather pertmc.GatherFunc[pertmc.Partial]) pertmc.GatherFunc[pertmc.Partial] {
			return InstrumentedGather("pertmc.gather", gather)
		}),
	}
}

// Simulate runs [pertmc.Simulate] under a "pertmc.simulate" span with full
// instrumentation. Options in opts are applied after the instrumentation
// options and so take precedence.
func Simulate(
	ctx context.Context,
	cfg pertmc.Config,
	model *pertmc.Model,
	opts ...pertmc.Option,
) (*pertmc.Estimate, error) {
	ctx, span := tracer().Start(ctx, "pertmc.simulate", trace.WithAttributes(
		attribute.Int64("pertmc.trials", cfg.Trials),
		attribute.Int("pertmc.workers", cfg.Workers),
		attribute.Float64("pertmc.deadline", cfg.Deadline)))
	defer span.End()

	est, err := pertmc.Simulate(ctx, cfg, model, append(Options(), opts...)...)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("pertmc.successes", est.Successes),
		attribute.Float64("pertmc.probability", est.Probability))
	return est, nil
}
