// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otpmc

import (
	"context"
	"io"

	"github.com/petenewcomb/pertmc-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// TracedTask runs taskFunc inside a span named operationName.
func TracedTask[T any](
	operationName string,
	taskFunc pertmc.TaskFunc[T],
) pertmc.TaskFunc[T] {
	return func(ctx context.Context) (T, error) {
		ctx, span := tracer().Start(ctx, operationName)
		defer span.End()

		result, err := taskFunc(ctx)
		recordError(span, err)
		return result, err
	}
}

// TracedGather runs gatherFunc inside a span named operationName.
func TracedGather[T any](
	operationName string,
	gatherFunc pertmc.GatherFunc[T],
) pertmc.GatherFunc[T] {
	return func(ctx context.Context, result T, err error) error {
		ctx, span := tracer().Start(ctx, operationName,
			trace.WithAttributes(attribute.Bool("input_has_error", err != nil)))
		defer span.End()

		gatherErr := gatherFunc(ctx, result, err)
		recordError(span, gatherErr)
		return gatherErr
	}
}

// annotateWorker tags the enclosing span with the worker's counts.
func annotateWorker(taskFunc pertmc.TaskFunc[pertmc.Partial]) pertmc.TaskFunc[pertmc.Partial] {
	return func(ctx context.Context) (pertmc.Partial, error) {
		p, err := taskFunc(ctx)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("pertmc.worker", p.Worker),
			attribute.Int64("pertmc.trials", p.Trials),
			attribute.Int64("pertmc.successes", p.Successes))
		return p, err
	}
}

// SetupTracing installs a global tracer provider that writes finished spans
// to w as JSON. The returned function flushes and shuts the provider down.
func SetupTracing(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
