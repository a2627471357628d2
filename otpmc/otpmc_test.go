// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otpmc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/petenewcomb/pertmc-go"
	"github.com/petenewcomb/pertmc-go/otpmc"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func installTracer(t *testing.T) *tracetest.SpanRecorder {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr
}

func installMeter(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader
}

func installLogger(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zap.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	return logs
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestLoggedTask(t *testing.T) {
	chk := require.New(t)
	logs := installLogger(t)

	boom := errors.New("boom")
	task := otpmc.LoggedTask("op", func(context.Context) (int, error) { return 7, nil })
	v, err := task(context.Background())
	chk.NoError(err)
	chk.Equal(7, v)

	failing := otpmc.LoggedTask("op", func(context.Context) (int, error) { return 0, boom })
	_, err = failing(context.Background())
	chk.ErrorIs(err, boom)

	chk.Equal(2, logs.FilterMessage("starting task").Len())
	chk.Equal(1, logs.FilterMessage("task completed").Len())
	failed := logs.FilterMessage("task failed").All()
	chk.Len(failed, 1)
	chk.Equal(zap.ErrorLevel, failed[0].Level)
	chk.Equal("op", failed[0].ContextMap()["operation"])
}

func TestLoggedGather(t *testing.T) {
	chk := require.New(t)
	logs := installLogger(t)

	gather := otpmc.LoggedGather("op", func(_ context.Context, _ int, err error) error { return err })
	chk.NoError(gather(context.Background(), 1, nil))
	chk.Error(gather(context.Background(), 1, errors.New("input")))
	chk.Equal(1, logs.FilterMessage("gather completed").Len())
	chk.Equal(1, logs.FilterMessage("gather failed").Len())
}

func TestMetricsTask(t *testing.T) {
	chk := require.New(t)
	reader := installMeter(t)

	ok := otpmc.MetricsTask("unit", func(context.Context) (int, error) { return 1, nil })
	bad := otpmc.MetricsTask("unit", func(context.Context) (int, error) { return 0, errors.New("x") })
	for range 3 {
		_, _ = ok(context.Background())
	}
	_, _ = bad(context.Background())

	chk.Equal(int64(4), sumOf(t, reader, "unit.count"))
	chk.Equal(int64(1), sumOf(t, reader, "unit.errors"))
}

func TestTracedTaskRecordsError(t *testing.T) {
	chk := require.New(t)
	sr := installTracer(t)

	boom := errors.New("boom")
	task := otpmc.TracedTask("failing", func(context.Context) (int, error) { return 0, boom })
	_, err := task(context.Background())
	chk.ErrorIs(err, boom)

	spans := sr.Ended()
	chk.Len(spans, 1)
	chk.Equal("failing", spans[0].Name())
	chk.Equal(codes.Error, spans[0].Status().Code)
}

func TestSimulateInstrumented(t *testing.T) {
	chk := require.New(t)
	sr := installTracer(t)
	reader := installMeter(t)
	logs := installLogger(t)

	cfg := pertmc.Config{Trials: 10_000, Deadline: 38, Workers: 4, Seed: 1}
	est, err := otpmc.Simulate(context.Background(), cfg, pertmc.DefaultModel())
	chk.NoError(err)

	plain, err := pertmc.Simulate(context.Background(), cfg, pertmc.DefaultModel())
	chk.NoError(err)
	chk.Equal(plain.Successes, est.Successes, "instrumentation must not perturb the result")

	var root sdktrace.ReadOnlySpan
	var workers, gathers int
	for _, s := range sr.Ended() {
		switch s.Name() {
		case "pertmc.simulate":
			root = s
		case "pertmc.worker":
			workers++
		case "pertmc.gather":
			gathers++
		}
	}
	chk.NotNil(root)
	chk.Equal(4, workers)
	chk.Equal(4, gathers)
	for _, s := range sr.Ended() {
		if s.Name() != "pertmc.simulate" {
			chk.Equal(root.SpanContext().TraceID(), s.SpanContext().TraceID())
		}
	}
	chk.Contains(root.Attributes(), attribute.Int64("pertmc.successes", est.Successes))

	chk.Equal(int64(10_000), sumOf(t, reader, "pertmc.trials"))
	chk.Equal(est.Successes, sumOf(t, reader, "pertmc.successes"))
	chk.Equal(int64(4), sumOf(t, reader, "pertmc.worker.count"))
	chk.Equal(4, logs.FilterMessage("task completed").Len())
}

func TestSimulateInstrumentedError(t *testing.T) {
	chk := require.New(t)
	sr := installTracer(t)

	_, err := otpmc.Simulate(context.Background(), pertmc.Config{Trials: 0, Workers: 1}, pertmc.DefaultModel())
	chk.ErrorIs(err, pertmc.ErrConfiguration)
	spans := sr.Ended()
	chk.Len(spans, 1)
	chk.Equal(codes.Error, spans[0].Status().Code)
}
