// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"context"
	"fmt"
	"time"

	"github.com/petenewcomb/pertmc-go/internal/state"
	"go.uber.org/zap"
)

// An Option customizes [Simulate].
type Option func(*options)

type options struct {
	logger     *zap.Logger
	reducer    Reducer
	wrapTask   func(TaskFunc[Partial]) TaskFunc[Partial]
	wrapGather func(GatherFunc[Partial]) GatherFunc[Partial]
}

// WithLogger sets the logger for stage transitions and worker completion.
// The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReducer replaces the default [AtomicReducer].
func WithReducer(r Reducer) Option {
	return func(o *options) {
		o.reducer = r
	}
}

// WithTaskWrapper decorates each worker's task function, for instance with
// logging, metrics, or tracing.
func WithTaskWrapper(wrap func(TaskFunc[Partial]) TaskFunc[Partial]) Option {
	return func(o *options) {
		o.wrapTask = wrap
	}
}

// WithGatherWrapper decorates the function that gathers each worker's result.
func WithGatherWrapper(wrap func(GatherFunc[Partial]) GatherFunc[Partial]) Option {
	return func(o *options) {
		o.wrapGather = wrap
	}
}

// Simulate estimates the probability that model's total duration meets
// cfg.Deadline using cfg.Workers workers in shared memory.
//
// The run moves strictly through init, sampling, reducing and reporting.
// Invalid input is rejected during init with an error matching
// [ErrConfiguration]; nothing is sampled in that case. Any worker failure
// aborts the run and no Estimate is returned.
func Simulate(ctx context.Context, cfg Config, model *Model, opts ...Option) (*Estimate, error) {
	o := options{
		logger:  zap.NewNop(),
		reducer: &AtomicReducer{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	var lc state.Lifecycle
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, configErrorf("tasks", "model must be non-nil")
	}
	start := time.Now()

	lc.Advance(state.StageSampling)
	job := NewJob(ctx)
	defer job.CancelAndWait()
	pool := NewTaskPool(job, cfg.Workers)
	log.Debug("stage", zap.Stringer("stage", lc.Current()),
		zap.Int64("trials", cfg.Trials), zap.Int("workers", pool.Limit()), zap.Int("tasks", model.Len()))

	partials := make([]Partial, 0, cfg.Workers)
	gather := func(ctx context.Context, p Partial, err error) error {
		if err != nil {
			return fmt.Errorf("worker %d: %w", p.Worker, err)
		}
		log.Debug("worker done", zap.Int("worker", p.Worker),
			zap.Int64("trials", p.Trials), zap.Int64("successes", p.Successes), zap.Duration("elapsed", p.Elapsed))
		partials = append(partials, p)
		return nil
	}
	if o.wrapGather != nil {
		gather = o.wrapGather(gather)
	}

	for _, span := range Partition(cfg.Trials, cfg.Workers) {
		task := func(ctx context.Context) (Partial, error) {
			p, err := RunWorker(ctx, model, cfg, span)
			if err != nil {
				return p, err
			}
			// The single combine step for this worker.
			return p, o.reducer.Contribute(ctx, p)
		}
		if o.wrapTask != nil {
			task = o.wrapTask(task)
		}
		if err := Scatter(ctx, pool, task, gather); err != nil {
			return nil, err
		}
	}
	if err := job.GatherAll(ctx); err != nil {
		return nil, err
	}

	lc.Advance(state.StageReducing)
	log.Debug("stage", zap.Stringer("stage", lc.Current()))
	total, err := o.reducer.Total(ctx)
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	if err := total.Verify(cfg.Trials); err != nil {
		return nil, err
	}

	lc.Advance(state.StageReporting)
	est := NewEstimate(ModeShared, cfg, total, time.Since(start), partials)
	log.Info("estimate", zap.Int64("trials", est.Trials), zap.Int64("successes", est.Successes),
		zap.Float64("probability", est.Probability), zap.Duration("elapsed", est.Elapsed))

	lc.Advance(state.StageDone)
	return est, nil
}
