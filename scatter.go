// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"context"
)

// A TaskFunc runs asynchronously in its own goroutine and returns a result of
// type T. It must be thread-safe with respect to anything it captures. If a
// TaskFunc panics the whole program terminates.
//
// A TaskFunc must not call [Scatter] on its own job; doing so could deadlock
// once the pool is full. Scatter follow-on work from the [GatherFunc] instead.
type TaskFunc[T any] = func(context.Context) (T, error)

// A GatherFunc processes the result of a completed [TaskFunc]. Gather
// functions run sequentially in the goroutine that is scattering or
// gathering, so they may freely mutate that goroutine's state. A non-nil
// return aborts the surrounding [Job.GatherAll] or [Scatter].
type GatherFunc[T any] = func(context.Context, T, error) error

// Scatter launches taskFunc into pool and arranges for gatherFunc to receive
// its result during a later call to Scatter, [Job.GatherOne], or
// [Job.GatherAll]. If the pool is full, Scatter gathers completed results
// until a slot frees up.
//
// Scatter returns a non-nil error if ctx or the job is canceled or if a
// gather function run while making room returns an error; in that case
// taskFunc is not launched and gatherFunc will not be called.
func Scatter[T any](
	ctx context.Context,
	pool *TaskPool,
	taskFunc TaskFunc[T],
	gatherFunc GatherFunc[T],
) error {
	if taskFunc == nil {
		panic("task function must be non-nil")
	}
	if gatherFunc == nil {
		panic("gather function must be non-nil")
	}
	if pool == nil {
		panic("pool must be non-nil")
	}
	j := pool.job
	if j.isTaskContext(ctx) {
		panic("Scatter called from within TaskFunc; move call to GatherFunc instead")
	}

	// Register with the job before launching so concurrent gathers wait for
	// this task; back the registration out if launch fails.
	j.inFlight.Increment()
	launched := false
	defer func() {
		if !launched {
			j.decrementInFlight()
		}
	}()

	err := pool.launch(ctx, func(ctx context.Context) {
		value, err := taskFunc(ctx)

		// Free the slot before posting the result so that a gather function
		// may scatter into the same pool without deadlock.
		pool.release()

		gather := func(ctx context.Context) error {
			return gatherFunc(ctx, value, err)
		}
		select {
		case j.gatherChan <- gather:
		case <-j.ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	launched = true
	return nil
}
