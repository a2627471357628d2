// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"context"
	"maps"
	"sync"

	"github.com/petenewcomb/pertmc-go/internal/state"
)

// Job is a single-threaded scatter-gather execution environment. Tasks
// launched with [Scatter] run concurrently in their own goroutines, while
// their results are gathered one at a time by the goroutine that calls
// [Scatter], [Job.GatherOne], or [Job.GatherAll]. Gather functions can
// therefore fold results into local variables without synchronization.
//
// Each call to NewJob should be followed by a deferred call to
// [Job.CancelAndWait] so that an early return does not leak goroutines.
type Job struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	inFlight   state.InFlightCounter
	gatherChan chan boundGatherFunc
}

type boundGatherFunc = func(ctx context.Context) error

// NewJob creates a job whose task contexts derive from ctx.
func NewJob(ctx context.Context) *Job {
	ctx, cancelFunc := context.WithCancel(ctx)
	j := &Job{
		cancelFunc: cancelFunc,
		gatherChan: make(chan boundGatherFunc),
	}
	j.ctx = j.makeTaskContext(ctx)
	return j
}

type taskContextMarkerType struct{}

var taskContextMarkerKey any = taskContextMarkerType{}

// makeTaskContext marks ctx as belonging to j, accumulating the marks of any
// enclosing jobs so that nested jobs are all detected.
func (j *Job) makeTaskContext(ctx context.Context) context.Context {
	var marks map[*Job]struct{}
	if old, ok := ctx.Value(taskContextMarkerKey).(map[*Job]struct{}); ok {
		marks = maps.Clone(old)
	} else {
		marks = make(map[*Job]struct{}, 1)
	}
	marks[j] = struct{}{}
	return context.WithValue(ctx, taskContextMarkerKey, marks)
}

func (j *Job) isTaskContext(ctx context.Context) bool {
	marks, _ := ctx.Value(taskContextMarkerKey).(map[*Job]struct{})
	_, ok := marks[j]
	return ok
}

// Cancel terminates in-flight tasks by canceling their context and forfeits
// any ungathered results. It returns immediately and may be called more than
// once.
func (j *Job) Cancel() {
	j.cancelFunc()
}

// CancelAndWait cancels the job and waits for every task goroutine to exit.
func (j *Job) CancelAndWait() {
	j.Cancel()
	j.wg.Wait()
}

// GatherOne processes at most one completed task result, blocking until one
// is available. It returns false, nil if no tasks are in flight, true with the
// gather function's error if a result was processed, and false with a context
// error if ctx or the job was canceled.
func (j *Job) GatherOne(ctx context.Context) (bool, error) {
	// A nil gather is a wake-up sent when the in-flight count reached zero;
	// loop to re-check the count.
	for j.inFlight.GreaterThanZero() {
		select {
		case gather := <-j.gatherChan:
			if gather != nil {
				return true, j.executeGather(ctx, gather)
			}
		case <-ctx.Done():
			return false, ctx.Err()
		case <-j.ctx.Done():
			return false, j.ctx.Err()
		}
	}
	return false, nil
}

// GatherAll processes results until no tasks remain in flight or an error
// occurs.
func (j *Job) GatherAll(ctx context.Context) error {
	for {
		ok, err := j.GatherOne(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

func (j *Job) executeGather(ctx context.Context, gather boundGatherFunc) error {
	// Decrement only after the gather returns so the in-flight count cannot
	// reach zero while the gather might still scatter follow-on tasks.
	defer j.decrementInFlight()
	return gather(ctx)
}

func (j *Job) decrementInFlight() {
	if j.inFlight.Decrement() {
		j.wakeGatherers()
	}
}

func (j *Job) wakeGatherers() {
	for {
		select {
		case j.gatherChan <- nil:
		default:
			return
		}
	}
}
