// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Reduction is the combined result of a set of partials.
type Reduction struct {
	Trials       int64
	Successes    int64
	Contributors int
}

// Add folds p into r. Addition is commutative and associative, so the final
// Reduction does not depend on the order partials arrive in.
func (r Reduction) Add(p Partial) Reduction {
	return Reduction{
		Trials:       r.Trials + p.Trials,
		Successes:    r.Successes + p.Successes,
		Contributors: r.Contributors + 1,
	}
}

// Verify checks that exactly trials trials were executed and that the
// success count is in range. A violation is a [SamplingError].
func (r Reduction) Verify(trials int64) error {
	if r.Trials != trials {
		return &SamplingError{Reason: fmt.Sprintf("executed %d trials, configured %d", r.Trials, trials)}
	}
	if r.Successes < 0 || r.Successes > trials {
		return &SamplingError{Reason: fmt.Sprintf("success count %d outside [0, %d]", r.Successes, trials)}
	}
	return nil
}

// Fold combines partials with [Reduction.Add].
func Fold(partials ...Partial) Reduction {
	var r Reduction
	for _, p := range partials {
		r = r.Add(p)
	}
	return r
}

// A Reducer combines per-worker partials into one global count. Contribute is
// called exactly once per worker, possibly concurrently; Total is called once
// after every worker has contributed and may block until then.
type Reducer interface {
	Contribute(ctx context.Context, p Partial) error
	Total(ctx context.Context) (Reduction, error)
}

// AtomicReducer is the shared-memory Reducer. Each Contribute performs one
// atomic add per counter, so contention is bounded by the worker count rather
// than the trial count. The zero value is ready to use.
type AtomicReducer struct {
	trials       atomic.Int64
	successes    atomic.Int64
	contributors atomic.Int64
}

func (r *AtomicReducer) Contribute(_ context.Context, p Partial) error {
	r.successes.Add(p.Successes)
	r.trials.Add(p.Trials)
	r.contributors.Add(1)
	return nil
}

func (r *AtomicReducer) Total(_ context.Context) (Reduction, error) {
	return Reduction{
		Trials:       r.trials.Load(),
		Successes:    r.successes.Load(),
		Contributors: int(r.contributors.Load()),
	}, nil
}
