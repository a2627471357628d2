// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/petenewcomb/pertmc-go/internal/seed"
)

// cancelCheckInterval is how many trials a worker runs between context
// checks.
const cancelCheckInterval = 1 << 14

// Partial is one worker's contribution to the global count.
type Partial struct {
	Worker    int
	Trials    int64
	Successes int64
	Elapsed   time.Duration
}

// workerState is exclusively owned by one worker for its entire run.
type workerState struct {
	index     int
	src       *rand.PCG
	successes int64
}

func newWorkerState(base uint64, index int) *workerState {
	return &workerState{
		index: index,
		src:   seed.NewSource(base, index),
	}
}

// RunWorker executes the trials of span using the generator stream derived
// from cfg.Seed and span.Worker. No synchronization happens inside the trial
// loop. The returned Partial is only meaningful when err is nil: a canceled
// context or a sampling failure aborts the worker without a partial count.
func RunWorker(ctx context.Context, model *Model, cfg Config, span Span) (Partial, error) {
	start := time.Now()
	w := newWorkerState(cfg.Seed, span.Worker)
	for i := int64(0); i < span.Count; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Partial{Worker: span.Worker}, err
			}
		}
		ok, err := model.Trial(w.src, cfg.Deadline, cfg.Budget)
		if err != nil {
			return Partial{Worker: span.Worker}, err
		}
		if ok {
			w.successes++
		}
	}
	return Partial{
		Worker:    span.Worker,
		Trials:    span.Count,
		Successes: w.successes,
		Elapsed:   time.Since(start),
	}, nil
}
