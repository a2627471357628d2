// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"context"

	"github.com/petenewcomb/pertmc-go/internal/state"
)

// A TaskPool is a fixed set of execution slots within a [Job]. At most limit
// tasks scattered into the pool run at once; a negative limit means no limit.
type TaskPool struct {
	job      *Job
	limit    int
	inFlight state.InFlightCounter
}

// NewTaskPool creates a pool bound to job. It panics if job is nil or limit
// is zero.
func NewTaskPool(job *Job, limit int) *TaskPool {
	if job == nil {
		panic("job must be non-nil")
	}
	if limit == 0 {
		panic("pool limit must be non-zero")
	}
	return &TaskPool{
		job:   job,
		limit: limit,
	}
}

// Limit returns the pool's concurrency limit.
func (p *TaskPool) Limit() int {
	return p.limit
}

// launch starts task in a new goroutine once a slot is free, gathering
// completed results in the meantime to create room.
func (p *TaskPool) launch(ctx context.Context, task boundTaskFunc) error {
	j := p.job

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := j.ctx.Err(); err != nil {
		return err
	}

	for !p.inFlight.IncrementIfUnder(p.limit) {
		if _, err := j.GatherOne(ctx); err != nil {
			return err
		}
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		task(j.ctx)
	}()
	return nil
}

type boundTaskFunc func(ctx context.Context)

func (p *TaskPool) release() {
	p.inFlight.Decrement()
}
