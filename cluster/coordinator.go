// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/petenewcomb/pertmc-go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Coordinator collects exactly one partial from each of size ranks and
// releases every blocked contributor with the global total once the last one
// arrives. It is the single join point of a distributed run.
type Coordinator struct {
	size int

	mu       sync.Mutex
	partials map[int]pertmc.Partial
	total    pertmc.Reduction
	waiters  deque.Deque[chan pertmc.Reduction]
}

// NewCoordinator creates a coordinator for size ranks. It panics if size is
// less than one.
func NewCoordinator(size int) *Coordinator {
	if size < 1 {
		panic("cluster size is less than one")
	}
	return &Coordinator{
		size:     size,
		partials: make(map[int]pertmc.Partial, size),
	}
}

// Contribute records p as the partial of rank p.Worker and blocks until all
// ranks have contributed or ctx is done. Every rank must contribute exactly
// once.
func (c *Coordinator) Contribute(ctx context.Context, p pertmc.Partial) (pertmc.Reduction, error) {
	if p.Worker < 0 || p.Worker >= c.size {
		return pertmc.Reduction{}, status.Errorf(codes.InvalidArgument,
			"rank %d outside [0, %d)", p.Worker, c.size)
	}
	if p.Trials < 0 || p.Successes < 0 || p.Successes > p.Trials {
		return pertmc.Reduction{}, status.Errorf(codes.InvalidArgument,
			"rank %d: invalid counts %d/%d", p.Worker, p.Successes, p.Trials)
	}

	c.mu.Lock()
	if _, ok := c.partials[p.Worker]; ok {
		c.mu.Unlock()
		return pertmc.Reduction{}, status.Errorf(codes.AlreadyExists,
			"rank %d already contributed", p.Worker)
	}
	c.partials[p.Worker] = p
	c.total = c.total.Add(p)
	if len(c.partials) == c.size {
		total := c.total
		for c.waiters.Len() > 0 {
			c.waiters.PopFront() <- total
		}
		c.mu.Unlock()
		return total, nil
	}
	wait := make(chan pertmc.Reduction, 1)
	c.waiters.PushBack(wait)
	c.mu.Unlock()

	select {
	case total := <-wait:
		return total, nil
	case <-ctx.Done():
		return pertmc.Reduction{}, status.FromContextError(ctx.Err()).Err()
	}
}

// Reduce implements the Reducer service.
func (c *Coordinator) Reduce(ctx context.Context, req *ReduceRequest) (*ReduceResponse, error) {
	if req.Size != c.size {
		return nil, status.Errorf(codes.InvalidArgument,
			"rank %d expects %d ranks, coordinator has %d", req.Rank, req.Size, c.size)
	}
	total, err := c.Contribute(ctx, pertmc.Partial{
		Worker:    req.Rank,
		Trials:    req.Trials,
		Successes: req.Successes,
		Elapsed:   time.Duration(req.ElapsedNS),
	})
	if err != nil {
		return nil, err
	}
	return &ReduceResponse{
		Trials:       total.Trials,
		Successes:    total.Successes,
		Contributors: total.Contributors,
	}, nil
}

// Partials returns the contributions received so far, in no particular
// order.
func (c *Coordinator) Partials() []pertmc.Partial {
	c.mu.Lock()
	defer c.mu.Unlock()
	partials := make([]pertmc.Partial, 0, len(c.partials))
	for _, p := range c.partials {
		partials = append(partials, p)
	}
	return partials
}
