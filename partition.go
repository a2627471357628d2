// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

// A Span is the contiguous, exclusive range of trials assigned to one worker.
type Span struct {
	Worker int
	Start  int64
	Count  int64
}

// Partition splits total trials across workers. Every worker receives
// total/workers trials and the first total%workers workers receive one more,
// so the spans are disjoint and cover exactly total trials. Partition panics
// if workers is less than one or total is negative.
func Partition(total int64, workers int) []Span {
	if workers < 1 {
		panic("worker count is less than one")
	}
	if total < 0 {
		panic("trial count is negative")
	}
	base := total / int64(workers)
	extra := total % int64(workers)
	spans := make([]Span, workers)
	var start int64
	for i := range spans {
		n := base
		if int64(i) < extra {
			n++
		}
		spans[i] = Span{Worker: i, Start: start, Count: n}
		start += n
	}
	return spans
}
