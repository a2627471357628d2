// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package state

import (
	"fmt"
	"sync/atomic"
)

// Stage is a step in the macro-level life of a simulation run.
type Stage int32

const (
	// StageInit covers validation and construction of immutable inputs.
	StageInit Stage = iota
	// StageSampling is the only stage in which workers run in parallel.
	StageSampling
	// StageReducing folds per-worker counts into the global count.
	StageReducing
	// StageReporting computes and renders the estimate.
	StageReporting
	// StageDone is terminal.
	StageDone
)

var stageNames = [...]string{"init", "sampling", "reducing", "reporting", "done"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int32(s))
	}
	return stageNames[s]
}

// Lifecycle enforces that a run moves through its stages strictly in order.
// The zero value is at StageInit.
type Lifecycle struct {
	current atomic.Int32
}

// Current returns the stage the run is in.
func (l *Lifecycle) Current() Stage {
	return Stage(l.current.Load())
}

// Advance moves from the current stage to next, which must be its immediate
// successor. Skipping or repeating a stage panics.
func (l *Lifecycle) Advance(next Stage) {
	prev := next - 1
	if next <= StageInit || next > StageDone || !l.current.CompareAndSwap(int32(prev), int32(next)) {
		panic(fmt.Sprintf("invalid stage transition %v -> %v", l.Current(), next))
	}
}
