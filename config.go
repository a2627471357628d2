// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"math"
	"runtime"
)

const (
	DefaultTrials   = 1_000_000
	DefaultDeadline = 30.0
)

// Config parameterizes one simulation run. It is passed by value into
// [Simulate] and never mutated afterward.
type Config struct {
	// Trials is the total number of Monte Carlo trials across all workers.
	Trials int64
	// Deadline is the schedule threshold each trial's total duration is
	// compared against.
	Deadline float64
	// Workers is the number of independent workers (and generator streams).
	Workers int
	// Seed is the base from which every worker's generator is derived. Runs
	// with equal Seed, Trials and Workers produce identical counts.
	Seed uint64
	// Budget, when non-nil, additionally requires each trial's total cost
	// to be at or below it.
	Budget *float64
}

// DefaultConfig returns the configuration used when nothing is overridden,
// with one worker per available processor.
func DefaultConfig() Config {
	return Config{
		Trials:   DefaultTrials,
		Deadline: DefaultDeadline,
		Workers:  runtime.GOMAXPROCS(0),
	}
}

// Validate returns a [ConfigError] describing the first invalid field.
func (c Config) Validate() error {
	if c.Trials <= 0 {
		return configErrorf("trials", "must be positive, got %d", c.Trials)
	}
	if c.Workers < 1 {
		return configErrorf("workers", "must be at least 1, got %d", c.Workers)
	}
	if math.IsNaN(c.Deadline) || math.IsInf(c.Deadline, 0) {
		return configErrorf("deadline", "must be finite, got %v", c.Deadline)
	}
	if c.Budget != nil && (math.IsNaN(*c.Budget) || math.IsInf(*c.Budget, 0)) {
		return configErrorf("budget", "must be finite, got %v", *c.Budget)
	}
	return nil
}
