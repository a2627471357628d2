// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// A Distribution draws stochastic task durations. Implementations must be
// immutable: all randomness comes from the caller-supplied source, so a single
// Distribution value may be shared by every worker.
type Distribution interface {
	// Sample draws one value using src, which is owned by the calling worker.
	Sample(src rand.Source) float64
	// Validate reports whether the parameters define a proper distribution.
	Validate() error
	// Mean returns the expected value.
	Mean() float64
	String() string
}

// A bounded distribution only produces values within a closed interval.
type bounded interface {
	Bounds() (lo, hi float64)
}

// BetaPERT is the three-point (optimistic, most likely, pessimistic) duration
// estimate. Samples are drawn as a Beta variate built from two Gamma variates
// of equal scale and stretched onto [Min, Max].
type BetaPERT struct {
	Min  float64
	Mode float64
	Max  float64
}

// shape returns the Beta parameters. Only meaningful when Max > Min.
func (d BetaPERT) shape() (alpha, beta float64) {
	width := d.Max - d.Min
	alpha = 1 + 4*((d.Mode-d.Min)/width)
	beta = 1 + 4*((d.Max-d.Mode)/width)
	return alpha, beta
}

func (d BetaPERT) Sample(src rand.Source) float64 {
	width := d.Max - d.Min
	if width == 0 {
		return d.Min
	}
	alpha, beta := d.shape()
	// X/(X+Y) is Beta(alpha, beta) only because both Gamma draws share the
	// same scale, here a unit rate.
	x := distuv.Gamma{Alpha: alpha, Beta: 1, Src: src}.Rand()
	y := distuv.Gamma{Alpha: beta, Beta: 1, Src: src}.Rand()
	v := d.Min + (x/(x+y))*width
	// Rounding in the affine stretch can land an ulp past Max.
	return min(max(v, d.Min), d.Max)
}

func (d BetaPERT) Validate() error {
	for _, v := range []float64{d.Min, d.Mode, d.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return configErrorf("pert", "parameters must be finite: %v", d)
		}
	}
	if d.Min > d.Mode || d.Mode > d.Max {
		return configErrorf("pert", "parameters must satisfy min <= mode <= max: %v", d)
	}
	if math.IsInf(d.Max-d.Min, 0) {
		return configErrorf("pert", "range max-min overflows: %v", d)
	}
	return nil
}

func (d BetaPERT) Mean() float64 {
	return (d.Min + 4*d.Mode + d.Max) / 6
}

func (d BetaPERT) Bounds() (float64, float64) {
	return d.Min, d.Max
}

func (d BetaPERT) String() string {
	return fmt.Sprintf("pert:%g,%g,%g", d.Min, d.Mode, d.Max)
}

// Normal is a Gaussian duration estimate. Its range is unconstrained, so a
// sample may be negative when Sigma is large relative to Mu.
type Normal struct {
	Mu    float64
	Sigma float64
}

func (d Normal) Sample(src rand.Source) float64 {
	return distuv.Normal{Mu: d.Mu, Sigma: d.Sigma, Src: src}.Rand()
}

func (d Normal) Validate() error {
	if math.IsNaN(d.Mu) || math.IsInf(d.Mu, 0) || math.IsNaN(d.Sigma) || math.IsInf(d.Sigma, 0) {
		return configErrorf("normal", "parameters must be finite: %v", d)
	}
	if d.Sigma < 0 {
		return configErrorf("normal", "standard deviation must be non-negative: %v", d)
	}
	return nil
}

func (d Normal) Mean() float64 {
	return d.Mu
}

func (d Normal) String() string {
	return fmt.Sprintf("normal:%g,%g", d.Mu, d.Sigma)
}

// checkSample verifies that v is a value d could have produced.
func checkSample(task string, d Distribution, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &SamplingError{Task: task, Value: v, Reason: "non-finite sample"}
	}
	if b, ok := d.(bounded); ok {
		lo, hi := b.Bounds()
		if v < lo || v > hi {
			return &SamplingError{Task: task, Value: v, Reason: fmt.Sprintf("sample outside [%g, %g]", lo, hi)}
		}
	}
	return nil
}
