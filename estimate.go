// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/addrummond/heap"
)

// Mode names the execution model that produced an Estimate.
type Mode string

const (
	ModeShared      Mode = "shared"
	ModeDistributed Mode = "distributed"
)

// Estimate is the outcome of a completed run.
type Estimate struct {
	Mode        Mode          `json:"mode"`
	Trials      int64         `json:"trials"`
	Successes   int64         `json:"successes"`
	Workers     int           `json:"workers"`
	Deadline    float64       `json:"deadline"`
	Budget      *float64      `json:"budget,omitempty"`
	Probability float64       `json:"probability"`
	Elapsed     time.Duration `json:"-"`
	Partials    []Partial     `json:"-"`
}

type orderedPartial struct {
	Partial
}

func (a *orderedPartial) Cmp(b *orderedPartial) int {
	return cmp.Compare(a.Worker, b.Worker)
}

// NewEstimate computes the probability from a finished reduction. The
// denominator is cfg.Trials, the authoritative trial count, not the sum of
// partition sizes. Partials may be supplied in any order; the Estimate lists
// them by worker index.
func NewEstimate(mode Mode, cfg Config, r Reduction, elapsed time.Duration, partials []Partial) *Estimate {
	var h heap.Heap[orderedPartial, heap.Min]
	for _, p := range partials {
		heap.PushOrderable(&h, orderedPartial{p})
	}
	sorted := make([]Partial, 0, len(partials))
	for {
		p, ok := heap.PopOrderable(&h)
		if !ok {
			break
		}
		sorted = append(sorted, p.Partial)
	}
	return &Estimate{
		Mode:        mode,
		Trials:      cfg.Trials,
		Successes:   r.Successes,
		Workers:     cfg.Workers,
		Deadline:    cfg.Deadline,
		Budget:      cfg.Budget,
		Probability: float64(r.Successes) / float64(cfg.Trials),
		Elapsed:     elapsed,
		Partials:    sorted,
	}
}

func (e *Estimate) elapsedMillis() float64 {
	return float64(e.Elapsed) / float64(time.Millisecond)
}

// WriteText renders the fixed console report.
func (e *Estimate) WriteText(w io.Writer) error {
	unit := "Workers"
	if e.Mode == ModeDistributed {
		unit = "Processes"
	}
	condition := fmt.Sprintf("<= %.4f", e.Deadline)
	if e.Budget != nil {
		condition += fmt.Sprintf(", cost <= %.4f", *e.Budget)
	}
	_, err := fmt.Fprintf(w,
		"=== PERT Monte Carlo (%s) ===\n"+
			"Trials: %d\n"+
			"%s: %d\n"+
			"Probability %s: %.4f%%\n"+
			"Elapsed: %.4f ms\n",
		e.Mode, e.Trials, unit, e.Workers, condition, e.Probability*100, e.elapsedMillis())
	return err
}

type jsonPartial struct {
	Worker    int     `json:"worker"`
	Trials    int64   `json:"trials"`
	Successes int64   `json:"successes"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

// WriteJSON renders the report as a single JSON document.
func (e *Estimate) WriteJSON(w io.Writer) error {
	type alias Estimate
	partials := make([]jsonPartial, len(e.Partials))
	for i, p := range e.Partials {
		partials[i] = jsonPartial{
			Worker:    p.Worker,
			Trials:    p.Trials,
			Successes: p.Successes,
			ElapsedMS: float64(p.Elapsed) / float64(time.Millisecond),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*alias
		ElapsedMS float64       `json:"elapsed_ms"`
		Partials  []jsonPartial `json:"partials"`
	}{(*alias)(e), e.elapsedMillis(), partials})
}
