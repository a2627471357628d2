// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
)

// A Task is one unit of project work whose duration is drawn from a
// Distribution. CostRate optionally charges the sampled duration against a
// budget (see [Config.Budget]).
type Task struct {
	Name     string
	Duration Distribution
	CostRate float64
}

// Model is an ordered, immutable collection of tasks. Every worker iterates
// the tasks in the same order, so sampled streams are reproducible for a
// given seed. A Model is safe for concurrent use.
type Model struct {
	tasks []Task
}

// NewModel validates tasks and returns a Model holding a private copy of
// them. Unnamed tasks are named by position. Names may not contain '=' or
// ';' or begin or end with a space, so that [Model.String] stays parseable.
func NewModel(tasks ...Task) (*Model, error) {
	if len(tasks) == 0 {
		return nil, configErrorf("tasks", "model must contain at least one task")
	}
	m := &Model{tasks: slices.Clone(tasks)}
	for i := range m.tasks {
		t := &m.tasks[i]
		if t.Name == "" {
			t.Name = fmt.Sprintf("task%d", i+1)
		}
		if strings.ContainsAny(t.Name, "=;") || strings.TrimSpace(t.Name) != t.Name {
			return nil, configErrorf("tasks", "name %q must not contain '=' or ';' or surrounding spaces", t.Name)
		}
		if t.Duration == nil {
			return nil, configErrorf("tasks", "%s has no duration distribution", t.Name)
		}
		if err := t.Duration.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		if math.IsNaN(t.CostRate) || math.IsInf(t.CostRate, 0) || t.CostRate < 0 {
			return nil, configErrorf("tasks", "%s cost rate must be finite and non-negative", t.Name)
		}
	}
	return m, nil
}

// DefaultModel returns the three-task Beta-PERT project used when no task set
// is configured.
func DefaultModel() *Model {
	m, err := NewModel(
		Task{Name: "A", Duration: BetaPERT{Min: 10, Mode: 12, Max: 18}},
		Task{Name: "B", Duration: BetaPERT{Min: 8, Mode: 10, Max: 14}},
		Task{Name: "C", Duration: BetaPERT{Min: 12, Mode: 14, Max: 22}},
	)
	if err != nil {
		panic(err)
	}
	return m
}

// Tasks returns a copy of the model's tasks in evaluation order.
func (m *Model) Tasks() []Task {
	return slices.Clone(m.tasks)
}

func (m *Model) Len() int {
	return len(m.tasks)
}

// ExpectedDuration returns the sum of the task means.
func (m *Model) ExpectedDuration() float64 {
	var sum float64
	for _, t := range m.tasks {
		sum += t.Duration.Mean()
	}
	return sum
}

// Trial draws one duration per task from src and reports whether the total
// meets the deadline and, when budget is non-nil, whether the total cost
// stays within it.
func (m *Model) Trial(src rand.Source, deadline float64, budget *float64) (bool, error) {
	var total, cost float64
	for _, t := range m.tasks {
		d := t.Duration.Sample(src)
		if err := checkSample(t.Name, t.Duration, d); err != nil {
			return false, err
		}
		total += d
		cost += d * t.CostRate
	}
	if total > deadline {
		return false, nil
	}
	return budget == nil || cost <= *budget, nil
}

func (m *Model) String() string {
	var sb strings.Builder
	for i, t := range m.tasks {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(t.Name)
		sb.WriteByte('=')
		sb.WriteString(t.Duration.String())
		if t.CostRate != 0 {
			sb.WriteByte('@')
			sb.WriteString(strconv.FormatFloat(t.CostRate, 'g', -1, 64))
		}
	}
	return sb.String()
}

// ParseModel builds a Model from its textual form, a semicolon-separated list
// of tasks each written as
//
//	[name=]pert:min,mode,max[@costRate]
//	[name=]normal:mean,stddev[@costRate]
//
// The output of [Model.String] parses back to an equivalent model.
func ParseModel(s string) (*Model, error) {
	var tasks []Task
	for i, field := range strings.Split(s, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		t, err := parseTask(field)
		if err != nil {
			return nil, configErrorf("tasks", "entry %d %q: %v", i+1, field, err)
		}
		tasks = append(tasks, t)
	}
	return NewModel(tasks...)
}

func parseTask(s string) (Task, error) {
	var t Task
	if name, rest, ok := strings.Cut(s, "="); ok {
		t.Name = strings.TrimSpace(name)
		s = rest
	}
	if spec, rate, ok := strings.Cut(s, "@"); ok {
		r, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
		if err != nil {
			return t, fmt.Errorf("cost rate: %w", err)
		}
		t.CostRate = r
		s = spec
	}
	kind, args, ok := strings.Cut(s, ":")
	if !ok {
		return t, fmt.Errorf("missing distribution kind")
	}
	params, err := parseFloats(args)
	if err != nil {
		return t, err
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "pert", "betapert":
		if len(params) != 3 {
			return t, fmt.Errorf("pert takes 3 parameters, got %d", len(params))
		}
		t.Duration = BetaPERT{Min: params[0], Mode: params[1], Max: params[2]}
	case "normal":
		if len(params) != 2 {
			return t, fmt.Errorf("normal takes 2 parameters, got %d", len(params))
		}
		t.Duration = Normal{Mu: params[0], Sigma: params[1]}
	default:
		return t, fmt.Errorf("unknown distribution %q", kind)
	}
	return t, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
