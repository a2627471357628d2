// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package cli turns process arguments and environment into a simulation run.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/petenewcomb/pertmc-go"
	"github.com/petenewcomb/pertmc-go/cluster"
	"github.com/petenewcomb/pertmc-go/internal/seed"
	"go.uber.org/zap/zapcore"
)

const (
	ExitSuccess       = 0
	ExitInternalError = 1
	ExitConfigError   = 2
)

// Format selects how the estimate is written to stdout.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Environment is the process environment understood by pertmc.
type Environment struct {
	Mode        string `env:"PERTMC_MODE"        envDefault:"shared"`
	Workers     int    `env:"PERTMC_WORKERS"`
	Seed        uint64 `env:"PERTMC_SEED"`
	Tasks       string `env:"PERTMC_TASKS"`
	Budget      string `env:"PERTMC_BUDGET"`
	Rank        int    `env:"PERTMC_RANK"`
	Size        int    `env:"PERTMC_SIZE"        envDefault:"1"`
	Coordinator string `env:"PERTMC_COORDINATOR" envDefault:"127.0.0.1:7946"`
	Format      string `env:"PERTMC_FORMAT"      envDefault:"text"`
	LogLevel    string `env:"PERTMC_LOG_LEVEL"   envDefault:"warn"`
	Trace       bool   `env:"PERTMC_TRACE"`
}

// Invocation is a fully validated description of one run.
type Invocation struct {
	Mode     pertmc.Mode
	Config   pertmc.Config
	Model    *pertmc.Model
	Node     cluster.NodeConfig
	Format   Format
	LogLevel zapcore.Level
	Trace    bool
}

// InvocationError reports unusable arguments or environment.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error returned by this package to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr.ExitCode != 0 {
		return invErr.ExitCode
	}
	if errors.Is(err, pertmc.ErrConfiguration) {
		return ExitConfigError
	}
	return ExitInternalError
}

// ParseInvocation reads environ (or the process environment when environ is
// nil), then flags, then the optional positional arguments trial_count and
// deadline. Later sources override earlier ones. Malformed values are
// rejected rather than replaced by defaults.
func ParseInvocation(args []string, environ map[string]string) (Invocation, error) {
	var e Environment
	if err := env.ParseWithOptions(&e, env.Options{Environment: environ}); err != nil {
		return Invocation{}, invalidf("parse env: %v", err)
	}

	fs := flag.NewFlagSet("pertmc", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&e.Mode, "mode", e.Mode, "execution model: shared or distributed")
	fs.Uint64Var(&e.Seed, "seed", e.Seed, "base seed (0 draws one from the system)")
	fs.StringVar(&e.Tasks, "tasks", e.Tasks, "task model, e.g. 'a=pert:1,2,4;b=normal:3,1'")
	fs.StringVar(&e.Budget, "budget", e.Budget, "optional cost ceiling")
	fs.StringVar(&e.Format, "format", e.Format, "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidf("%v", err)
	}

	inv := Invocation{
		Config: pertmc.DefaultConfig(),
		Trace:  e.Trace,
	}

	rest := fs.Args()
	if len(rest) > 2 {
		return Invocation{}, invalidf("usage: pertmc [flags] [trial_count [deadline]]")
	}
	if len(rest) > 0 {
		n, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil || n <= 0 {
			return Invocation{}, invalidf("trial_count must be a positive integer, got %q", rest[0])
		}
		inv.Config.Trials = n
	}
	if len(rest) > 1 {
		d, err := strconv.ParseFloat(rest[1], 64)
		if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
			return Invocation{}, invalidf("deadline must be a finite number, got %q", rest[1])
		}
		inv.Config.Deadline = d
	}

	if e.Workers < 0 {
		return Invocation{}, invalidf("workers must be positive, got %d", e.Workers)
	}
	if e.Workers > 0 {
		inv.Config.Workers = e.Workers
	}

	if e.Budget != "" {
		b, err := strconv.ParseFloat(e.Budget, 64)
		if err != nil {
			return Invocation{}, invalidf("budget must be a number, got %q", e.Budget)
		}
		inv.Config.Budget = &b
	}

	inv.Config.Seed = e.Seed
	if inv.Config.Seed == 0 {
		base, err := seed.NewBase()
		if err != nil {
			return Invocation{}, err
		}
		inv.Config.Seed = base
	}

	inv.Model = pertmc.DefaultModel()
	if e.Tasks != "" {
		m, err := pertmc.ParseModel(e.Tasks)
		if err != nil {
			return Invocation{}, err
		}
		inv.Model = m
	}

	switch pertmc.Mode(e.Mode) {
	case pertmc.ModeShared:
		inv.Mode = pertmc.ModeShared
	case pertmc.ModeDistributed:
		inv.Mode = pertmc.ModeDistributed
		inv.Node = cluster.NodeConfig{Rank: e.Rank, Size: e.Size, Address: e.Coordinator}
		if err := inv.Node.Validate(); err != nil {
			return Invocation{}, err
		}
		inv.Config.Workers = e.Size
	default:
		return Invocation{}, invalidf("mode must be %q or %q, got %q", pertmc.ModeShared, pertmc.ModeDistributed, e.Mode)
	}

	switch Format(e.Format) {
	case FormatText, FormatJSON:
		inv.Format = Format(e.Format)
	default:
		return Invocation{}, invalidf("format must be %q or %q, got %q", FormatText, FormatJSON, e.Format)
	}

	level, err := zapcore.ParseLevel(e.LogLevel)
	if err != nil {
		return Invocation{}, invalidf("log level: %v", err)
	}
	inv.LogLevel = level

	if err := inv.Config.Validate(); err != nil {
		return Invocation{}, err
	}
	return inv, nil
}
