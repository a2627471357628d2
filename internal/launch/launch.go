// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package launch starts and supervises the processes of a local distributed
// run, one per rank.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/petenewcomb/pertmc-go"
	"github.com/petenewcomb/pertmc-go/internal/seed"
	"go.uber.org/zap"
)

// shutdownGrace is how long a canceled rank has to exit after being
// interrupted before it is killed.
const shutdownGrace = 5 * time.Second

// Spec describes a group of rank processes.
type Spec struct {
	// Processes is the number of ranks to start.
	Processes int
	// Command and Args name the program every rank runs.
	Command string
	Args    []string
	// Env is the base environment shared by all ranks. Rank variables are
	// appended to it.
	Env []string
	// Coordinator is the address rank 0 listens on. When empty a free
	// loopback port is chosen.
	Coordinator string
	// Stdout receives rank 0's standard output; the other ranks' output is
	// discarded. Stderr receives every rank's standard error.
	Stdout io.Writer
	Stderr io.Writer
}

// RankError reports the failure of one rank.
type RankError struct {
	Rank int
	Err  error
}

func (e *RankError) Error() string {
	return fmt.Sprintf("rank %d: %v", e.Rank, e.Err)
}

func (e *RankError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit status of the failed rank, or 1 if it did not
// exit normally.
func (e *RankError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

// Launch starts spec.Processes ranks and waits for all of them. The first
// rank to fail cancels the others, and its error is returned as a
// [RankError].
func Launch(ctx context.Context, spec Spec, logger *zap.Logger) error {
	if spec.Processes < 1 {
		return &pertmc.ConfigError{Field: "processes", Reason: fmt.Sprintf("must be at least 1, got %d", spec.Processes)}
	}
	if spec.Command == "" {
		return &pertmc.ConfigError{Field: "command", Reason: "must be non-empty"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	stdout := spec.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := spec.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	stderr = &syncWriter{w: stderr}

	addr := spec.Coordinator
	if addr == "" {
		var err error
		if addr, err = freeAddress(); err != nil {
			return err
		}
	}
	env, err := baseEnv(spec.Env, addr, spec.Processes)
	if err != nil {
		return err
	}

	job := pertmc.NewJob(ctx)
	defer job.CancelAndWait()
	pool := pertmc.NewTaskPool(job, spec.Processes)
	logger.Debug("launching", zap.Int("processes", pool.Limit()), zap.String("command", spec.Command))

	gather := func(ctx context.Context, rank int, err error) error {
		if err != nil {
			logger.Error("rank failed", zap.Int("rank", rank), zap.Error(err))
			return &RankError{Rank: rank, Err: err}
		}
		logger.Debug("rank exited", zap.Int("rank", rank))
		return nil
	}

	for rank := range spec.Processes {
		out := io.Discard
		if rank == 0 {
			out = stdout
		}
		rankEnv := append(env[:len(env):len(env)], "PERTMC_RANK="+strconv.Itoa(rank))
		task := func(ctx context.Context) (int, error) {
			cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
			cmd.Env = rankEnv
			cmd.Stdout = out
			cmd.Stderr = stderr
			cmd.Cancel = func() error {
				return cmd.Process.Signal(os.Interrupt)
			}
			cmd.WaitDelay = shutdownGrace
			return rank, cmd.Run()
		}
		if err := pertmc.Scatter(ctx, pool, task, gather); err != nil {
			return err
		}
		logger.Debug("rank started", zap.Int("rank", rank), zap.String("coordinator", addr))
	}
	return job.GatherAll(ctx)
}

// baseEnv returns env with the variables common to every rank. A seed is
// drawn once here when env does not pin one, so that all ranks agree on it.
func baseEnv(env []string, addr string, size int) ([]string, error) {
	out := make([]string, 0, len(env)+5)
	var haveSeed bool
	for _, kv := range env {
		switch {
		case strings.HasPrefix(kv, "PERTMC_RANK="),
			strings.HasPrefix(kv, "PERTMC_SIZE="),
			strings.HasPrefix(kv, "PERTMC_MODE="),
			strings.HasPrefix(kv, "PERTMC_COORDINATOR="):
			continue
		case strings.HasPrefix(kv, "PERTMC_SEED="):
			haveSeed = kv != "PERTMC_SEED=" && kv != "PERTMC_SEED=0"
			if !haveSeed {
				continue
			}
		}
		out = append(out, kv)
	}
	if !haveSeed {
		base, err := seed.NewBase()
		if err != nil {
			return nil, err
		}
		out = append(out, "PERTMC_SEED="+strconv.FormatUint(base, 10))
	}
	return append(out,
		"PERTMC_MODE="+string(pertmc.ModeDistributed),
		"PERTMC_SIZE="+strconv.Itoa(size),
		"PERTMC_COORDINATOR="+addr,
	), nil
}

// freeAddress finds an unused loopback port. The port is released before
// rank 0 binds it, so another process could claim it in between.
func freeAddress() (string, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("pick coordinator port: %w", err)
	}
	defer lis.Close()
	return lis.Addr().String(), nil
}

// syncWriter serializes writes from the output copiers of several children.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
