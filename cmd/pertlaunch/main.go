// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command pertlaunch runs a distributed pertmc simulation as N local
// processes.
//
//	pertlaunch -n N [-coordinator host:port] [pertmc [args...]]
//
// Each process receives PERTMC_MODE=distributed, its PERTMC_RANK, the shared
// PERTMC_SIZE and PERTMC_COORDINATOR, and a common PERTMC_SEED. Rank 0's
// report is written to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/petenewcomb/pertmc-go/internal/launch"
	"go.uber.org/zap"
)

func main() {
	fs := flag.NewFlagSet("pertlaunch", flag.ExitOnError)
	n := fs.Int("n", 2, "number of processes")
	coordinator := fs.String("coordinator", "", "rank 0 listen address (default: a free loopback port)")
	verbose := fs.Bool("v", false, "log process lifecycle to stderr")
	_ = fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) == 0 {
		args = []string{"pertmc"}
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintln(os.Stderr, "pertlaunch:", err)
			os.Exit(1)
		}
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := launch.Launch(ctx, launch.Spec{
		Processes:   *n,
		Command:     args[0],
		Args:        args[1:],
		Env:         os.Environ(),
		Coordinator: *coordinator,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}, logger)
	stop()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "pertlaunch:", err)
	var rankErr *launch.RankError
	if errors.As(err, &rankErr) {
		os.Exit(rankErr.ExitCode())
	}
	os.Exit(1)
}
