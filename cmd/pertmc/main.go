// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command pertmc estimates the probability that a project of stochastic tasks
// finishes by a deadline.
//
//	pertmc [flags] [trial_count [deadline]]
//
// Parallelism comes from PERTMC_WORKERS in shared mode, or from the rank
// variables set by pertlaunch in distributed mode.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/petenewcomb/pertmc-go/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code, err := cli.Run(ctx, os.Args[1:], nil, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "pertmc:", err)
	}
	os.Exit(code)
}
