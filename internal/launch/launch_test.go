// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package launch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"testing"
	"time"

	"github.com/petenewcomb/pertmc-go"
	"github.com/petenewcomb/pertmc-go/internal/launch"
	"github.com/stretchr/testify/require"
)

// When LAUNCH_HELPER is set the test binary acts as a rank process instead
// of running tests.
func TestMain(m *testing.M) {
	if os.Getenv("LAUNCH_HELPER") == "1" {
		os.Exit(helper())
	}
	os.Exit(m.Run())
}

func helper() int {
	rank := os.Getenv("PERTMC_RANK")
	fmt.Printf("rank=%s size=%s mode=%s seed=%s coordinator=%s\n",
		rank, os.Getenv("PERTMC_SIZE"), os.Getenv("PERTMC_MODE"),
		os.Getenv("PERTMC_SEED"), os.Getenv("PERTMC_COORDINATOR"))
	fmt.Fprintf(os.Stderr, "rank %s done\n", rank)
	if rank == os.Getenv("LAUNCH_FAIL_RANK") {
		return 3
	}
	if os.Getenv("LAUNCH_HANG") == "1" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		select {
		case <-ctx.Done():
			return 4
		case <-time.After(time.Minute):
		}
	}
	return 0
}

func helperSpec(n int, env ...string) launch.Spec {
	return launch.Spec{
		Processes: n,
		Command:   os.Args[0],
		Args:      []string{"-test.run=^$"},
		Env:       append([]string{"LAUNCH_HELPER=1", "PATH=" + os.Getenv("PATH")}, env...),
	}
}

func TestLaunchRunsEveryRank(t *testing.T) {
	chk := require.New(t)
	var stdout, stderr bytes.Buffer
	spec := helperSpec(3, "PERTMC_SEED=99", "PERTMC_RANK=7")
	spec.Coordinator = "127.0.0.1:4567"
	spec.Stdout = &stdout
	spec.Stderr = &stderr

	chk.NoError(launch.Launch(context.Background(), spec, nil))
	chk.Equal("rank=0 size=3 mode=distributed seed=99 coordinator=127.0.0.1:4567\n", stdout.String(),
		"only rank 0's output is forwarded")
	for rank := range 3 {
		chk.Contains(stderr.String(), fmt.Sprintf("rank %d done\n", rank))
	}
}

func TestLaunchSharesDrawnSeed(t *testing.T) {
	chk := require.New(t)
	var stdout bytes.Buffer
	spec := helperSpec(1, "PERTMC_SEED=0")
	spec.Stdout = &stdout
	chk.NoError(launch.Launch(context.Background(), spec, nil))

	out := stdout.String()
	chk.NotContains(out, "seed=0 ")
	chk.NotContains(out, "seed= ")
	chk.Contains(out, "coordinator=127.0.0.1:")
}

func TestLaunchFailureCancelsOtherRanks(t *testing.T) {
	chk := require.New(t)
	spec := helperSpec(4, "LAUNCH_FAIL_RANK=2", "LAUNCH_HANG=1")

	start := time.Now()
	err := launch.Launch(context.Background(), spec, nil)
	chk.Less(time.Since(start), 30*time.Second, "hung ranks must be interrupted")

	var rankErr *launch.RankError
	chk.True(errors.As(err, &rankErr))
	chk.Equal(2, rankErr.Rank)
	chk.Equal(3, rankErr.ExitCode())
}

func TestLaunchRejectsBadSpec(t *testing.T) {
	chk := require.New(t)
	chk.ErrorIs(launch.Launch(context.Background(), launch.Spec{Command: "x"}, nil), pertmc.ErrConfiguration)
	err := launch.Launch(context.Background(), launch.Spec{Processes: 1}, nil)
	chk.ErrorIs(err, pertmc.ErrConfiguration)
	chk.True(strings.Contains(err.Error(), "command"))
}
