// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/petenewcomb/pertmc-go"
	"github.com/petenewcomb/pertmc-go/internal/cli"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// baseEnv pins the seed so that parsing never consults system entropy.
func baseEnv(extra ...string) map[string]string {
	m := map[string]string{"PERTMC_SEED": "12345"}
	for i := 0; i+1 < len(extra); i += 2 {
		m[extra[i]] = extra[i+1]
	}
	return m
}

func TestParseInvocationDefaults(t *testing.T) {
	chk := require.New(t)
	inv, err := cli.ParseInvocation(nil, baseEnv())
	chk.NoError(err)
	chk.Equal(pertmc.ModeShared, inv.Mode)
	chk.Equal(int64(pertmc.DefaultTrials), inv.Config.Trials)
	chk.Equal(pertmc.DefaultDeadline, inv.Config.Deadline)
	chk.GreaterOrEqual(inv.Config.Workers, 1)
	chk.Equal(uint64(12345), inv.Config.Seed)
	chk.Nil(inv.Config.Budget)
	chk.Equal(pertmc.DefaultModel().String(), inv.Model.String())
	chk.Equal(cli.FormatText, inv.Format)
	chk.Equal(zapcore.WarnLevel, inv.LogLevel)
}

func TestParseInvocationPositionalArgs(t *testing.T) {
	chk := require.New(t)
	inv, err := cli.ParseInvocation([]string{"5000", "36.5"}, baseEnv())
	chk.NoError(err)
	chk.Equal(int64(5000), inv.Config.Trials)
	chk.Equal(36.5, inv.Config.Deadline)
}

func TestParseInvocationEnvironmentAndFlags(t *testing.T) {
	chk := require.New(t)
	inv, err := cli.ParseInvocation(
		[]string{"-seed", "7", "-format", "json", "100"},
		baseEnv(
			"PERTMC_WORKERS", "8",
			"PERTMC_TASKS", "a=pert:1,2,3@5;b=normal:4,1",
			"PERTMC_BUDGET", "40",
			"PERTMC_LOG_LEVEL", "debug",
			"PERTMC_TRACE", "true",
		))
	chk.NoError(err)
	chk.Equal(8, inv.Config.Workers)
	chk.Equal(uint64(7), inv.Config.Seed, "flags override the environment")
	chk.Equal(cli.FormatJSON, inv.Format)
	chk.Equal(int64(100), inv.Config.Trials)
	chk.Equal(2, inv.Model.Len())
	chk.Equal(40.0, *inv.Config.Budget)
	chk.Equal(zapcore.DebugLevel, inv.LogLevel)
	chk.True(inv.Trace)
}

func TestParseInvocationDistributed(t *testing.T) {
	chk := require.New(t)
	inv, err := cli.ParseInvocation(nil, baseEnv(
		"PERTMC_MODE", "distributed",
		"PERTMC_RANK", "2",
		"PERTMC_SIZE", "4",
		"PERTMC_COORDINATOR", "10.0.0.1:9000",
	))
	chk.NoError(err)
	chk.Equal(pertmc.ModeDistributed, inv.Mode)
	chk.Equal(2, inv.Node.Rank)
	chk.Equal(4, inv.Node.Size)
	chk.Equal("10.0.0.1:9000", inv.Node.Address)
	chk.Equal(4, inv.Config.Workers)
}

func TestParseInvocationDrawsSeed(t *testing.T) {
	chk := require.New(t)
	inv, err := cli.ParseInvocation(nil, map[string]string{})
	chk.NoError(err)
	chk.NotZero(inv.Config.Seed)
}

func TestParseInvocationRejectsMalformedInput(t *testing.T) {
	for name, tc := range map[string]struct {
		args []string
		env  map[string]string
	}{
		"non-numeric trials":   {[]string{"lots"}, baseEnv()},
		"zero trials":          {[]string{"0"}, baseEnv()},
		"negative trials":      {[]string{"-5"}, baseEnv()},
		"fractional trials":    {[]string{"1.5"}, baseEnv()},
		"non-numeric deadline": {[]string{"10", "soon"}, baseEnv()},
		"infinite deadline":    {[]string{"10", "+Inf"}, baseEnv()},
		"extra argument":       {[]string{"10", "20", "30"}, baseEnv()},
		"unknown flag":         {[]string{"-bogus"}, baseEnv()},
		"workers flag":         {[]string{"-workers", "3"}, baseEnv()},
		"overflowing tasks":    {nil, baseEnv("PERTMC_TASKS", "pert:-1e308,0,1e308")},
		"bad workers env":      {nil, baseEnv("PERTMC_WORKERS", "many")},
		"negative workers":     {nil, baseEnv("PERTMC_WORKERS", "-2")},
		"bad mode":             {nil, baseEnv("PERTMC_MODE", "cloud")},
		"bad format":           {nil, baseEnv("PERTMC_FORMAT", "xml")},
		"bad level":            {nil, baseEnv("PERTMC_LOG_LEVEL", "loud")},
		"bad budget":           {nil, baseEnv("PERTMC_BUDGET", "cheap")},
		"bad tasks":            {nil, baseEnv("PERTMC_TASKS", "pert:3,2,1")},
		"rank out of range":    {nil, baseEnv("PERTMC_MODE", "distributed", "PERTMC_RANK", "4", "PERTMC_SIZE", "4")},
	} {
		t.Run(name, func(t *testing.T) {
			chk := require.New(t)
			_, err := cli.ParseInvocation(tc.args, tc.env)
			chk.Error(err)
			chk.Equal(cli.ExitConfigError, cli.ExitCode(err))
		})
	}
}

func TestExitCode(t *testing.T) {
	chk := require.New(t)
	chk.Equal(cli.ExitSuccess, cli.ExitCode(nil))
	chk.Equal(cli.ExitConfigError, cli.ExitCode(&pertmc.ConfigError{Field: "x"}))
	chk.Equal(cli.ExitInternalError, cli.ExitCode(&pertmc.SamplingError{Reason: "x"}))
}

func TestRunSharedText(t *testing.T) {
	chk := require.New(t)
	var stdout, stderr bytes.Buffer
	code, err := cli.Run(context.Background(), []string{"2000", "100"},
		baseEnv("PERTMC_WORKERS", "2"), &stdout, &stderr)
	chk.NoError(err)
	chk.Equal(cli.ExitSuccess, code)
	chk.Contains(stdout.String(), "=== PERT Monte Carlo (shared) ===\n")
	chk.Contains(stdout.String(), "Trials: 2000\n")
	chk.Contains(stdout.String(), "Workers: 2\n")
	chk.Contains(stdout.String(), "Probability <= 100.0000: 100.0000%\n")
	chk.Empty(stderr.String(), "nothing is logged at the default level")
}

func TestRunSharedJSON(t *testing.T) {
	chk := require.New(t)
	var stdout, stderr bytes.Buffer
	code, err := cli.Run(context.Background(), []string{"-format", "json", "1000", "29"},
		baseEnv("PERTMC_WORKERS", "3", "PERTMC_LOG_LEVEL", "info"), &stdout, &stderr)
	chk.NoError(err)
	chk.Equal(cli.ExitSuccess, code)

	var doc map[string]any
	chk.NoError(json.Unmarshal(stdout.Bytes(), &doc))
	chk.Equal("shared", doc["mode"])
	chk.Equal(0.0, doc["probability"])
	chk.Len(doc["partials"], 3)
	chk.Contains(stderr.String(), `"msg":"estimate"`)
}

func TestRunDistributedSingleProcess(t *testing.T) {
	chk := require.New(t)
	var stdout, stderr bytes.Buffer
	code, err := cli.Run(context.Background(), []string{"1000", "100"},
		baseEnv("PERTMC_MODE", "distributed", "PERTMC_COORDINATOR", "127.0.0.1:0"), &stdout, &stderr)
	chk.NoError(err)
	chk.Equal(cli.ExitSuccess, code)
	chk.Contains(stdout.String(), "=== PERT Monte Carlo (distributed) ===\n")
	chk.Contains(stdout.String(), "Processes: 1\n")
}

func TestRunConfigErrorWritesNothing(t *testing.T) {
	chk := require.New(t)
	var stdout, stderr bytes.Buffer
	code, err := cli.Run(context.Background(), []string{"abc"}, baseEnv(), &stdout, &stderr)
	chk.Error(err)
	chk.Equal(cli.ExitConfigError, code)
	chk.Empty(stdout.String())
}

func TestRunWithTracing(t *testing.T) {
	chk := require.New(t)
	var stdout, stderr bytes.Buffer
	code, err := cli.Run(context.Background(), []string{"1000"},
		baseEnv("PERTMC_WORKERS", "2", "PERTMC_TRACE", "1"), &stdout, &stderr)
	chk.NoError(err)
	chk.Equal(cli.ExitSuccess, code)
	chk.Contains(stderr.String(), `"Name": "pertmc.simulate"`)
	chk.Contains(stderr.String(), `"Name": "pertmc.worker"`)
}
