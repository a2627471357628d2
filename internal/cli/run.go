// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/petenewcomb/pertmc-go"
	"github.com/petenewcomb/pertmc-go/cluster"
	"github.com/petenewcomb/pertmc-go/otpmc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run parses args and environ and executes the resulting invocation. It
// returns the process exit status along with any error worth reporting.
func Run(ctx context.Context, args []string, environ map[string]string, stdout, stderr io.Writer) (int, error) {
	inv, err := ParseInvocation(args, environ)
	if err != nil {
		return ExitCode(err), err
	}
	err = Execute(ctx, inv, stdout, stderr)
	return ExitCode(err), err
}

// Execute runs inv, logging to stderr and writing the estimate to stdout.
// Only the shared-memory run and rank 0 of a distributed run write a report.
func Execute(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (err error) {
	logger := newLogger(stderr, inv.LogLevel)
	defer func() { _ = logger.Sync() }()
	defer zap.ReplaceGlobals(logger)()

	if inv.Trace {
		shutdown, terr := otpmc.SetupTracing(stderr)
		if terr != nil {
			return fmt.Errorf("tracing: %w", terr)
		}
		defer func() {
			if serr := shutdown(context.WithoutCancel(ctx)); serr != nil && err == nil {
				err = fmt.Errorf("flush traces: %w", serr)
			}
		}()
	}

	logger.Debug("run",
		zap.String("mode", string(inv.Mode)),
		zap.Int64("trials", inv.Config.Trials),
		zap.Float64("deadline", inv.Config.Deadline),
		zap.Int("workers", inv.Config.Workers),
		zap.Uint64("seed", inv.Config.Seed),
		zap.Stringer("model", inv.Model))

	var est *pertmc.Estimate
	switch inv.Mode {
	case pertmc.ModeDistributed:
		est, err = cluster.Run(ctx, inv.Config, inv.Model, inv.Node, cluster.WithLogger(logger))
	default:
		est, err = otpmc.Simulate(ctx, inv.Config, inv.Model, pertmc.WithLogger(logger))
	}
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return err
	}
	if est == nil {
		return nil
	}

	switch inv.Format {
	case FormatJSON:
		err = est.WriteJSON(stdout)
	default:
		err = est.WriteText(stdout)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(core)
}
