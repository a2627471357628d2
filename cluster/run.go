// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package cluster

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/petenewcomb/pertmc-go"
	"github.com/petenewcomb/pertmc-go/internal/state"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// NodeConfig identifies one process of a distributed run.
type NodeConfig struct {
	// Rank is this process's index in [0, Size). Rank 0 hosts the
	// coordinator.
	Rank int
	// Size is the number of processes in the run.
	Size int
	// Address is where rank 0 listens and the other ranks dial.
	Address string
}

// Validate returns a [pertmc.ConfigError] describing the first invalid field.
func (n NodeConfig) Validate() error {
	if n.Size < 1 {
		return &pertmc.ConfigError{Field: "size", Reason: fmt.Sprintf("must be at least 1, got %d", n.Size)}
	}
	if n.Rank < 0 || n.Rank >= n.Size {
		return &pertmc.ConfigError{Field: "rank", Reason: fmt.Sprintf("must be in [0, %d), got %d", n.Size, n.Rank)}
	}
	if n.Address == "" && n.Size > 1 {
		return &pertmc.ConfigError{Field: "coordinator", Reason: "address is required with more than one process"}
	}
	return nil
}

// An Option customizes [Run].
type Option func(*options)

type options struct {
	logger     *zap.Logger
	listener   net.Listener
	dialOpts   []grpc.DialOption
	serverOpts []grpc.ServerOption
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithListener makes rank 0 serve on lis instead of listening on the node
// address. Run closes lis when it returns.
func WithListener(lis net.Listener) Option {
	return func(o *options) {
		o.listener = lis
	}
}

// WithDialOptions appends options used when other ranks dial the coordinator.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) {
		o.dialOpts = append(o.dialOpts, opts...)
	}
}

// WithServerOptions appends options for the coordinator's gRPC server.
func WithServerOptions(opts ...grpc.ServerOption) Option {
	return func(o *options) {
		o.serverOpts = append(o.serverOpts, opts...)
	}
}

// Run executes one rank of a distributed simulation. The trials of cfg are
// partitioned across node.Size processes exactly as [pertmc.Simulate]
// partitions them across workers, and each rank seeds its generator from
// cfg.Seed and its rank, so a run over N processes counts the same successes
// as a shared-memory run with N workers. cfg.Workers is ignored.
//
// Every rank participates in exactly one blocking reduction. Rank 0 returns
// the Estimate; the other ranks return a nil Estimate once the global total
// has been confirmed.
func Run(ctx context.Context, cfg pertmc.Config, model *pertmc.Model, node NodeConfig, opts ...Option) (*pertmc.Estimate, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.listener != nil {
		defer o.listener.Close()
	}
	log := o.logger.With(zap.Int("rank", node.Rank), zap.Int("size", node.Size))

	var lc state.Lifecycle
	if err := node.Validate(); err != nil {
		return nil, err
	}
	cfg.Workers = node.Size
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, &pertmc.ConfigError{Field: "tasks", Reason: "model must be non-nil"}
	}
	start := time.Now()

	if node.Rank == 0 {
		return runCoordinator(ctx, cfg, model, node, &o, &lc, log, start)
	}
	return nil, runContributor(ctx, cfg, model, node, &o, &lc, log)
}

func runCoordinator(
	ctx context.Context,
	cfg pertmc.Config,
	model *pertmc.Model,
	node NodeConfig,
	o *options,
	lc *state.Lifecycle,
	log *zap.Logger,
	start time.Time,
) (*pertmc.Estimate, error) {
	lis := o.listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", node.Address)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", node.Address, err)
		}
	}

	coord := NewCoordinator(node.Size)
	srv := grpc.NewServer(append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	}, o.serverOpts...)...)
	Register(srv, coord)
	defer srv.Stop()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			cancel(fmt.Errorf("serve: %w", err))
		}
	}()
	log.Debug("coordinator listening", zap.Stringer("address", lis.Addr()))

	p, err := sample(ctx, cfg, model, node, lc, log)
	if err != nil {
		return nil, err
	}
	total, err := coord.Contribute(ctx, p)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return nil, cause
		}
		return nil, err
	}
	// Every other rank's call has been answered by now; let the responses
	// drain before tearing the server down.
	srv.GracefulStop()
	if err := total.Verify(cfg.Trials); err != nil {
		return nil, err
	}

	lc.Advance(state.StageReporting)
	est := pertmc.NewEstimate(pertmc.ModeDistributed, cfg, total, time.Since(start), coord.Partials())
	log.Info("estimate", zap.Int64("trials", est.Trials), zap.Int64("successes", est.Successes),
		zap.Float64("probability", est.Probability), zap.Duration("elapsed", est.Elapsed))
	lc.Advance(state.StageDone)
	return est, nil
}

func runContributor(
	ctx context.Context,
	cfg pertmc.Config,
	model *pertmc.Model,
	node NodeConfig,
	o *options,
	lc *state.Lifecycle,
	log *zap.Logger,
) error {
	client, err := Dial(node.Address, o.dialOpts...)
	if err != nil {
		return err
	}
	defer client.Close()

	p, err := sample(ctx, cfg, model, node, lc, log)
	if err != nil {
		return err
	}
	total, err := client.Reduce(ctx, node.Size, p)
	if err != nil {
		return err
	}
	if err := total.Verify(cfg.Trials); err != nil {
		return err
	}
	lc.Advance(state.StageReporting)
	lc.Advance(state.StageDone)
	log.Debug("reduced", zap.Int64("successes", total.Successes))
	return nil
}

// sample runs this rank's share of the trials and leaves the lifecycle in
// the reducing stage.
func sample(
	ctx context.Context,
	cfg pertmc.Config,
	model *pertmc.Model,
	node NodeConfig,
	lc *state.Lifecycle,
	log *zap.Logger,
) (pertmc.Partial, error) {
	lc.Advance(state.StageSampling)
	span := pertmc.Partition(cfg.Trials, node.Size)[node.Rank]
	log.Debug("stage", zap.Stringer("stage", lc.Current()), zap.Int64("trials", span.Count))

	p, err := pertmc.RunWorker(ctx, model, cfg, span)
	if err != nil {
		return p, fmt.Errorf("rank %d: %w", node.Rank, err)
	}
	lc.Advance(state.StageReducing)
	log.Debug("stage", zap.Stringer("stage", lc.Current()),
		zap.Int64("successes", p.Successes), zap.Duration("elapsed", p.Elapsed))
	return p, nil
}
