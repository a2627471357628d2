// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package cluster

import (
	"context"
	"fmt"

	"github.com/petenewcomb/pertmc-go"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client contributes a rank's partial to a remote [Coordinator].
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for the coordinator at target. The connection is
// established lazily; opts are applied after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	defaults := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
	conn, err := grpc.NewClient(target, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Reduce sends p as the contribution of rank p.Worker in a cluster of size
// ranks and blocks until the coordinator returns the global total. The call
// waits for the coordinator to come up rather than failing fast, since ranks
// are started concurrently.
func (c *Client) Reduce(ctx context.Context, size int, p pertmc.Partial) (pertmc.Reduction, error) {
	req := &ReduceRequest{
		Rank:      p.Worker,
		Size:      size,
		Trials:    p.Trials,
		Successes: p.Successes,
		ElapsedNS: int64(p.Elapsed),
	}
	resp := new(ReduceResponse)
	if err := c.conn.Invoke(ctx, reduceMethod, req, resp, grpc.WaitForReady(true)); err != nil {
		return pertmc.Reduction{}, fmt.Errorf("reduce rank %d: %w", p.Worker, err)
	}
	return pertmc.Reduction{
		Trials:       resp.Trials,
		Successes:    resp.Successes,
		Contributors: resp.Contributors,
	}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
