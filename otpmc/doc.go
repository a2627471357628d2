// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package otpmc adds structured logging, OpenTelemetry metrics and tracing to
// pertmc simulations. The wrappers preserve the task and gather types, so they
// plug directly into [pertmc.WithTaskWrapper] and [pertmc.WithGatherWrapper].
//
// Task contexts derive from the context passed to [pertmc.Simulate], and
// gathers run with the caller's context, so spans started here nest under
// whatever span the caller has active without explicit propagation.
package otpmc

const (
	instrumentationName = "github.com/petenewcomb/pertmc-go/otpmc"
	component           = "otpmc"
)
