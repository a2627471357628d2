// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package pertmc estimates, by Monte Carlo sampling, the probability that a
// project made of stochastic tasks finishes at or before a deadline.
//
// Each task's duration follows a [Distribution], either a three-point
// [BetaPERT] estimate or a [Normal]. A [Model] is an ordered set of tasks; one
// trial draws a duration for every task and succeeds when the total meets the
// deadline (and, optionally, when the total cost stays within a budget).
//
// [Simulate] partitions the configured trials exactly across a fixed number
// of workers, each owning a private generator stream derived from a base
// seed and its index. Workers run concurrently as tasks in a scatter-gather
// [Job]; each folds its local success count into a shared [Reducer] exactly
// once when it finishes. Because the fold is a commutative sum and each
// worker's stream depends only on its index, the result for a given seed,
// trial count and worker count does not depend on scheduling.
//
// The cluster subpackage provides the distributed equivalent, in which each
// process runs one worker and joins a single collective reduction.
package pertmc
