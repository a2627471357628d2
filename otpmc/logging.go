// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otpmc

import (
	"context"
	"time"

	"github.com/petenewcomb/pertmc-go"
	"go.uber.org/zap"
)

// LoggedTask logs the start and completion of taskFunc to the global zap
// logger, including its duration and any error.
func LoggedTask[T any](
	operationName string,
	taskFunc pertmc.TaskFunc[T],
) pertmc.TaskFunc[T] {
	return func(ctx context.Context) (T, error) {
		logger := zap.L().With(
			zap.String("operation", operationName),
			zap.String("component", component))
		logger.Debug("starting task")

		startTime := time.Now()
		result, err := taskFunc(ctx)
		duration := time.Since(startTime)

		if err != nil {
			logger.Error("task failed", zap.Duration("duration", duration), zap.Error(err))
		} else {
			logger.Debug("task completed", zap.Duration("duration", duration))
		}
		return result, err
	}
}

// LoggedGather logs each invocation of gatherFunc to the global zap logger.
func LoggedGather[T any](
	operationName string,
	gatherFunc pertmc.GatherFunc[T],
) pertmc.GatherFunc[T] {
	return func(ctx context.Context, result T, err error) error {
		logger := zap.L().With(
			zap.String("operation", operationName),
			zap.String("component", component))
		logger.Debug("processing gather", zap.Bool("input_has_error", err != nil))

		startTime := time.Now()
		gatherErr := gatherFunc(ctx, result, err)
		duration := time.Since(startTime)

		if gatherErr != nil {
			logger.Error("gather failed", zap.Duration("duration", duration), zap.Error(gatherErr))
		} else {
			logger.Debug("gather completed", zap.Duration("duration", duration))
		}
		return gatherErr
	}
}
