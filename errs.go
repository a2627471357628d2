// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc

import (
	"fmt"
)

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrConfiguration is matched (via [errors.Is]) by every error reporting an
// invalid configuration, model, or distribution parameter set. Such errors are
// always returned before any sampling begins.
const ErrConfiguration = constError("invalid configuration")

// ErrSampling is matched by every error reporting an internal invariant
// violation detected while sampling or reducing. It indicates a bug rather
// than bad input.
const ErrSampling = constError("sampling invariant violated")

// ConfigError describes a rejected configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SamplingError describes a drawn value that broke a distribution or
// reduction invariant.
type SamplingError struct {
	Task   string
	Value  float64
	Reason string
}

func (e *SamplingError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("%v: %s", ErrSampling, e.Reason)
	}
	return fmt.Sprintf("%v: task %q: %s (value %v)", ErrSampling, e.Task, e.Reason, e.Value)
}

func (e *SamplingError) Unwrap() error {
	return ErrSampling
}
