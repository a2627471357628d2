// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package seed derives independent, reproducible generator streams for
// simulation workers.
package seed

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

const golden = 0x9e3779b97f4a7c15

// splitmix64 is the finalizer from Steele, Lea and Flood's SplitMix; adjacent
// inputs produce statistically unrelated outputs.
func splitmix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Derive returns the two PCG seed words for the worker with the given index.
// The mapping is a pure function of (base, index).
func Derive(base uint64, index int) (uint64, uint64) {
	hi := splitmix64(base ^ splitmix64(uint64(index)))
	lo := splitmix64(hi ^ uint64(index))
	return hi, lo
}

// NewSource returns the generator owned by the worker with the given index.
func NewSource(base uint64, index int) *rand.PCG {
	return rand.NewPCG(Derive(base, index))
}

// NewBase draws a base seed from the operating system's entropy source.
func NewBase() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
