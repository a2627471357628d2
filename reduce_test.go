// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package pertmc_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/petenewcomb/pertmc-go"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func posInf() float64 { return math.Inf(1) }
func nan() float64 { return math.NaN() }

func drawPartials(t *rapid.T) []pertmc.Partial {
	n := rapid.IntRange(1, 32).Draw(t, "workers")
	partials := make([]pertmc.Partial, n)
	for i := range partials {
		trials := rapid.Int64Range(0, 1<<30).Draw(t, "trials")
		partials[i] = pertmc.Partial{
			Worker:    i,
			Trials:    trials,
			Successes: rapid.Int64Range(0, trials).Draw(t, "successes"),
		}
	}
	return partials
}

func TestFoldIsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		partials := drawPartials(t)
		want := pertmc.Fold(partials...)

		permuted := rapid.Permutation(partials).Draw(t, "order")
		require.Equal(t, want, pertmc.Fold(permuted...))

		// Regrouping into two halves and combining is the same as one fold.
		cut := rapid.IntRange(0, len(partials)).Draw(t, "cut")
		left, right := pertmc.Fold(permuted[:cut]...), pertmc.Fold(permuted[cut:]...)
		require.Equal(t, want.Trials, left.Trials+right.Trials)
		require.Equal(t, want.Successes, left.Successes+right.Successes)
		require.Equal(t, want.Contributors, left.Contributors+right.Contributors)
	})
}

func TestAtomicReducerMatchesFold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		partials := drawPartials(t)
		ctx := context.Background()

		var r pertmc.AtomicReducer
		var wg sync.WaitGroup
		for _, p := range rapid.Permutation(partials).Draw(t, "order") {
			wg.Add(1)
			go func() {
				defer wg.Done()
				require.NoError(t, r.Contribute(ctx, p))
			}()
		}
		wg.Wait()

		got, err := r.Total(ctx)
		require.NoError(t, err)
		require.Equal(t, pertmc.Fold(partials...), got)
	})
}
