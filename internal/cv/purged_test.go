package cv

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"featimp/internal/common"
	"featimp/internal/dataset"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// barSpans returns n one-minute bars whose labels resolve horizon bars later.
func barSpans(n, horizon int) []dataset.Span {
	spans := make([]dataset.Span, n)
	for i := range spans {
		start := origin.Add(time.Duration(i) * time.Minute)
		spans[i] = dataset.Span{Start: start, End: start.Add(time.Duration(horizon) * time.Minute)}
	}
	return spans
}

func TestPurgedKFold_PurgesAndEmbargoes(t *testing.T) {
	splitter, err := NewPurgedKFold(5, barSpans(10, 2), 0.1, true)
	require.NoError(t, err)
	assert.Equal(t, 5, splitter.NSplits())
	assert.Equal(t, 1, splitter.Embargo(10))

	folds, err := splitter.Split(10)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	assert.Equal(t, []int{0, 1}, folds[0].Test)
	assert.Equal(t, []int{4, 5, 6, 7, 8, 9}, folds[0].Train)

	assert.Equal(t, []int{4, 5}, folds[2].Test)
	assert.Equal(t, []int{0, 1, 2, 8, 9}, folds[2].Train)

	assert.Equal(t, []int{8, 9}, folds[4].Test)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, folds[4].Train)
}

func TestPurgedKFold_WithoutPurging(t *testing.T) {
	splitter, err := NewPurgedKFold(5, barSpans(10, 2), 0.1, false)
	require.NoError(t, err)

	folds, err := splitter.Split(10)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 6, 7, 8, 9}, folds[2].Train)
}

func TestPurgedKFold_UnevenBlocks(t *testing.T) {
	splitter, err := NewPurgedKFold(3, barSpans(11, 0), 0, true)
	require.NoError(t, err)

	folds, err := splitter.Split(11)
	require.NoError(t, err)
	var sizes []int
	for _, f := range folds {
		sizes = append(sizes, len(f.Test))
	}
	assert.Equal(t, []int{4, 4, 3}, sizes)

	// Zero-length spans never overlap, so nothing is purged.
	for _, f := range folds {
		assert.Len(t, f.Train, 11-len(f.Test))
	}
}

func TestPurgedKFold_TouchingSpansAreKept(t *testing.T) {
	// Each label resolves exactly when the next bar opens.
	splitter, err := NewPurgedKFold(2, barSpans(6, 1), 0, true)
	require.NoError(t, err)

	folds, err := splitter.Split(6)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, folds[0].Train)
	assert.Equal(t, []int{0, 1, 2}, folds[1].Train)
}

func TestPurgedKFold_Validation(t *testing.T) {
	spans := barSpans(10, 1)
	tests := []struct {
		name    string
		nSplits int
		spans   []dataset.Span
		pct     float64
		want    error
	}{
		{"one split", 1, spans, 0, common.ErrInvalidConfiguration},
		{"more splits than samples", 11, spans, 0, common.ErrInvalidConfiguration},
		{"negative embargo", 2, spans, -0.1, common.ErrInvalidConfiguration},
		{"embargo of one", 2, spans, 1, common.ErrInvalidConfiguration},
		{"unordered spans", 2, []dataset.Span{spans[1], spans[0], spans[2]}, 0, common.ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPurgedKFold(tt.nSplits, tt.spans, tt.pct, true)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPurgedKFold_SplitErrors(t *testing.T) {
	splitter, err := NewPurgedKFold(2, barSpans(10, 1), 0, true)
	require.NoError(t, err)
	_, err = splitter.Split(9)
	assert.ErrorIs(t, err, common.ErrDimensionMismatch)

	// Every label spans the whole sample, so purging leaves nothing to train on.
	spans := make([]dataset.Span, 4)
	for i := range spans {
		spans[i] = dataset.Span{Start: origin.Add(time.Duration(i) * time.Minute), End: origin.Add(time.Hour)}
	}
	greedy, err := NewPurgedKFold(2, spans, 0, true)
	require.NoError(t, err)
	_, err = greedy.Split(4)
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
}

func TestPurgedKFold_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("folds never leak overlapping or embargoed samples", prop.ForAll(
		func(n, k, maxHorizon int, pct float64, seed uint64) bool {
			rng := rand.New(rand.NewPCG(seed, 1))
			spans := make([]dataset.Span, n)
			for i := range spans {
				start := origin.Add(time.Duration(i) * time.Minute)
				spans[i] = dataset.Span{Start: start, End: start.Add(time.Duration(rng.IntN(maxHorizon+1)) * time.Minute)}
			}

			splitter, err := NewPurgedKFold(k, spans, pct, true)
			if err != nil {
				return false
			}
			folds, err := splitter.Split(n)
			if err != nil {
				return errors.Is(err, common.ErrInvalidConfiguration)
			}

			covered := make([]int, n)
			embargo := splitter.Embargo(n)
			for _, f := range folds {
				inTest := make(map[int]bool, len(f.Test))
				for _, j := range f.Test {
					inTest[j] = true
					covered[j]++
				}
				last := f.Test[len(f.Test)-1]
				for _, i := range f.Train {
					if inTest[i] {
						return false
					}
					if i > last && i <= last+embargo {
						return false
					}
					for _, j := range f.Test {
						if spans[i].Overlaps(spans[j]) {
							return false
						}
					}
				}
			}
			for _, c := range covered {
				if c != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(20, 120),
		gen.IntRange(2, 8),
		gen.IntRange(0, 6),
		gen.Float64Range(0, 0.1),
		gen.UInt64(),
	))

	properties.Property("no purging keeps the full complement", prop.ForAll(
		func(n, k int) bool {
			splitter, err := NewPurgedKFold(k, barSpans(n, 5), 0.05, false)
			if err != nil {
				return false
			}
			folds, err := splitter.Split(n)
			if err != nil {
				return false
			}
			for _, f := range folds {
				if len(f.Train)+len(f.Test) != n {
					return false
				}
			}
			return true
		},
		gen.IntRange(10, 100),
		gen.IntRange(2, 10),
	))

	properties.TestingRun(t)
}
