package dataset

import (
	"testing"
	"time"

	"featimp/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func minutes(n int) time.Time { return t0.Add(time.Duration(n) * time.Minute) }

func TestNewMatrix(t *testing.T) {
	m, err := NewMatrix([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, m.At(1, 1))

	j, ok := m.ColumnIndex("b")
	assert.True(t, ok)
	assert.Equal(t, 1, j)
	_, ok = m.ColumnIndex("z")
	assert.False(t, ok)
}

func TestNewMatrix_Errors(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		rows  [][]float64
	}{
		{"no features", nil, [][]float64{{1}}},
		{"no rows", []string{"a"}, nil},
		{"duplicate names", []string{"a", "a"}, [][]float64{{1, 2}}},
		{"ragged", []string{"a", "b"}, [][]float64{{1, 2}, {3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMatrix(tt.names, tt.rows)
			assert.ErrorIs(t, err, common.ErrDimensionMismatch)
		})
	}
}

func TestMatrix_AccessorsCopy(t *testing.T) {
	m, err := NewMatrix([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	names := m.Names()
	names[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, m.Names())

	rows := m.Rows([]int{1})
	rows.Set(0, 0, 100)
	assert.Equal(t, 3.0, m.At(1, 0))

	col, err := m.Column("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, col.Names())
	assert.Equal(t, 4.0, col.At(1, 0))

	_, err = m.Column("missing")
	assert.ErrorIs(t, err, common.ErrDimensionMismatch)
}

func TestSpan_Overlaps(t *testing.T) {
	a := Span{Start: minutes(0), End: minutes(5)}
	assert.True(t, a.Overlaps(Span{Start: minutes(4), End: minutes(8)}))
	assert.True(t, a.Overlaps(Span{Start: minutes(1), End: minutes(2)}))
	assert.False(t, a.Overlaps(Span{Start: minutes(5), End: minutes(9)}), "touching spans")
	assert.False(t, a.Overlaps(Span{Start: minutes(6), End: minutes(9)}))
}

func TestEvents_Validate(t *testing.T) {
	m, err := NewMatrix([]string{"a"}, [][]float64{{1}, {2}, {3}})
	require.NoError(t, err)

	spans := []Span{
		{Start: minutes(0), End: minutes(2)},
		{Start: minutes(1), End: minutes(3)},
		{Start: minutes(2), End: minutes(4)},
	}

	ok := &Events{Labels: []float64{0, 1, 0}, Spans: spans}
	assert.NoError(t, ok.Validate(m))

	tests := []struct {
		name string
		ev   *Events
	}{
		{"labels", &Events{Labels: []float64{0, 1}, Spans: spans}},
		{"weights", &Events{Labels: []float64{0, 1, 0}, Weights: []float64{1}, Spans: spans}},
		{"negative weight", &Events{Labels: []float64{0, 1, 0}, Weights: []float64{1, -1, 1}, Spans: spans}},
		{"spans", &Events{Labels: []float64{0, 1, 0}, Spans: spans[:2]}},
		{"inverted span", &Events{Labels: []float64{0, 1, 0}, Spans: []Span{
			spans[0], {Start: minutes(3), End: minutes(1)}, spans[2],
		}}},
		{"unordered starts", &Events{Labels: []float64{0, 1, 0}, Spans: []Span{
			spans[1], spans[0], spans[2],
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.ev.Validate(m), common.ErrDimensionMismatch)
		})
	}
}

func TestTake(t *testing.T) {
	assert.Nil(t, Take(nil, []int{0}))
	assert.Equal(t, []float64{30, 10}, Take([]float64{10, 20, 30}, []int{2, 0}))
}

func TestSynthetic(t *testing.T) {
	m, ev, err := Synthetic(SyntheticConfig{Samples: 50, Informative: 1, Noise: 2, Horizon: 3, Seed: 4})
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 50, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []string{"I0", "N0", "N1"}, m.Names())
	require.NoError(t, ev.Validate(m))

	for i := 0; i < r; i++ {
		assert.Equal(t, ev.Labels[i], m.At(i, 0))
		assert.Contains(t, []float64{-1, 1}, ev.Labels[i])
		assert.Equal(t, 3*time.Minute, ev.Spans[i].End.Sub(ev.Spans[i].Start))
	}

	again, _, err := Synthetic(SyntheticConfig{Samples: 50, Informative: 1, Noise: 2, Horizon: 3, Seed: 4})
	require.NoError(t, err)
	assert.Equal(t, m.At(10, 1), again.At(10, 1))

	_, _, err = Synthetic(SyntheticConfig{})
	assert.Error(t, err)
}
