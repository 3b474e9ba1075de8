// Package dataset holds the read-only inputs of an importance computation:
// a time-ordered feature matrix and the events container carrying labels,
// sample weights and the event span of every observation.
//
// Nothing in this package mutates its inputs after construction. Row and
// column accessors always return fresh copies so estimators can perturb
// them freely.
package dataset

import (
	"fmt"
	"time"

	"featimp/internal/common"

	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable, time-ordered feature matrix with named columns.
type Matrix struct {
	names []string
	data  *mat.Dense
}

// NewMatrix builds a matrix from row-major values. Every row must have
// exactly len(names) columns.
func NewMatrix(names []string, rows [][]float64) (*Matrix, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: matrix needs at least one feature", common.ErrDimensionMismatch)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: matrix needs at least one row", common.ErrDimensionMismatch)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return nil, fmt.Errorf("%w: duplicate feature name %q", common.ErrDimensionMismatch, n)
		}
		seen[n] = struct{}{}
	}

	flat := make([]float64, 0, len(rows)*len(names))
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", common.ErrDimensionMismatch, i, len(r), len(names))
		}
		flat = append(flat, r...)
	}

	return &Matrix{
		names: append([]string(nil), names...),
		data:  mat.NewDense(len(rows), len(names), flat),
	}, nil
}

// Dims returns the number of samples and features.
func (m *Matrix) Dims() (samples, features int) {
	return m.data.Dims()
}

// Names returns a copy of the feature names in column order.
func (m *Matrix) Names() []string {
	return append([]string(nil), m.names...)
}

// At returns the value of feature j at sample i.
func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// ColumnIndex returns the position of the named feature.
func (m *Matrix) ColumnIndex(name string) (int, bool) {
	for j, n := range m.names {
		if n == name {
			return j, true
		}
	}
	return -1, false
}

// View exposes the matrix as a read-only mat.Matrix. Callers must not
// type-assert it back to a mutable type.
func (m *Matrix) View() mat.Matrix {
	return m.data
}

// Rows copies the selected samples into a new dense matrix.
func (m *Matrix) Rows(idx []int) *mat.Dense {
	_, c := m.data.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for k, i := range idx {
		out.SetRow(k, m.data.RawRowView(i))
	}
	return out
}

// Column returns a single-feature matrix holding a copy of the named column.
func (m *Matrix) Column(name string) (*Matrix, error) {
	j, ok := m.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown feature %q", common.ErrDimensionMismatch, name)
	}
	r, _ := m.data.Dims()
	col := mat.Col(nil, j, m.data)
	return &Matrix{names: []string{name}, data: mat.NewDense(r, 1, col)}, nil
}

// Span is the window [Start, End] during which a label was determined.
type Span struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two spans share more than a single instant.
func (s Span) Overlaps(o Span) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Events bundles the per-sample label, weight and span series.
// Weights may be nil, meaning uniform weights.
type Events struct {
	Labels  []float64 `json:"labels"`
	Weights []float64 `json:"weights,omitempty"`
	Spans   []Span    `json:"spans"`
}

// Validate checks that the events are aligned with m and well formed.
func (e *Events) Validate(m *Matrix) error {
	n, _ := m.Dims()
	if len(e.Labels) != n {
		return fmt.Errorf("%w: %d labels for %d samples", common.ErrDimensionMismatch, len(e.Labels), n)
	}
	if e.Weights != nil && len(e.Weights) != n {
		return fmt.Errorf("%w: %d weights for %d samples", common.ErrDimensionMismatch, len(e.Weights), n)
	}
	for i, w := range e.Weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %f at sample %d", common.ErrDimensionMismatch, w, i)
		}
	}
	return ValidateSpans(e.Spans, n)
}

// ValidateSpans checks the temporal ordering invariants the purged splitter
// relies on.
func ValidateSpans(spans []Span, n int) error {
	if len(spans) != n {
		return fmt.Errorf("%w: %d spans for %d samples", common.ErrDimensionMismatch, len(spans), n)
	}
	for i, s := range spans {
		if s.End.Before(s.Start) {
			return fmt.Errorf("%w: span %d ends before it starts", common.ErrDimensionMismatch, i)
		}
		if i > 0 && s.Start.Before(spans[i-1].Start) {
			return fmt.Errorf("%w: span %d starts before span %d", common.ErrDimensionMismatch, i, i-1)
		}
	}
	return nil
}

// Take returns xs[idx] as a new slice. A nil input yields nil.
func Take(xs []float64, idx []int) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = xs[i]
	}
	return out
}
