// Package ml provides the classifier capabilities the importance engine is
// written against, plus the default implementation: a bagged ensemble of
// CART decision trees with out-of-bag scoring.
//
// A Classifier is an unfitted configuration value. Fit never mutates the
// receiver and always returns a fresh Model, so one prototype can be shared
// read-only across folds and goroutines.
package ml

import (
	"fmt"
	"sort"

	"featimp/internal/common"

	"gonum.org/v1/gonum/mat"
)

// Classifier fits a model on samples X with labels y and optional weights.
type Classifier interface {
	Fit(X mat.Matrix, y, weights []float64) (Model, error)
}

// Model is a fitted classifier.
type Model interface {
	// Predict returns one class label per row of X.
	Predict(X mat.Matrix) ([]float64, error)

	// PredictProba returns a len(rows) x len(Classes()) probability matrix.
	PredictProba(X mat.Matrix) (*mat.Dense, error)

	// Classes returns the ordered label set the model was fitted on.
	Classes() []float64
}

// ImportanceModel is a model exposing per-feature impurity decreases aligned
// with the training column order.
type ImportanceModel interface {
	Model
	FeatureImportances() []float64
}

// Ensemble is a fitted model composed of sub-models.
type Ensemble interface {
	Model
	Estimators() []ImportanceModel
}

// OOBScorer is implemented by models that computed an out-of-bag score.
type OOBScorer interface {
	OOBScore() (float64, bool)
}

// Parallel is implemented by classifiers with internal worker parallelism.
// WithWorkers returns a copy using n workers.
type Parallel interface {
	Classifier
	WithWorkers(n int) Classifier
}

// Classes returns the sorted distinct values of y.
func Classes(y []float64) []float64 {
	set := make(map[float64]struct{})
	for _, v := range y {
		set[v] = struct{}{}
	}
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func checkFitInput(X mat.Matrix, y, weights []float64) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return fmt.Errorf("%w: empty training matrix", common.ErrDimensionMismatch)
	}
	if len(y) != r {
		return fmt.Errorf("%w: %d labels for %d rows", common.ErrDimensionMismatch, len(y), r)
	}
	if weights != nil && len(weights) != r {
		return fmt.Errorf("%w: %d weights for %d rows", common.ErrDimensionMismatch, len(weights), r)
	}
	return nil
}

func columns(X mat.Matrix) [][]float64 {
	_, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}
	return cols
}
