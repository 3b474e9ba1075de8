// Package scoring adapts classification metrics to a single "higher is
// better" call signature used by cross-validation and importance estimators.
package scoring

import (
	"fmt"
	"math"

	"featimp/internal/common"
	"featimp/internal/ml"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// probEps bounds predicted probabilities away from 0 and 1 before taking logs.
const probEps = 1e-15

// Scorer evaluates a fitted model on a labelled test partition.
type Scorer interface {
	Name() string
	// Best is the score of a perfect model.
	Best() float64
	Score(model ml.Model, X mat.Matrix, yTrue, weights []float64) (float64, error)
}

// New returns the scorer registered under name.
func New(name string) (Scorer, error) {
	switch name {
	case common.ScoringNegLogLoss:
		return NegLogLoss{}, nil
	case common.ScoringAccuracy:
		return Accuracy{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scoring %q", common.ErrInvalidConfiguration, name)
	}
}

// NegLogLoss scores class probabilities with the negated multi-class log-loss.
type NegLogLoss struct{}

func (NegLogLoss) Name() string { return common.ScoringNegLogLoss }

func (NegLogLoss) Best() float64 { return 0 }

func (NegLogLoss) Score(model ml.Model, X mat.Matrix, yTrue, weights []float64) (float64, error) {
	proba, err := model.PredictProba(X)
	if err != nil {
		return 0, fmt.Errorf("predict proba: %w", err)
	}
	loss, err := LogLoss(yTrue, proba, model.Classes(), weights)
	if err != nil {
		return 0, err
	}
	return -loss, nil
}

// Accuracy scores hard predictions with the (weighted) fraction correct.
type Accuracy struct{}

func (Accuracy) Name() string { return common.ScoringAccuracy }

func (Accuracy) Best() float64 { return 1 }

func (Accuracy) Score(model ml.Model, X mat.Matrix, yTrue, weights []float64) (float64, error) {
	pred, err := model.Predict(X)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	return AccuracyScore(yTrue, pred, weights)
}

// LogLoss computes the weighted multi-class cross-entropy of proba, whose
// columns are aligned with classes. Rows are renormalized and clipped.
func LogLoss(yTrue []float64, proba mat.Matrix, classes []float64, weights []float64) (float64, error) {
	r, c := proba.Dims()
	if r != len(yTrue) || c != len(classes) {
		return 0, fmt.Errorf("%w: proba %dx%d for %d labels and %d classes", common.ErrDimensionMismatch, r, c, len(yTrue), len(classes))
	}
	if weights != nil && len(weights) != len(yTrue) {
		return 0, fmt.Errorf("%w: %d weights for %d labels", common.ErrDimensionMismatch, len(weights), len(yTrue))
	}
	if r == 0 {
		return 0, fmt.Errorf("%w: empty test partition", common.ErrDimensionMismatch)
	}

	index := make(map[float64]int, len(classes))
	for k, cl := range classes {
		index[cl] = k
	}

	row := make([]float64, c)
	var total, wsum float64
	for i, y := range yTrue {
		k, ok := index[y]
		if !ok {
			return 0, fmt.Errorf("label %v not among model classes %v", y, classes)
		}
		mat.Row(row, i, proba)
		for j := range row {
			row[j] = math.Min(math.Max(row[j], probEps), 1-probEps)
		}
		p := row[k] / floats.Sum(row)

		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		total -= w * math.Log(p)
		wsum += w
	}
	if wsum == 0 {
		return 0, fmt.Errorf("%w: test weights sum to zero", common.ErrDimensionMismatch)
	}
	return total / wsum, nil
}

// AccuracyScore returns the weighted fraction of pred equal to yTrue.
func AccuracyScore(yTrue, pred, weights []float64) (float64, error) {
	if len(pred) != len(yTrue) {
		return 0, fmt.Errorf("%w: %d predictions for %d labels", common.ErrDimensionMismatch, len(pred), len(yTrue))
	}
	if weights != nil && len(weights) != len(yTrue) {
		return 0, fmt.Errorf("%w: %d weights for %d labels", common.ErrDimensionMismatch, len(weights), len(yTrue))
	}
	if len(yTrue) == 0 {
		return 0, fmt.Errorf("%w: empty test partition", common.ErrDimensionMismatch)
	}

	var hit, wsum float64
	for i := range yTrue {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		if pred[i] == yTrue[i] {
			hit += w
		}
		wsum += w
	}
	if wsum == 0 {
		return 0, fmt.Errorf("%w: test weights sum to zero", common.ErrDimensionMismatch)
	}
	return hit / wsum, nil
}
