package ml

import (
	"context"
	"fmt"
	"math/rand/v2"

	"featimp/internal/parallel"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Bagging fits NEstimators copies of Base on bootstrap samples.
type Bagging struct {
	Base        DecisionTree
	NEstimators int
	// MaxSamples is the bootstrap size as a fraction of the training rows.
	MaxSamples float64
	OOBScore   bool
	// Workers bounds the number of trees fitted concurrently.
	Workers int
	Seed    uint64
}

// NewDefaultBagging returns the ensemble used when no classifier is given:
// entropy trees considering one feature per split, balanced class weights,
// bootstrap sampling and out-of-bag scoring.
func NewDefaultBagging(nEstimators int, maxSamples, minWLeaf float64, workers int, seed uint64) Bagging {
	return Bagging{
		Base: DecisionTree{
			Criterion:             Entropy,
			MaxFeatures:           1,
			MinWeightFractionLeaf: minWLeaf,
			BalancedClassWeight:   true,
		},
		NEstimators: nEstimators,
		MaxSamples:  maxSamples,
		OOBScore:    true,
		Workers:     workers,
		Seed:        seed,
	}
}

// WithWorkers returns a copy of the ensemble configuration fitting with n
// workers.
func (b Bagging) WithWorkers(n int) Classifier {
	b.Workers = n
	return b
}

// Fit draws one bootstrap per estimator. Each estimator's random stream is
// derived from Seed and its index, so results do not depend on Workers.
func (b Bagging) Fit(X mat.Matrix, y, weights []float64) (Model, error) {
	if err := checkFitInput(X, y, weights); err != nil {
		return nil, err
	}
	if b.NEstimators < 1 {
		return nil, fmt.Errorf("bagging needs at least one estimator, got %d", b.NEstimators)
	}
	if b.MaxSamples <= 0 || b.MaxSamples > 1 {
		return nil, fmt.Errorf("max samples must be in (0, 1], got %f", b.MaxSamples)
	}

	n := len(y)
	draws := int(b.MaxSamples * float64(n))
	if draws < 1 {
		draws = 1
	}
	classes := Classes(y)
	cols := columns(X)

	type fitted struct {
		tree  *TreeModel
		inBag []bool
	}

	ids := make([]int, b.NEstimators)
	for i := range ids {
		ids[i] = i
	}

	results, err := parallel.Map(context.Background(), ids, b.Workers, func(_ context.Context, i int) (fitted, error) {
		rng := rand.New(rand.NewPCG(b.Seed, uint64(i)+1))

		counts := make([]float64, n)
		for d := 0; d < draws; d++ {
			counts[rng.IntN(n)]++
		}
		w := counts
		if weights != nil {
			w = make([]float64, n)
			floats.MulTo(w, counts, weights)
		}

		tree, err := b.Base.grow(cols, y, w, classes, rng)
		if err != nil {
			return fitted{}, fmt.Errorf("estimator %d: %w", i, err)
		}

		inBag := make([]bool, n)
		for r, c := range counts {
			inBag[r] = c > 0
		}
		return fitted{tree: tree, inBag: inBag}, nil
	})
	if err != nil {
		return nil, err
	}

	model := &BaggingModel{
		classes:   classes,
		nFeatures: len(cols),
		trees:     make([]*TreeModel, b.NEstimators),
	}
	for i := range ids {
		model.trees[i] = results[i].tree
	}

	if b.OOBScore {
		inBag := make([][]bool, b.NEstimators)
		for i := range ids {
			inBag[i] = results[i].inBag
		}
		model.oob, model.hasOOB = model.outOfBag(X, y, inBag)
	}

	return model, nil
}

// BaggingModel is a fitted bagging ensemble.
type BaggingModel struct {
	classes   []float64
	nFeatures int
	trees     []*TreeModel
	oob       float64
	hasOOB    bool
}

// outOfBag scores every sample with the trees that did not see it. Samples
// that were in every bootstrap are skipped.
func (m *BaggingModel) outOfBag(X mat.Matrix, y []float64, inBag [][]bool) (float64, bool) {
	r, c := X.Dims()
	row := make([]float64, c)
	acc := make([]float64, len(m.classes))

	var hits, seen int
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		for k := range acc {
			acc[k] = 0
		}
		votes := 0
		for t, tree := range m.trees {
			if inBag[t][i] {
				continue
			}
			floats.Add(acc, tree.leaf(row))
			votes++
		}
		if votes == 0 {
			continue
		}
		seen++
		if m.classes[floats.MaxIdx(acc)] == y[i] {
			hits++
		}
	}
	if seen == 0 {
		return 0, false
	}
	return float64(hits) / float64(seen), true
}

// Classes returns the ordered class labels.
func (m *BaggingModel) Classes() []float64 {
	return append([]float64(nil), m.classes...)
}

// Estimators returns the fitted trees.
func (m *BaggingModel) Estimators() []ImportanceModel {
	out := make([]ImportanceModel, len(m.trees))
	for i, t := range m.trees {
		out[i] = t
	}
	return out
}

// OOBScore returns the out-of-bag accuracy, if it was computed.
func (m *BaggingModel) OOBScore() (float64, bool) {
	return m.oob, m.hasOOB
}

// PredictProba averages the trees' class probabilities.
func (m *BaggingModel) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if c != m.nFeatures {
		return nil, fmt.Errorf("model fitted on %d features, got %d", m.nFeatures, c)
	}
	out := mat.NewDense(r, len(m.classes), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		dst := out.RawRowView(i)
		for _, t := range m.trees {
			floats.Add(dst, t.leaf(row))
		}
		floats.Scale(1/float64(len(m.trees)), dst)
	}
	return out, nil
}

// Predict returns the class with the highest averaged probability.
func (m *BaggingModel) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(proba, m.classes), nil
}
