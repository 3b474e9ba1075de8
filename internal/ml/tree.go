package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Criterion is the node impurity measure.
type Criterion string

const (
	Entropy Criterion = "entropy"
	Gini    Criterion = "gini"
)

// DecisionTree configures a CART classification tree.
type DecisionTree struct {
	Criterion Criterion
	// MaxFeatures is the number of non-constant features inspected per
	// split. Zero inspects all features.
	MaxFeatures int
	// MaxDepth of zero grows until leaves are pure.
	MaxDepth        int
	MinSamplesSplit int
	// MinWeightFractionLeaf is the minimum share of the total sample weight
	// required in each leaf.
	MinWeightFractionLeaf float64
	// BalancedClassWeight reweights samples by n / (classes * count(class)).
	BalancedClassWeight bool
	Seed                uint64
}

// Fit grows a tree on X and y.
func (t DecisionTree) Fit(X mat.Matrix, y, weights []float64) (Model, error) {
	if err := checkFitInput(X, y, weights); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(t.Seed, 0))
	return t.grow(columns(X), y, weights, Classes(y), rng)
}

type treeNode struct {
	feature   int // -1 for leaves
	threshold float64
	left      int
	right     int
	value     []float64
}

// TreeModel is a fitted decision tree.
type TreeModel struct {
	classes     []float64
	nFeatures   int
	nodes       []treeNode
	importances []float64
}

type treeBuilder struct {
	cfg           DecisionTree
	cols          [][]float64
	yk            []int
	w             []float64
	nClasses      int
	minLeafWeight float64
	rng           *rand.Rand
	nodes         []treeNode
	imp           []float64
}

// grow fits the tree on the rows with positive weight. classes fixes the
// probability column order so trees fitted on bootstrap samples stay aligned
// with their ensemble.
func (t DecisionTree) grow(cols [][]float64, y, weights []float64, classes []float64, rng *rand.Rand) (*TreeModel, error) {
	n := len(y)
	classIdx := make(map[float64]int, len(classes))
	for k, c := range classes {
		classIdx[c] = k
	}

	yk := make([]int, n)
	counts := make([]float64, len(classes))
	for i, v := range y {
		k, ok := classIdx[v]
		if !ok {
			return nil, fmt.Errorf("label %v not in class set %v", v, classes)
		}
		yk[i] = k
		counts[k]++
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
		if weights != nil {
			w[i] = weights[i]
		}
		if t.BalancedClassWeight {
			w[i] *= float64(n) / (float64(len(classes)) * counts[yk[i]])
		}
	}

	rows := make([]int, 0, n)
	for i, v := range w {
		if v > 0 {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("all sample weights are zero")
	}

	b := &treeBuilder{
		cfg:           t,
		cols:          cols,
		yk:            yk,
		w:             w,
		nClasses:      len(classes),
		minLeafWeight: t.MinWeightFractionLeaf * floats.Sum(w),
		rng:           rng,
		imp:           make([]float64, len(cols)),
	}
	b.build(rows, 0)

	if total := floats.Sum(b.imp); total > 0 {
		floats.Scale(1/total, b.imp)
	}

	return &TreeModel{
		classes:     append([]float64(nil), classes...),
		nFeatures:   len(cols),
		nodes:       b.nodes,
		importances: b.imp,
	}, nil
}

func (b *treeBuilder) impurity(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	var acc float64
	switch b.cfg.Criterion {
	case Gini:
		acc = 1
		for _, c := range counts {
			p := c / total
			acc -= p * p
		}
	default:
		for _, c := range counts {
			if c > 0 {
				p := c / total
				acc -= p * math.Log2(p)
			}
		}
	}
	return acc
}

type split struct {
	feature     int
	threshold   float64
	improvement float64
}

func (b *treeBuilder) build(rows []int, depth int) int {
	counts := make([]float64, b.nClasses)
	for _, r := range rows {
		counts[b.yk[r]] += b.w[r]
	}
	total := floats.Sum(counts)

	value := make([]float64, b.nClasses)
	if total > 0 {
		for k, c := range counts {
			value[k] = c / total
		}
	} else {
		for k := range value {
			value[k] = 1 / float64(b.nClasses)
		}
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{feature: -1, value: value})

	minSplit := b.cfg.MinSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}
	imp := b.impurity(counts, total)
	if len(rows) < minSplit || imp <= 1e-12 || total < 2*b.minLeafWeight ||
		(b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) {
		return id
	}

	best, ok := b.bestSplit(rows, counts, imp, total)
	if !ok {
		return id
	}

	var left, right []int
	for _, r := range rows {
		if b.cols[best.feature][r] <= best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	b.imp[best.feature] += best.improvement
	l := b.build(left, depth+1)
	rt := b.build(right, depth+1)
	b.nodes[id].feature = best.feature
	b.nodes[id].threshold = best.threshold
	b.nodes[id].left = l
	b.nodes[id].right = rt
	return id
}

// bestSplit draws features in random order until MaxFeatures non-constant
// ones have been inspected. Constant features do not count.
func (b *treeBuilder) bestSplit(rows []int, counts []float64, imp, total float64) (split, bool) {
	best := split{improvement: math.Inf(-1)}
	found := false
	visited := 0

	sorted := make([]int, len(rows))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	for _, f := range b.rng.Perm(len(b.cols)) {
		if b.cfg.MaxFeatures > 0 && visited >= b.cfg.MaxFeatures {
			break
		}
		col := b.cols[f]
		copy(sorted, rows)
		slices.SortFunc(sorted, func(i, j int) int {
			switch {
			case col[i] < col[j]:
				return -1
			case col[i] > col[j]:
				return 1
			}
			return i - j
		})
		if col[sorted[0]] == col[sorted[len(sorted)-1]] {
			continue
		}
		visited++

		for k := range left {
			left[k] = 0
		}
		var wl float64
		for i := 0; i < len(sorted)-1; i++ {
			r := sorted[i]
			left[b.yk[r]] += b.w[r]
			wl += b.w[r]

			lo, hi := col[r], col[sorted[i+1]]
			if lo == hi {
				continue
			}
			wr := total - wl
			if wl < b.minLeafWeight || wr < b.minLeafWeight || wl <= 0 || wr <= 0 {
				continue
			}
			for k := range right {
				right[k] = math.Max(counts[k]-left[k], 0)
			}

			gain := total*imp - wl*b.impurity(left, wl) - wr*b.impurity(right, wr)
			if gain > best.improvement {
				thr := lo + (hi-lo)/2
				if thr >= hi {
					thr = lo
				}
				best = split{feature: f, threshold: thr, improvement: gain}
				found = true
			}
		}
	}
	return best, found
}

// Classes returns the ordered class labels.
func (m *TreeModel) Classes() []float64 {
	return append([]float64(nil), m.classes...)
}

// FeatureImportances returns the normalized impurity decrease per feature.
// A tree without splits reports all zeros.
func (m *TreeModel) FeatureImportances() []float64 {
	return append([]float64(nil), m.importances...)
}

// NodeCount returns the number of nodes in the tree.
func (m *TreeModel) NodeCount() int {
	return len(m.nodes)
}

func (m *TreeModel) leaf(row []float64) []float64 {
	n := m.nodes[0]
	for n.feature >= 0 {
		if row[n.feature] <= n.threshold {
			n = m.nodes[n.left]
		} else {
			n = m.nodes[n.right]
		}
	}
	return n.value
}

// PredictProba returns leaf class frequencies for every row of X.
func (m *TreeModel) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if c != m.nFeatures {
		return nil, fmt.Errorf("model fitted on %d features, got %d", m.nFeatures, c)
	}
	out := mat.NewDense(r, len(m.classes), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, m.leaf(row))
	}
	return out, nil
}

// Predict returns the most probable class for every row of X.
func (m *TreeModel) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(proba, m.classes), nil
}

func predictFromProba(proba *mat.Dense, classes []float64) []float64 {
	r, _ := proba.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = classes[floats.MaxIdx(proba.RawRowView(i))]
	}
	return out
}
