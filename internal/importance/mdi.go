package importance

import (
	"fmt"
	"math"

	"featimp/internal/common"
	"featimp/internal/ml"

	"gonum.org/v1/gonum/stat"
)

// MDI computes mean decrease impurity from an already fitted ensemble.
//
// A zero importance means the tree never split on the feature; such entries
// are treated as missing rather than zero, so they shrink neither the mean
// nor the dispersion. Std is the sample std scaled by sqrt(trees). Means and
// stds are finally divided by the sum of means so the means add up to one.
func MDI(model ml.Ensemble, names []string) (*Report, error) {
	trees := model.Estimators()
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: ensemble has no estimators", common.ErrInvalidConfiguration)
	}

	used := make([][]float64, len(names))
	for t, tree := range trees {
		imp := tree.FeatureImportances()
		if len(imp) != len(names) {
			return nil, fmt.Errorf("%w: estimator %d has %d importances for %d features",
				common.ErrDimensionMismatch, t, len(imp), len(names))
		}
		for j, v := range imp {
			if v != 0 {
				used[j] = append(used[j], v)
			}
		}
	}

	scale := math.Sqrt(float64(len(trees)))
	stats := make([]Stat, len(names))
	var total float64
	for j, vals := range used {
		stats[j] = Stat{Mean: math.NaN(), Std: math.NaN()}
		if len(vals) > 0 {
			stats[j].Mean = stat.Mean(vals, nil)
			total += stats[j].Mean
		}
		if len(vals) > 1 {
			stats[j].Std = stat.StdDev(vals, nil) * scale
		}
	}

	for j := range stats {
		stats[j].Mean /= total
		stats[j].Std /= total
	}
	return newReport(common.MethodMDI, names, stats), nil
}
