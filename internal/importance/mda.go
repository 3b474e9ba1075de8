package importance

import (
	"math"
	"math/rand/v2"

	"featimp/internal/common"
	"featimp/internal/cv"
	"featimp/internal/dataset"
	"featimp/internal/ml"
	"featimp/internal/scoring"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CVParams are the cross-validation settings shared by the estimators.
type CVParams struct {
	NSplits    int
	PctEmbargo float64
	Scoring    string
}

// MDA computes mean decrease accuracy. Each fold fits clf once, scores the
// untouched test partition, then rescores a copy of it with one column
// shuffled, for every column. The per-fold improvement is normalized by the
// gap between the permuted score and the scorer's best score, which can push
// the ratio outside [0, 1] when the baseline itself is poor. Returns the
// report and the mean baseline (out-of-sample) score.
func (e *Engine) MDA(clf ml.Classifier, X *dataset.Matrix, ev *dataset.Events, p CVParams, seed uint64) (*Report, float64, error) {
	scorer, err := scoring.New(p.Scoring)
	if err != nil {
		return nil, 0, err
	}
	if err := ev.Validate(X); err != nil {
		return nil, 0, common.NewStageError(common.StageValidate, -1, err)
	}
	splitter, err := cv.NewPurgedKFold(p.NSplits, ev.Spans, p.PctEmbargo, true)
	if err != nil {
		return nil, 0, err
	}

	n, nf := X.Dims()
	folds, err := splitter.Split(n)
	if err != nil {
		return nil, 0, common.NewStageError(common.StageSplit, -1, err)
	}

	clf = e.instrument(clf)
	names := X.Names()
	base := make([]float64, len(folds))
	ratios := make([][]float64, nf)
	for j := range ratios {
		ratios[j] = make([]float64, len(folds))
	}

	for k, f := range folds {
		model, err := clf.Fit(X.Rows(f.Train), dataset.Take(ev.Labels, f.Train), dataset.Take(ev.Weights, f.Train))
		if err != nil {
			return nil, 0, common.NewStageError(common.StageFit, k, err)
		}

		xTest := X.Rows(f.Test)
		yTest := dataset.Take(ev.Labels, f.Test)
		wTest := dataset.Take(ev.Weights, f.Test)

		base[k], err = scorer.Score(model, xTest, yTest, wTest)
		if err != nil {
			return nil, 0, common.NewStageError(common.StageScore, k, err)
		}
		e.metrics.FoldScoreObserve(common.MethodMDA, base[k])

		rng := rand.New(rand.NewPCG(seed, uint64(k)))
		col := make([]float64, len(f.Test))
		for j, name := range names {
			shuffled := mat.DenseCopyOf(xTest)
			mat.Col(col, j, xTest)
			rng.Shuffle(len(col), func(a, b int) { col[a], col[b] = col[b], col[a] })
			shuffled.SetCol(j, col)

			permuted, err := scorer.Score(model, shuffled, yTest, wTest)
			if err != nil {
				return nil, 0, common.NewStageError(common.StagePermute, k, err).WithFeature(name)
			}
			ratios[j][k] = (base[k] - permuted) / (scorer.Best() - permuted)
		}

		log.Debug().
			Int("fold", k).
			Float64("baseline", base[k]).
			Msg("MDA fold permuted")
	}

	scale := math.Sqrt(float64(len(folds)))
	stats := make([]Stat, nf)
	for j, r := range ratios {
		stats[j] = Stat{Mean: stat.Mean(r, nil), Std: stat.StdDev(r, nil) * scale}
	}
	return newReport(common.MethodMDA, names, stats), stat.Mean(base, nil), nil
}
