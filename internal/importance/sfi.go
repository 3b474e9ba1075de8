package importance

import (
	"context"
	"errors"
	"math"

	"featimp/internal/common"
	"featimp/internal/cv"
	"featimp/internal/dataset"
	"featimp/internal/ml"
	"featimp/internal/parallel"
	"featimp/internal/scoring"

	"gonum.org/v1/gonum/stat"
)

// SFI computes single feature importance: a complete cross-validation of
// clf on each column alone. Features are evaluated on up to workers
// goroutines; each task reads shared inputs and copies its own column.
//
// When splitter is nil a PurgedKFold is built from p and purging. Passing a
// splitter guarantees every feature is scored on identical folds.
func (e *Engine) SFI(ctx context.Context, clf ml.Classifier, X *dataset.Matrix, ev *dataset.Events, p CVParams, splitter cv.Splitter, purging bool, workers int) (*Report, error) {
	scorer, err := scoring.New(p.Scoring)
	if err != nil {
		return nil, err
	}
	if err := ev.Validate(X); err != nil {
		return nil, common.NewStageError(common.StageValidate, -1, err)
	}
	if splitter == nil {
		splitter, err = cv.NewPurgedKFold(p.NSplits, ev.Spans, p.PctEmbargo, purging)
		if err != nil {
			return nil, err
		}
	}

	clf = e.instrument(clf)
	names := X.Names()

	results, err := parallel.Map(ctx, names, workers, func(ctx context.Context, name string) (Stat, error) {
		col, err := X.Column(name)
		if err != nil {
			return Stat{}, err
		}
		scores, err := cv.Score(ctx, clf, col, ev.Labels, ev.Weights, scorer, splitter)
		if err != nil {
			var se *common.StageError
			if errors.As(err, &se) {
				return Stat{}, se.WithFeature(name)
			}
			return Stat{}, err
		}
		for _, s := range scores {
			e.metrics.FoldScoreObserve(common.MethodSFI, s)
		}
		e.metrics.FeatureTasksInc()
		return Stat{
			Mean: stat.Mean(scores, nil),
			Std:  stat.StdDev(scores, nil) * math.Sqrt(float64(len(scores))),
		}, nil
	})
	if err != nil {
		var se *common.StageError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, common.NewStageError(common.StageDispatch, -1, err)
	}

	stats := make([]Stat, len(names))
	for i, n := range names {
		stats[i] = results[n]
	}
	return newReport(common.MethodSFI, names, stats), nil
}
