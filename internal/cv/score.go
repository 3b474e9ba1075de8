package cv

import (
	"context"
	"fmt"

	"featimp/internal/common"
	"featimp/internal/dataset"
	"featimp/internal/ml"
	"featimp/internal/scoring"

	"github.com/rs/zerolog/log"
)

// Score runs a full cross-validation of clf over X and returns one score per
// fold. Train weights are passed to Fit and test weights to the scorer.
// Any split, fit or score failure aborts with a *common.StageError. The
// context is checked between folds.
func Score(ctx context.Context, clf ml.Classifier, X *dataset.Matrix, y, weights []float64, scorer scoring.Scorer, splitter Splitter) ([]float64, error) {
	n, _ := X.Dims()
	if len(y) != n || (weights != nil && len(weights) != n) {
		return nil, common.NewStageError(common.StageValidate, -1,
			fmt.Errorf("%w: %d samples, %d labels, %d weights", common.ErrDimensionMismatch, n, len(y), len(weights)))
	}

	folds, err := splitter.Split(n)
	if err != nil {
		return nil, common.NewStageError(common.StageSplit, -1, err)
	}

	scores := make([]float64, len(folds))
	for k, f := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model, err := clf.Fit(X.Rows(f.Train), dataset.Take(y, f.Train), dataset.Take(weights, f.Train))
		if err != nil {
			return nil, common.NewStageError(common.StageFit, k, err)
		}

		s, err := scorer.Score(model, X.Rows(f.Test), dataset.Take(y, f.Test), dataset.Take(weights, f.Test))
		if err != nil {
			return nil, common.NewStageError(common.StageScore, k, err)
		}
		scores[k] = s

		log.Debug().
			Int("fold", k).
			Int("train", len(f.Train)).
			Int("test", len(f.Test)).
			Str("scoring", scorer.Name()).
			Float64("score", s).
			Msg("Fold scored")
	}
	return scores, nil
}
