package cv

import (
	"context"
	"errors"
	"testing"

	"featimp/internal/common"
	"featimp/internal/dataset"
	"featimp/internal/ml"
	"featimp/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// echoClassifier predicts the value of the first column.
type echoClassifier struct {
	fits int
	err  error
}

type echoModel struct{ classes []float64 }

func (c *echoClassifier) Fit(X mat.Matrix, y, _ []float64) (ml.Model, error) {
	c.fits++
	if c.err != nil {
		return nil, c.err
	}
	return echoModel{classes: ml.Classes(y)}, nil
}

func (m echoModel) Classes() []float64 { return m.classes }

func (m echoModel) Predict(X mat.Matrix) ([]float64, error) {
	return mat.Col(nil, 0, X), nil
}

func (m echoModel) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, len(m.classes), nil)
	for i := 0; i < r; i++ {
		for k, c := range m.classes {
			if X.At(i, 0) == c {
				out.Set(i, k, 1)
			}
		}
	}
	return out, nil
}

func labelled(t *testing.T, n int) (*dataset.Matrix, []float64) {
	t.Helper()
	rows := make([][]float64, n)
	y := make([]float64, n)
	for i := range rows {
		y[i] = float64(i % 2)
		rows[i] = []float64{y[i], float64(i)}
	}
	X, err := dataset.NewMatrix([]string{"label", "clock"}, rows)
	require.NoError(t, err)
	return X, y
}

func TestScore_IdentityClassifierIsPerfect(t *testing.T) {
	X, y := labelled(t, 40)
	splitter, err := NewPurgedKFold(4, barSpans(40, 3), 0.05, true)
	require.NoError(t, err)

	clf := &echoClassifier{}
	scores, err := Score(context.Background(), clf, X, y, nil, scoring.Accuracy{}, splitter)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, scores)
	assert.Equal(t, 4, clf.fits)

	logScores, err := Score(context.Background(), clf, X, y, nil, scoring.NegLogLoss{}, splitter)
	require.NoError(t, err)
	for _, s := range logScores {
		assert.InDelta(t, 0, s, 1e-9)
	}
}

func TestScore_FitFailure(t *testing.T) {
	X, y := labelled(t, 20)
	splitter, err := NewPurgedKFold(2, barSpans(20, 1), 0, true)
	require.NoError(t, err)

	cause := errors.New("solver diverged")
	_, err = Score(context.Background(), &echoClassifier{err: cause}, X, y, nil, scoring.Accuracy{}, splitter)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFitFailure)
	assert.ErrorIs(t, err, cause)

	var se *common.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, common.StageFit, se.Stage)
	assert.Equal(t, 0, se.Fold)
}

func TestScore_DimensionMismatch(t *testing.T) {
	X, y := labelled(t, 20)
	splitter, err := NewPurgedKFold(2, barSpans(20, 1), 0, true)
	require.NoError(t, err)

	_, err = Score(context.Background(), &echoClassifier{}, X, y[:10], nil, scoring.Accuracy{}, splitter)
	assert.ErrorIs(t, err, common.ErrDimensionMismatch)

	other, err := NewPurgedKFold(2, barSpans(30, 1), 0, true)
	require.NoError(t, err)
	_, err = Score(context.Background(), &echoClassifier{}, X, y, nil, scoring.Accuracy{}, other)
	var se *common.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, common.StageSplit, se.Stage)
}

func TestScore_Cancelled(t *testing.T) {
	X, y := labelled(t, 20)
	splitter, err := NewPurgedKFold(2, barSpans(20, 1), 0, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clf := &echoClassifier{}
	_, err = Score(ctx, clf, X, y, nil, scoring.Accuracy{}, splitter)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, clf.fits)
}
