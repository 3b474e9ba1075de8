package importance

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"featimp/internal/dataset"
	"featimp/internal/ml"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// signalDataset returns 400 bars where I0 is the label and N0, N1 are noise.
func signalDataset(t *testing.T) (*dataset.Matrix, *dataset.Events) {
	t.Helper()
	X, ev, err := dataset.Synthetic(dataset.SyntheticConfig{
		Samples:     400,
		Informative: 1,
		Noise:       2,
		Horizon:     3,
		Seed:        7,
	})
	require.NoError(t, err)
	return X, ev
}

// countingClassifier records how often Fit was called.
type countingClassifier struct {
	inner ml.Classifier
	err   error
	fits  atomic.Int64
}

func (c *countingClassifier) Fit(X mat.Matrix, y, w []float64) (ml.Model, error) {
	c.fits.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Fit(X, y, w)
}

var errSolver = errors.New("solver diverged")

// recordingMetrics captures engine metrics calls.
type recordingMetrics struct {
	mu           sync.Mutex
	fits         int
	failures     int
	foldScores   map[string]int
	featureTasks int
	importance   map[string]float64
	oos          map[string]float64
	runs         int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		foldScores: map[string]int{},
		importance: map[string]float64{},
		oos:        map[string]float64{},
	}
}

func (m *recordingMetrics) FitsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fits++
}

func (m *recordingMetrics) FitFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *recordingMetrics) FitDurationObserve(float64) {}

func (m *recordingMetrics) FoldScoreObserve(method string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foldScores[method]++
}

func (m *recordingMetrics) FeatureTasksInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.featureTasks++
}

func (m *recordingMetrics) RunDurationObserve(string, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

func (m *recordingMetrics) ImportanceSet(_, feature string, mean float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importance[feature] = mean
}

func (m *recordingMetrics) OOSScoreSet(method string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oos[method] = score
}
