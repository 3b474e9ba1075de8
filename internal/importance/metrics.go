package importance

import (
	"time"

	"featimp/internal/ml"

	"gonum.org/v1/gonum/mat"
)

// MetricsInterface defines the metrics hooks used by the engine.
type MetricsInterface interface {
	FitsInc()
	FitFailuresInc()
	FitDurationObserve(float64)
	FoldScoreObserve(method string, score float64)
	FeatureTasksInc()
	RunDurationObserve(method string, seconds float64)
	ImportanceSet(method, feature string, mean float64)
	OOSScoreSet(method string, score float64)
}

type noopMetrics struct{}

func (noopMetrics) FitsInc()                              {}
func (noopMetrics) FitFailuresInc()                       {}
func (noopMetrics) FitDurationObserve(float64)            {}
func (noopMetrics) FoldScoreObserve(string, float64)      {}
func (noopMetrics) FeatureTasksInc()                      {}
func (noopMetrics) RunDurationObserve(string, float64)    {}
func (noopMetrics) ImportanceSet(string, string, float64) {}
func (noopMetrics) OOSScoreSet(string, float64)           {}

// instrumented counts and times every fit of the wrapped classifier.
type instrumented struct {
	clf     ml.Classifier
	metrics MetricsInterface
}

func (c instrumented) Fit(X mat.Matrix, y, weights []float64) (ml.Model, error) {
	start := time.Now()
	model, err := c.clf.Fit(X, y, weights)
	c.metrics.FitDurationObserve(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FitFailuresInc()
		return nil, err
	}
	c.metrics.FitsInc()
	return model, nil
}
