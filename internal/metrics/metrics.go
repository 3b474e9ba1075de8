// Package metrics provides Prometheus metrics for feature importance runs.
// It defines counters for classifier fits, histograms of fold scores and run
// durations, and gauges holding the latest importance of every feature, so a
// batch run can be exported to a textfile collector or scraped while it runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the importance engine.
type Metrics struct {
	// Fit metrics
	FitsTotal    prometheus.Counter   // Successful classifier fits
	FitFailures  prometheus.Counter   // Classifier fits that returned an error
	FitDuration  prometheus.Histogram // Wall time of a single fit
	FeatureTasks prometheus.Counter   // Completed single-feature cross-validations

	// Run metrics, labelled by importance method
	FoldScores        *prometheus.HistogramVec
	RunDuration       *prometheus.HistogramVec
	OOSScore          *prometheus.GaugeVec
	FeatureImportance *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry creates metrics on the given registerer. The gatherer is
// used by WriteTextfile and may be nil when export is not needed.
func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		FitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "featimp_fits_total",
			Help: "Total number of successful classifier fits",
		}),
		FitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "featimp_fit_failures_total",
			Help: "Total number of classifier fits that failed",
		}),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "featimp_fit_duration_seconds",
			Help:    "Duration of a single classifier fit in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		FeatureTasks: factory.NewCounter(prometheus.CounterOpts{
			Name: "featimp_feature_tasks_total",
			Help: "Total number of completed single feature cross-validations",
		}),
		FoldScores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "featimp_fold_score",
			Help:    "Distribution of out-of-sample fold scores",
			Buckets: prometheus.LinearBuckets(-2, 0.25, 13),
		}, []string{"method"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "featimp_run_duration_seconds",
			Help:    "Duration of a complete importance run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		}, []string{"method"}),
		OOSScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "featimp_oos_score",
			Help: "Mean out-of-sample score of the latest run",
		}, []string{"method"}),
		FeatureImportance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "featimp_feature_importance",
			Help: "Mean importance of each feature in the latest run",
		}, []string{"method", "feature"}),
		gatherer: gatherer,
	}
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m.gatherer == nil {
		return fmt.Errorf("metrics have no gatherer")
	}
	return prometheus.WriteToTextfile(path, m.gatherer)
}
