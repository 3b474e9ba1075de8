package metrics

// EngineWrapper adapts Metrics to the importance engine's metrics interface.
type EngineWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *EngineWrapper {
	return &EngineWrapper{m: m}
}

func (w *EngineWrapper) FitsInc() {
	w.m.FitsTotal.Inc()
}

func (w *EngineWrapper) FitFailuresInc() {
	w.m.FitFailures.Inc()
}

func (w *EngineWrapper) FitDurationObserve(v float64) {
	w.m.FitDuration.Observe(v)
}

func (w *EngineWrapper) FoldScoreObserve(method string, score float64) {
	w.m.FoldScores.WithLabelValues(method).Observe(score)
}

func (w *EngineWrapper) FeatureTasksInc() {
	w.m.FeatureTasks.Inc()
}

func (w *EngineWrapper) RunDurationObserve(method string, seconds float64) {
	w.m.RunDuration.WithLabelValues(method).Observe(seconds)
}

func (w *EngineWrapper) ImportanceSet(method, feature string, mean float64) {
	w.m.FeatureImportance.WithLabelValues(method, feature).Set(mean)
}

func (w *EngineWrapper) OOSScoreSet(method string, score float64) {
	w.m.OOSScore.WithLabelValues(method).Set(score)
}
