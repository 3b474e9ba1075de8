// Package importance estimates how much each feature contributes to a
// classifier's predictive power on time-indexed data, using purged
// cross-validation to keep overlapping label windows out of the training
// folds.
//
// Three estimators are provided: MDI reads impurity decreases from a fitted
// ensemble, MDA measures the score lost when a feature is shuffled, and SFI
// cross-validates every feature on its own. Engine.Run selects one of them
// and reports out-of-bag and out-of-sample scores alongside.
package importance

import (
	"context"
	"fmt"
	"time"

	"featimp/internal/common"
	"featimp/internal/cv"
	"featimp/internal/dataset"
	"featimp/internal/ml"
	"featimp/internal/scoring"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// Engine runs importance computations and reports them to its metrics.
type Engine struct {
	metrics MetricsInterface
}

// NewEngine creates an engine. A nil metrics disables instrumentation.
func NewEngine(metrics MetricsInterface) *Engine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{metrics: metrics}
}

func (e *Engine) instrument(clf ml.Classifier) ml.Classifier {
	return instrumented{clf: clf, metrics: e.metrics}
}

// Options configures Engine.Run.
type Options struct {
	// Classifier defaults to the bagged entropy-tree ensemble built from
	// NEstimators, MaxSamples, MinWLeaf, NumThreads and Seed.
	Classifier  ml.Classifier
	Method      string
	Scoring     string
	NEstimators int
	NSplits     int
	MaxSamples  float64
	NumThreads  int
	PctEmbargo  float64
	MinWLeaf    float64
	Seed        uint64
}

// Result is the outcome of one Engine.Run call.
type Result struct {
	ID         string        `json:"id"`
	Method     string        `json:"method"`
	Scoring    string        `json:"scoring"`
	Importance *Report       `json:"importance"`
	OOB        *float64      `json:"oob,omitempty"`
	OOS        float64       `json:"oos"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

func (o Options) validate() error {
	if _, err := scoring.New(o.Scoring); err != nil {
		return err
	}
	switch o.Method {
	case common.MethodMDI, common.MethodMDA, common.MethodSFI:
	default:
		return fmt.Errorf("%w: unknown method %q", common.ErrInvalidConfiguration, o.Method)
	}
	if o.Classifier == nil && o.NEstimators < 1 {
		return fmt.Errorf("%w: need at least one estimator, got %d", common.ErrInvalidConfiguration, o.NEstimators)
	}
	if o.Classifier == nil && (o.MaxSamples <= 0 || o.MaxSamples > 1) {
		return fmt.Errorf("%w: max samples must be in (0, 1], got %f", common.ErrInvalidConfiguration, o.MaxSamples)
	}
	if o.MinWLeaf < 0 || o.MinWLeaf > 0.5 {
		return fmt.Errorf("%w: min weight fraction leaf must be in [0, 0.5], got %f", common.ErrInvalidConfiguration, o.MinWLeaf)
	}
	return nil
}

// Run fits the classifier once on the full dataset, then computes the
// importance report with the selected method. The out-of-sample score comes
// from MDA's own baseline folds, or from a separate full-feature
// cross-validation for MDI and SFI. All configuration is checked before the
// first fit, and any failure aborts the whole run.
func (e *Engine) Run(ctx context.Context, X *dataset.Matrix, ev *dataset.Events, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := ev.Validate(X); err != nil {
		return nil, common.NewStageError(common.StageValidate, -1, err)
	}
	splitter, err := cv.NewPurgedKFold(opts.NSplits, ev.Spans, opts.PctEmbargo, true)
	if err != nil {
		return nil, err
	}
	scorer, _ := scoring.New(opts.Scoring)

	res := &Result{
		ID:        uuid.NewString(),
		Method:    opts.Method,
		Scoring:   opts.Scoring,
		StartedAt: time.Now(),
	}
	samples, features := X.Dims()
	log.Info().
		Str("run_id", res.ID).
		Str("method", opts.Method).
		Str("scoring", opts.Scoring).
		Int("samples", samples).
		Int("features", features).
		Int("n_splits", opts.NSplits).
		Float64("pct_embargo", opts.PctEmbargo).
		Msg("Starting feature importance run")

	clf := opts.Classifier
	if clf == nil {
		clf = ml.NewDefaultBagging(opts.NEstimators, opts.MaxSamples, opts.MinWLeaf, opts.NumThreads, opts.Seed)
	}

	fitted, err := e.instrument(clf).Fit(X.View(), ev.Labels, ev.Weights)
	if err != nil {
		return nil, common.NewStageError(common.StageFit, -1, err)
	}
	if s, ok := fitted.(ml.OOBScorer); ok {
		if v, has := s.OOBScore(); has {
			res.OOB = &v
		}
	}

	params := CVParams{NSplits: opts.NSplits, PctEmbargo: opts.PctEmbargo, Scoring: opts.Scoring}
	names := X.Names()

	fullCV := func() (float64, error) {
		scores, err := cv.Score(ctx, e.instrument(clf), X, ev.Labels, ev.Weights, scorer, splitter)
		if err != nil {
			return 0, err
		}
		for _, s := range scores {
			e.metrics.FoldScoreObserve(opts.Method, s)
		}
		return stat.Mean(scores, nil), nil
	}

	switch opts.Method {
	case common.MethodMDI:
		ens, ok := fitted.(ml.Ensemble)
		if !ok {
			return nil, fmt.Errorf("%w: MDI needs an ensemble classifier, got %T", common.ErrInvalidConfiguration, fitted)
		}
		if res.Importance, err = MDI(ens, names); err != nil {
			return nil, err
		}
		if res.OOS, err = fullCV(); err != nil {
			return nil, err
		}

	case common.MethodMDA:
		if res.Importance, res.OOS, err = e.MDA(clf, X, ev, params, opts.Seed); err != nil {
			return nil, err
		}

	case common.MethodSFI:
		if res.OOS, err = fullCV(); err != nil {
			return nil, err
		}
		// Parallelism moves from inside the classifier to across features.
		single := clf
		if p, ok := clf.(ml.Parallel); ok {
			single = p.WithWorkers(1)
		}
		if res.Importance, err = e.SFI(ctx, single, X, ev, params, splitter, true, opts.NumThreads); err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(res.StartedAt)
	e.metrics.RunDurationObserve(opts.Method, res.Duration.Seconds())
	e.metrics.OOSScoreSet(opts.Method, res.OOS)
	for _, n := range names {
		e.metrics.ImportanceSet(opts.Method, n, res.Importance.Mean(n))
	}

	done := log.Info().
		Str("run_id", res.ID).
		Str("method", opts.Method).
		Float64("oos", res.OOS).
		Dur("duration", res.Duration).
		Strs("ranking", res.Importance.Ranked())
	if res.OOB != nil {
		done = done.Float64("oob", *res.OOB)
	}
	done.Msg("Feature importance run finished")

	return res, nil
}
